package accounts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hcsem/communityhub/internal/audit"
	"github.com/hcsem/communityhub/internal/auth"
	"github.com/hcsem/communityhub/internal/domain/auditlog"
	"github.com/hcsem/communityhub/internal/domain/resettoken"
	"github.com/hcsem/communityhub/internal/domain/user"
	"github.com/hcsem/communityhub/internal/repo/postgres"
	"github.com/hcsem/communityhub/internal/security"
)

// MinPasswordLength applies to every path that installs a new password.
const MinPasswordLength = 8

type passwordUserStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type rotationStore interface {
	RotatePassword(ctx context.Context, userID, newHash string) error
	IssueResetToken(ctx context.Context, t resettoken.ResetToken) error
	RedeemAndRotate(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (string, error)
}

// IssuedReset is returned exactly once per issued token; the plaintext is
// never stored and cannot be recovered afterwards.
type IssuedReset struct {
	Token     string
	ExpiresAt time.Time
	User      user.User
}

// PasswordService owns the three ways a password changes hands: a logged-in
// change, a forced rotation at login time, and a reset-token redemption.
// All of them revoke every live session for the account.
type PasswordService struct {
	users    passwordUserStore
	store    rotationStore
	tokens   *auth.Manager
	resetTTL time.Duration
	audit    *audit.Recorder
	log      *slog.Logger
	now      func() time.Time
}

func NewPasswordService(users passwordUserStore, store rotationStore, tokens *auth.Manager, resetTTL time.Duration, rec *audit.Recorder, log *slog.Logger) *PasswordService {
	return &PasswordService{
		users:    users,
		store:    store,
		tokens:   tokens,
		resetTTL: resetTTL,
		audit:    rec,
		log:      log,
		now:      time.Now,
	}
}

func validateNewPassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return ErrValidation
	}
	return nil
}

// ChangePassword rotates the password of a logged-in user after re-checking
// the current one.
func (s *PasswordService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, ip string) error {
	u, err := s.users.GetByID(ctx, userID)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := security.CheckPassword(u.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}

	if err := validateNewPassword(newPassword); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)

	if err != nil {
		return err
	}

	if err := s.store.RotatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	s.audit.Record(ctx, &u.ID, auditlog.ActionPasswordChanged, map[string]any{"forced": false}, ip)

	return nil
}

// CompleteForcedChange consumes a password-change token handed out at login
// for accounts flagged for rotation. No session is opened; the user signs in
// again with the new password.
func (s *PasswordService) CompleteForcedChange(ctx context.Context, changeToken, newPassword, ip string) error {
	claims, err := s.tokens.VerifyPasswordChangeToken(changeToken)

	if err != nil {
		return ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, claims.UserID)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	if err := validateNewPassword(newPassword); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)

	if err != nil {
		return err
	}

	if err := s.store.RotatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	s.audit.Record(ctx, &u.ID, auditlog.ActionPasswordChanged, map[string]any{"forced": true}, ip)

	return nil
}

// IssueToken mints a single-use reset token for the target user. Any earlier
// unconsumed token dies in the same transaction, so at most one token is
// live per account.
func (s *PasswordService) IssueToken(ctx context.Context, targetUserID string, actorID *string, ip string) (IssuedReset, error) {
	u, err := s.users.GetByID(ctx, targetUserID)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return IssuedReset{}, ErrNotFound
		}
		return IssuedReset{}, err
	}

	plain, digest, err := security.NewResetToken()

	if err != nil {
		return IssuedReset{}, err
	}

	t := resettoken.New(u.ID, digest, s.resetTTL)

	if err := s.store.IssueResetToken(ctx, t); err != nil {
		return IssuedReset{}, err
	}

	s.audit.Record(ctx, actorID, auditlog.ActionResetIssued, map[string]any{"target_user_id": u.ID, "expires_at": t.ExpiresAt}, ip)

	return IssuedReset{Token: plain, ExpiresAt: t.ExpiresAt, User: u}, nil
}

// RedeemToken trades a valid reset token for a new password. The token is
// consumed whether or not it is the account's latest; only an unconsumed,
// unexpired token passes.
func (s *PasswordService) RedeemToken(ctx context.Context, plainToken, newPassword, ip string) error {
	if err := validateNewPassword(newPassword); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)

	if err != nil {
		return err
	}

	userID, err := s.store.RedeemAndRotate(ctx, security.HashToken(plainToken), hash, s.now().UTC())

	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrResetTokenNotFound):
			return ErrInvalidToken
		case errors.Is(err, postgres.ErrResetTokenExpired):
			return ErrTokenExpired
		}
		return err
	}

	s.audit.Record(ctx, &userID, auditlog.ActionResetRedeemed, nil, ip)

	return nil
}
