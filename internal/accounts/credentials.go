package accounts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hcsem/communityhub/internal/audit"
	"github.com/hcsem/communityhub/internal/domain/auditlog"
	"github.com/hcsem/communityhub/internal/domain/user"
	"github.com/hcsem/communityhub/internal/repo/postgres"
	"github.com/hcsem/communityhub/internal/security"
)

type credentialUserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	RecordFailedAttempt(ctx context.Context, id string, threshold int, lockFor time.Duration) (attempts int, locked bool, err error)
	RecordSuccessfulLogin(ctx context.Context, id string) error
	ClearExpiredLock(ctx context.Context, id string) (bool, error)
}

// CredentialStore verifies email/password pairs and drives the failed-attempt
// counter. Every rejection path runs a bcrypt comparison so unknown emails,
// locked accounts and wrong passwords cost the same wall-clock time, and
// unknown email and wrong password share one error value.
type CredentialStore struct {
	users credentialUserStore
	guard LockoutGuard
	audit *audit.Recorder
	log   *slog.Logger
	now   func() time.Time
}

func NewCredentialStore(users credentialUserStore, guard LockoutGuard, rec *audit.Recorder, log *slog.Logger) *CredentialStore {
	return &CredentialStore{
		users: users,
		guard: guard,
		audit: rec,
		log:   log,
		now:   time.Now,
	}
}

// Verify resolves the email and checks the password against the account
// state. On success the attempt counter is reset and last login stamped.
// Callers decide what to do with a returned user whose MustChangePassword
// flag is set; verification itself treats it as a success.
func (s *CredentialStore) Verify(ctx context.Context, email, password, ip string) (user.User, error) {
	u, err := s.users.GetByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			security.DummyCheckPassword(password)
			s.audit.Record(ctx, nil, auditlog.ActionLoginFailed, map[string]any{"email": email, "reason": "unknown_email"}, ip)
			return user.User{}, ErrInvalidCredentials
		}
		return user.User{}, err
	}

	now := s.now().UTC()

	if s.guard.LockExpired(u, now) {
		cleared, err := s.users.ClearExpiredLock(ctx, u.ID)

		if err != nil {
			return user.User{}, err
		}

		if cleared {
			u.AccountLocked = false
			u.FailedLoginAttempts = 0
			u.LockoutExpiresAt = nil
		}
	}

	if u.AccountLocked {
		security.DummyCheckPassword(password)
		s.audit.Record(ctx, &u.ID, auditlog.ActionLoginFailed, map[string]any{"email": email, "reason": "account_locked"}, ip)
		return user.User{}, ErrAccountLocked
	}

	if !u.IsActive {
		security.DummyCheckPassword(password)
		s.audit.Record(ctx, &u.ID, auditlog.ActionLoginFailed, map[string]any{"email": email, "reason": "inactive"}, ip)
		return user.User{}, ErrInvalidCredentials
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		attempts, locked, err := s.users.RecordFailedAttempt(ctx, u.ID, s.guard.Threshold, s.guard.LockFor)

		if err != nil {
			return user.User{}, err
		}

		s.audit.Record(ctx, &u.ID, auditlog.ActionLoginFailed, map[string]any{"email": email, "reason": "bad_password", "attempts": attempts}, ip)

		if locked {
			s.audit.Record(ctx, &u.ID, auditlog.ActionAccountLocked, map[string]any{"email": email, "attempts": attempts}, ip)
			s.log.Warn("account locked after repeated failures", "user_id", u.ID, "attempts", attempts)
			return user.User{}, ErrAccountLocked
		}

		return user.User{}, ErrInvalidCredentials
	}

	if err := s.users.RecordSuccessfulLogin(ctx, u.ID); err != nil {
		return user.User{}, err
	}

	u.FailedLoginAttempts = 0
	u.LastLogin = &now

	s.audit.Record(ctx, &u.ID, auditlog.ActionLoginSuccess, map[string]any{"email": email}, ip)

	return u, nil
}
