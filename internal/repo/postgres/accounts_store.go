package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/hcsem/communityhub/internal/domain/resettoken"
	"github.com/hcsem/communityhub/internal/security"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrResetTokenExpired = errors.New("reset token expired")

// AccountsStore bundles the account repos behind the multi-step mutations
// that must be atomic: password rotation and reset-token issue/redeem.
// Partial writes are never observable; either the whole unit commits or
// nothing does.
type AccountsStore struct {
	pool     *pgxpool.Pool
	Users    *UsersRepo
	Sessions *SessionsRepo
	Resets   *ResetTokensRepo
}

func NewAccountsStore(pool *pgxpool.Pool, users *UsersRepo, sessions *SessionsRepo, resets *ResetTokensRepo) *AccountsStore {
	return &AccountsStore{
		pool:     pool,
		Users:    users,
		Sessions: sessions,
		Resets:   resets,
	}
}

// RotatePassword installs the new hash, clears the forced-change flag,
// consumes any outstanding reset token and revokes every live session, all
// in one transaction.
func (s *AccountsStore) RotatePassword(ctx context.Context, userID, newHash string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})

	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.Users.UpdatePassword(ctx, tx, userID, newHash); err != nil {
		return err
	}

	if err := s.Resets.ConsumeAllForUser(ctx, tx, userID); err != nil {
		return err
	}

	if err := s.Sessions.RevokeAllForUser(ctx, tx, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// IssueResetToken persists a new token digest, consuming any unconsumed
// predecessor in the same transaction so at most one live token exists per
// user.
func (s *AccountsStore) IssueResetToken(ctx context.Context, t resettoken.ResetToken) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})

	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.Resets.ConsumeAllForUser(ctx, tx, t.UserID); err != nil {
		return err
	}

	if err := s.Resets.Create(ctx, tx, t); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// RedeemAndRotate is the whole redemption as one atomic unit: row-lock the
// token, re-check usability, mark it consumed and rotate the password.
// Under concurrent redemptions of the same token the row lock serializes
// them and the conditional consume lets exactly one through.
func (s *AccountsStore) RedeemAndRotate(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (string, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})

	if err != nil {
		return "", err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	t, err := s.Resets.GetByHashForUpdate(ctx, tx, tokenHash)

	if err != nil {
		return "", err
	}

	// lookup was by digest; compare again in constant time
	if !security.TokenHashEqual(t.TokenHash, tokenHash) {
		return "", ErrResetTokenNotFound
	}

	if t.ConsumedAt != nil {
		return "", ErrResetTokenNotFound
	}

	if t.Expired(now) {
		return "", ErrResetTokenExpired
	}

	if err := s.Resets.MarkConsumed(ctx, tx, t.ID); err != nil {
		return "", err
	}

	if err := s.Users.UpdatePassword(ctx, tx, t.UserID, newPasswordHash); err != nil {
		return "", err
	}

	if err := s.Sessions.RevokeAllForUser(ctx, tx, t.UserID); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}

	return t.UserID, nil
}
