package postgres

import (
	"context"
	"errors"

	"github.com/hcsem/communityhub/internal/domain/resettoken"
	"github.com/hcsem/communityhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrResetTokenNotFound = errors.New("reset token not found")

type ResetTokensRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewResetTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *ResetTokensRepo {
	return &ResetTokensRepo{pool: pool, prom: prom}
}

func (r *ResetTokensRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *ResetTokensRepo) Create(ctx context.Context, tx pgx.Tx, t resettoken.ResetToken) error {
	op := "reset_tokens.create"

	return r.observe(op, func() error {
		_, err := tx.Exec(ctx,
			`INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, consumed_at, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.ConsumedAt, t.CreatedAt,
		)
		return err
	})
}

// GetByHashForUpdate locks the row so two concurrent redemptions serialize;
// the loser then sees consumed_at set and fails.
func (r *ResetTokensRepo) GetByHashForUpdate(ctx context.Context, tx pgx.Tx, tokenHash string) (resettoken.ResetToken, error) {
	var t resettoken.ResetToken

	op := "reset_tokens.get_by_hash_for_update"

	err := r.observe(op, func() error {
		err := tx.QueryRow(ctx,
			`SELECT id, user_id, token_hash, expires_at, consumed_at, created_at
			FROM password_reset_tokens
			WHERE token_hash = $1
			FOR UPDATE`, tokenHash,
		).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.ConsumedAt, &t.CreatedAt)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrResetTokenNotFound
			}
			return err
		}
		return nil
	})

	return t, err
}

// MarkConsumed is conditional on the token still being unconsumed, so it
// can only ever succeed once per token.
func (r *ResetTokensRepo) MarkConsumed(ctx context.Context, tx pgx.Tx, id string) error {
	op := "reset_tokens.mark_consumed"

	return r.observe(op, func() error {
		tag, err := tx.Exec(ctx,
			`UPDATE password_reset_tokens
			SET consumed_at = NOW()
			WHERE id = $1 AND consumed_at IS NULL`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrResetTokenNotFound
		}
		return nil
	})
}

// ConsumeAllForUser invalidates any outstanding unconsumed tokens, keeping
// the at-most-one-live-token invariant when a replacement is issued or the
// password changes through another path.
func (r *ResetTokensRepo) ConsumeAllForUser(ctx context.Context, tx pgx.Tx, userID string) error {
	op := "reset_tokens.consume_all_for_user"

	return r.observe(op, func() error {
		q := `UPDATE password_reset_tokens
			SET consumed_at = NOW()
			WHERE user_id = $1 AND consumed_at IS NULL`

		var err error
		if tx != nil {
			_, err = tx.Exec(ctx, q, userID)
		} else {
			_, err = r.pool.Exec(ctx, q, userID)
		}
		return err
	})
}

func (r *ResetTokensRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}
