package postgres

import (
	"context"
	"errors"

	"github.com/hcsem/communityhub/internal/domain/session"
	"github.com/hcsem/communityhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewSessionsRepo(pool *pgxpool.Pool, prom *observability.Prom) *SessionsRepo {
	return &SessionsRepo{pool: pool, prom: prom}
}

func (r *SessionsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *SessionsRepo) Create(ctx context.Context, s session.Session) error {
	op := "sessions.create"

	return r.observe(op, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO sessions (id, user_id, token_hash, expires_at, revoked_at, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			s.ID, s.UserID, s.TokenHash, s.ExpiresAt, s.RevokedAt, s.CreatedAt,
		)
		return err
	})
}

func (r *SessionsRepo) Get(ctx context.Context, id string) (session.Session, error) {
	var s session.Session

	op := "sessions.get"

	err := r.observe(op, func() error {
		err := r.pool.QueryRow(ctx,
			`SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
			FROM sessions WHERE id = $1`, id,
		).Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.RevokedAt, &s.CreatedAt)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSessionNotFound
			}
			return err
		}
		return nil
	})

	return s, err
}

func (r *SessionsRepo) Revoke(ctx context.Context, id string) error {
	op := "sessions.revoke"

	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrSessionNotFound
		}
		return nil
	})
}

// RevokeAllForUser kills every live session, e.g. after a password change.
// Runs on the given tx when one is supplied.
func (r *SessionsRepo) RevokeAllForUser(ctx context.Context, tx pgx.Tx, userID string) error {
	op := "sessions.revoke_all_for_user"

	return r.observe(op, func() error {
		q := `UPDATE sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`

		var err error
		if tx != nil {
			_, err = tx.Exec(ctx, q, userID)
		} else {
			_, err = r.pool.Exec(ctx, q, userID)
		}
		return err
	})
}
