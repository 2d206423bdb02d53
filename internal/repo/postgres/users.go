package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/hcsem/communityhub/internal/domain/user"
	"github.com/hcsem/communityhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already used")
)

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const userColumns = `id, email, password_hash, full_name, role_id, is_active,
	must_change_password, failed_login_attempts, account_locked,
	lockout_expires_at, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.RoleID,
		&u.IsActive,
		&u.MustChangePassword,
		&u.FailedLoginAttempts,
		&u.AccountLocked,
		&u.LockoutExpiresAt,
		&u.LastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	op := "users.create"

	return r.observe(op, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, full_name, role_id, is_active,
				must_change_password, failed_login_attempts, account_locked, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			u.ID, u.Email, u.PasswordHash, u.FullName, u.RoleID, u.IsActive,
			u.MustChangePassword, u.FailedLoginAttempts, u.AccountLocked, u.CreatedAt, u.UpdatedAt,
		)

		if err != nil && IsUniqueViolation(err) {
			return ErrEmailAlreadyUsed
		}

		return err
	})
}

// GetByEmail matches case-insensitively; uniqueness is enforced the same
// way by an index on lower(email).
func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	var err error

	op := "users.get_by_email"

	err = r.observe(op, func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
		return err
	})

	return u, err
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	var err error

	op := "users.get_by_id"

	err = r.observe(op, func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	return u, err
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var out []user.User

	op := "users.list"

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})

	return out, err
}

func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error) {
	var u user.User
	var err error

	op := "users.update"

	err = r.observe(op, func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users SET
				full_name = COALESCE($2, full_name),
				role_id   = COALESCE($3, role_id),
				is_active = COALESCE($4, is_active),
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			id, req.FullName, req.RoleID, req.IsActive))
		return err
	})

	return u, err
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	op := "users.delete"

	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// RecordFailedAttempt bumps the counter and flips the lock in one statement,
// so concurrent wrong-password attempts cannot lose increments and the
// change is durable before the verify result is returned.
func (r *UsersRepo) RecordFailedAttempt(ctx context.Context, id string, threshold int, lockFor time.Duration) (attempts int, locked bool, err error) {
	op := "users.record_failed_attempt"

	err = r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE users SET
				failed_login_attempts = failed_login_attempts + 1,
				account_locked = account_locked OR (failed_login_attempts + 1 >= $2),
				lockout_expires_at = CASE
					WHEN NOT account_locked AND failed_login_attempts + 1 >= $2 THEN NOW() + $3
					ELSE lockout_expires_at
				END,
				updated_at = NOW()
			WHERE id = $1
			RETURNING failed_login_attempts, account_locked`,
			id, threshold, lockFor,
		).Scan(&attempts, &locked)
	})

	if errors.Is(err, pgx.ErrNoRows) {
		err = ErrUserNotFound
	}

	return attempts, locked, err
}

func (r *UsersRepo) RecordSuccessfulLogin(ctx context.Context, id string) error {
	op := "users.record_successful_login"

	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET
				failed_login_attempts = 0,
				last_login = NOW(),
				updated_at = NOW()
			WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// ClearExpiredLock unlocks lazily once a time-boxed lock has elapsed. The
// WHERE clause makes it a no-op for live locks, so it is safe to call on
// every verify. Reports whether the lock was cleared.
func (r *UsersRepo) ClearExpiredLock(ctx context.Context, id string) (bool, error) {
	var cleared bool

	op := "users.clear_expired_lock"

	err := r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET
				account_locked = FALSE,
				failed_login_attempts = 0,
				lockout_expires_at = NULL,
				updated_at = NOW()
			WHERE id = $1
			  AND account_locked
			  AND lockout_expires_at IS NOT NULL
			  AND lockout_expires_at <= NOW()`, id)

		if err != nil {
			return err
		}

		cleared = tag.RowsAffected() > 0
		return nil
	})

	return cleared, err
}

// SetLock is the explicit admin override. It does not touch the attempt
// counter; ResetFailedAttempts is its own action.
func (r *UsersRepo) SetLock(ctx context.Context, id string, locked bool, until *time.Time) error {
	op := "users.set_lock"

	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET
				account_locked = $2,
				lockout_expires_at = $3,
				updated_at = NOW()
			WHERE id = $1`, id, locked, until)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func (r *UsersRepo) ResetAttempts(ctx context.Context, id string) error {
	op := "users.reset_attempts"

	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET failed_login_attempts = 0, updated_at = NOW() WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func (r *UsersRepo) SetMustChangePassword(ctx context.Context, id string, value bool) error {
	op := "users.set_must_change_password"

	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET must_change_password = $2, updated_at = NOW() WHERE id = $1`, id, value)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// UpdatePassword rehashes in place and clears the forced-change flag.
// Runs on the given tx when one is supplied so token redemption can make
// the consume + rotate pair a single atomic unit.
func (r *UsersRepo) UpdatePassword(ctx context.Context, tx pgx.Tx, id string, passwordHash string) error {
	op := "users.update_password"

	return r.observe(op, func() error {
		q := `UPDATE users SET
			password_hash = $2,
			must_change_password = FALSE,
			updated_at = NOW()
		WHERE id = $1`

		var tag pgconn.CommandTag
		var err error

		if tx != nil {
			tag, err = tx.Exec(ctx, q, id, passwordHash)
		} else {
			tag, err = r.pool.Exec(ctx, q, id, passwordHash)
		}

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func (r *UsersRepo) CountByRole(ctx context.Context, roleID string) (int, error) {
	var n int

	op := "users.count_by_role"

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM users WHERE role_id = $1`, roleID).Scan(&n)
	})

	return n, err
}

func (r *UsersRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}
