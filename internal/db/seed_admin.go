package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hcsem/communityhub/internal/config"
	"github.com/hcsem/communityhub/internal/domain/role"
	"github.com/hcsem/communityhub/internal/security"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureAdmin makes sure an Admin super role exists and, when credentials
// are configured, a user holding it. Both inserts are idempotent so every
// instance can run this at startup.
func EnsureAdmin(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	roleID, err := ensureAdminRole(ctx, pool)

	if err != nil {
		return err
	}

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	// check if the user exists

	var dummy string

	err = pool.QueryRow(ctx, `SELECT id FROM users WHERE lower(email) = lower($1)`, cfg.AdminEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, full_name, role_id, is_active,
			must_change_password, failed_login_attempts, account_locked, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,TRUE,FALSE,0,FALSE,$6,$6)`,
		uuid.NewString(), cfg.AdminEmail, hash, cfg.AdminName, roleID, now,
	)

	return err
}

func ensureAdminRole(ctx context.Context, pool *pgxpool.Pool) (string, error) {
	var id string

	err := pool.QueryRow(ctx, `SELECT id FROM roles WHERE is_super_role = TRUE ORDER BY created_at LIMIT 1`).Scan(&id)

	if err == nil {
		return id, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	now := time.Now().UTC()
	id = uuid.NewString()

	_, err = pool.Exec(ctx,
		`INSERT INTO roles (id, name, description, permissions, is_super_role, created_at, updated_at)
		VALUES ($1,$2,$3,$4,TRUE,$5,$5)`,
		id, "Admin", "Full access to every admin surface", role.All, now,
	)

	if err != nil {
		return "", err
	}

	return id, nil
}
