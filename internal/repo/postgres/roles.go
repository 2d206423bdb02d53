package postgres

import (
	"context"
	"errors"

	"github.com/hcsem/communityhub/internal/domain/role"
	"github.com/hcsem/communityhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrRoleNotFound  = errors.New("role not found")
	ErrRoleNameTaken = errors.New("role name already used")
)

type RolesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRolesRepo(pool *pgxpool.Pool, prom *observability.Prom) *RolesRepo {
	return &RolesRepo{pool: pool, prom: prom}
}

func (r *RolesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const roleColumns = `id, name, description, permissions, is_super_role, created_at, updated_at`

func scanRole(row pgx.Row) (role.Role, error) {
	var ro role.Role

	err := row.Scan(
		&ro.ID,
		&ro.Name,
		&ro.Description,
		&ro.Permissions,
		&ro.IsSuperRole,
		&ro.CreatedAt,
		&ro.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return role.Role{}, ErrRoleNotFound
		}
		return role.Role{}, err
	}
	return ro, nil
}

func (r *RolesRepo) Create(ctx context.Context, ro role.Role) error {
	op := "roles.create"

	return r.observe(op, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO roles (id, name, description, permissions, is_super_role, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			ro.ID, ro.Name, ro.Description, ro.Permissions, ro.IsSuperRole, ro.CreatedAt, ro.UpdatedAt,
		)

		if err != nil && IsUniqueViolation(err) {
			return ErrRoleNameTaken
		}

		return err
	})
}

func (r *RolesRepo) GetByID(ctx context.Context, id string) (role.Role, error) {
	var ro role.Role
	var err error

	op := "roles.get_by_id"

	err = r.observe(op, func() error {
		ro, err = scanRole(r.pool.QueryRow(ctx,
			`SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
		return err
	})

	return ro, err
}

func (r *RolesRepo) GetByName(ctx context.Context, name string) (role.Role, error) {
	var ro role.Role
	var err error

	op := "roles.get_by_name"

	err = r.observe(op, func() error {
		ro, err = scanRole(r.pool.QueryRow(ctx,
			`SELECT `+roleColumns+` FROM roles WHERE lower(name) = lower($1)`, name))
		return err
	})

	return ro, err
}

func (r *RolesRepo) List(ctx context.Context) ([]role.Role, error) {
	var out []role.Role

	op := "roles.list"

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+roleColumns+` FROM roles ORDER BY name ASC`)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			ro, err := scanRole(rows)
			if err != nil {
				return err
			}
			out = append(out, ro)
		}
		return rows.Err()
	})

	return out, err
}

func (r *RolesRepo) Update(ctx context.Context, ro role.Role) error {
	op := "roles.update"

	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE roles SET
				name = $2,
				description = $3,
				permissions = $4,
				is_super_role = $5,
				updated_at = NOW()
			WHERE id = $1`,
			ro.ID, ro.Name, ro.Description, ro.Permissions, ro.IsSuperRole,
		)

		if err != nil {
			if IsUniqueViolation(err) {
				return ErrRoleNameTaken
			}
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrRoleNotFound
		}
		return nil
	})
}

func (r *RolesRepo) Delete(ctx context.Context, id string) error {
	op := "roles.delete"

	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrRoleNotFound
		}
		return nil
	})
}
