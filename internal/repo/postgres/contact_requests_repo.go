package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hcsem/communityhub/internal/domain/contactrequest"
	"github.com/hcsem/communityhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrContactRequestNotFound = errors.New("contact request not found")

type ContactRequestsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewContactRequestsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ContactRequestsRepo {
	return &ContactRequestsRepo{pool: pool, prom: prom}
}

func (r *ContactRequestsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const contactColumns = `id, reason, first_name, last_name, email, phone, city, state, notes, status, read, is_deleted, created_at, updated_at`

func scanContactRequest(row pgx.Row) (contactrequest.ContactRequest, error) {
	var c contactrequest.ContactRequest

	err := row.Scan(
		&c.ID, &c.Reason, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.City, &c.State, &c.Notes, &c.Status, &c.Read, &c.IsDeleted,
		&c.CreatedAt, &c.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contactrequest.ContactRequest{}, ErrContactRequestNotFound
		}
		return contactrequest.ContactRequest{}, err
	}
	return c, nil
}

func (r *ContactRequestsRepo) Create(ctx context.Context, c contactrequest.ContactRequest) error {
	op := "contact_requests.create"

	return r.observe(op, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO contact_requests (id, reason, first_name, last_name, email, phone, city, state, notes, status, read, is_deleted, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			c.ID, c.Reason, c.FirstName, c.LastName, c.Email, c.Phone,
			c.City, c.State, c.Notes, c.Status, c.Read, c.IsDeleted,
			c.CreatedAt, c.UpdatedAt,
		)
		return err
	})
}

func (r *ContactRequestsRepo) GetByID(ctx context.Context, id string) (contactrequest.ContactRequest, error) {
	var c contactrequest.ContactRequest
	var err error

	op := "contact_requests.get_by_id"

	err = r.observe(op, func() error {
		c, err = scanContactRequest(r.pool.QueryRow(ctx,
			`SELECT `+contactColumns+` FROM contact_requests WHERE id = $1`, id))
		return err
	})

	return c, err
}

func (r *ContactRequestsRepo) List(ctx context.Context, filter contactrequest.ListFilter) ([]contactrequest.ContactRequest, int, error) {
	var out []contactrequest.ContactRequest
	var total int

	op := "contact_requests.list"

	err := r.observe(op, func() error {
		baseQuery := `SELECT ` + contactColumns + `, COUNT(*) OVER() AS total FROM contact_requests`

		var conds []string
		var args []interface{}

		argsPosition := 1

		if !filter.IncludeDeleted {
			conds = append(conds, "is_deleted = FALSE")
		}

		if filter.Status != nil {
			conds = append(conds, fmt.Sprintf("status = $%d", argsPosition))
			args = append(args, *filter.Status)
			argsPosition++
		}

		query := baseQuery

		if len(conds) > 0 {
			query += " WHERE " + strings.Join(conds, " AND ")
		}

		limit := filter.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)
		args = append(args, limit, filter.Offset)

		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var c contactrequest.ContactRequest

			err := rows.Scan(
				&c.ID, &c.Reason, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
				&c.City, &c.State, &c.Notes, &c.Status, &c.Read, &c.IsDeleted,
				&c.CreatedAt, &c.UpdatedAt, &total,
			)
			if err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})

	return out, total, err
}

func (r *ContactRequestsRepo) SetStatus(ctx context.Context, id string, status contactrequest.Status) error {
	op := "contact_requests.set_status"

	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE contact_requests SET status = $2, read = TRUE, updated_at = NOW() WHERE id = $1`,
			id, status)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrContactRequestNotFound
		}
		return nil
	})
}

// SetDeleted moves a request in or out of the trash; rows are only ever
// hard-deleted by retention tooling outside this service.
func (r *ContactRequestsRepo) SetDeleted(ctx context.Context, id string, deleted bool) error {
	op := "contact_requests.set_deleted"

	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE contact_requests SET is_deleted = $2, updated_at = NOW() WHERE id = $1`,
			id, deleted)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrContactRequestNotFound
		}
		return nil
	})
}
