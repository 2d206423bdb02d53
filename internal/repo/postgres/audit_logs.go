package postgres

import (
	"context"

	"github.com/hcsem/communityhub/internal/domain/auditlog"
	"github.com/hcsem/communityhub/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditLogsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAuditLogsRepo(pool *pgxpool.Pool, prom *observability.Prom) *AuditLogsRepo {
	return &AuditLogsRepo{pool: pool, prom: prom}
}

func (r *AuditLogsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *AuditLogsRepo) Create(ctx context.Context, e auditlog.Entry) error {
	op := "audit_logs.create"

	return r.observe(op, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO audit_logs (id, actor_id, action, details, ip_address, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			e.ID, e.ActorID, e.Action, e.Details, e.IPAddress, e.CreatedAt,
		)
		return err
	})
}

func (r *AuditLogsRepo) List(ctx context.Context, filter auditlog.ListFilter) ([]auditlog.Entry, int, error) {
	var out []auditlog.Entry
	var total int

	op := "audit_logs.list"

	err := r.observe(op, func() error {
		limit := filter.Limit
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		rows, err := r.pool.Query(ctx,
			`SELECT id, actor_id, action, details, ip_address, created_at,
				COUNT(*) OVER() AS total
			FROM audit_logs
			WHERE ($1::text IS NULL OR actor_id = $1)
			  AND ($2::text IS NULL OR action = $2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3 OFFSET $4`,
			filter.ActorID, filter.Action, limit, filter.Offset,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var e auditlog.Entry

			err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Details, &e.IPAddress, &e.CreatedAt, &total)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})

	return out, total, err
}
