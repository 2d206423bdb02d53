package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hcsem/communityhub/internal/domain/event"
	"github.com/hcsem/communityhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrSlugTaken     = errors.New("slug already used")
)

type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{pool: pool, prom: prom}
}

func (r *EventsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const eventColumns = `id, title, slug, description, date, location, cover_image, gallery, is_hidden, created_at, updated_at`

func scanEvent(row pgx.Row) (event.Event, error) {
	var e event.Event

	err := row.Scan(
		&e.ID, &e.Title, &e.Slug, &e.Description, &e.Date, &e.Location,
		&e.CoverImage, &e.Gallery, &e.IsHidden, &e.CreatedAt, &e.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, ErrEventNotFound
		}
		return event.Event{}, err
	}
	return e, nil
}

func (r *EventsRepo) Create(ctx context.Context, req event.CreateRequest) (event.Event, error) {
	e := event.NewFromCreateRequest(req)

	op := "events.create"

	err := r.observe(op, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO events (id, title, slug, description, date, location, cover_image, gallery, is_hidden, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			e.ID, e.Title, e.Slug, e.Description, e.Date, e.Location, e.CoverImage, e.Gallery, e.IsHidden, e.CreatedAt, e.UpdatedAt,
		)

		if err != nil && IsUniqueViolation(err) {
			return ErrSlugTaken
		}
		return err
	})

	if err != nil {
		return event.Event{}, err
	}

	return e, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	var e event.Event
	var err error

	op := "events.get_by_id"

	err = r.observe(op, func() error {
		e, err = scanEvent(r.pool.QueryRow(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
		return err
	})

	return e, err
}

func (r *EventsRepo) GetBySlug(ctx context.Context, slug string) (event.Event, error) {
	var e event.Event
	var err error

	op := "events.get_by_slug"

	err = r.observe(op, func() error {
		e, err = scanEvent(r.pool.QueryRow(ctx,
			`SELECT `+eventColumns+` FROM events WHERE slug = $1`, slug))
		return err
	})

	return e, err
}

func (r *EventsRepo) List(ctx context.Context, filter event.ListFilter) ([]event.Event, int, error) {
	var out []event.Event
	var total int

	op := "events.list"

	err := r.observe(op, func() error {
		baseQuery := `SELECT ` + eventColumns + `, COUNT(*) OVER() AS total FROM events`

		var conds []string
		var args []interface{}

		argsPosition := 1

		if !filter.IncludeHidden {
			conds = append(conds, "is_hidden = FALSE")
		}

		if filter.From != nil {
			conds = append(conds, fmt.Sprintf("date >= $%d", argsPosition))
			args = append(args, *filter.From)
			argsPosition++
		}

		if filter.To != nil {
			conds = append(conds, fmt.Sprintf("date <= $%d", argsPosition))
			args = append(args, *filter.To)
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

		// stable ordering for pagination
		query += fmt.Sprintf(" ORDER BY date ASC, id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)
		args = append(args, limit, filter.Offset)

		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var e event.Event

			err := rows.Scan(
				&e.ID, &e.Title, &e.Slug, &e.Description, &e.Date, &e.Location,
				&e.CoverImage, &e.Gallery, &e.IsHidden, &e.CreatedAt, &e.UpdatedAt, &total,
			)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})

	return out, total, err
}

func (r *EventsRepo) Update(ctx context.Context, id string, req event.UpdateRequest) (event.Event, error) {
	var e event.Event
	var err error

	op := "events.update"

	err = r.observe(op, func() error {
		e, err = scanEvent(r.pool.QueryRow(ctx,
			`UPDATE events SET
				title = COALESCE($2, title),
				slug = COALESCE($3, slug),
				description = COALESCE($4, description),
				date = COALESCE($5, date),
				location = COALESCE($6, location),
				cover_image = COALESCE($7, cover_image),
				gallery = COALESCE($8, gallery),
				is_hidden = COALESCE($9, is_hidden),
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+eventColumns,
			id, req.Title, req.Slug, req.Description, req.Date, req.Location,
			req.CoverImage, req.Gallery, req.IsHidden))

		if err != nil && IsUniqueViolation(err) {
			return ErrSlugTaken
		}
		return err
	})

	return e, err
}

func (r *EventsRepo) Delete(ctx context.Context, id string) error {
	op := "events.delete"

	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrEventNotFound
		}
		return nil
	})
}
