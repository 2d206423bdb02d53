package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hcsem/communityhub/internal/domain/blog"
	"github.com/hcsem/communityhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrBlogNotFound = errors.New("blog not found")

type BlogsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewBlogsRepo(pool *pgxpool.Pool, prom *observability.Prom) *BlogsRepo {
	return &BlogsRepo{pool: pool, prom: prom}
}

func (r *BlogsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const blogColumns = `id, title, slug, summary, cover_image, content, tags, author_id, is_hidden, published_at, created_at, updated_at`

func scanBlog(row pgx.Row) (blog.Blog, error) {
	var b blog.Blog

	err := row.Scan(
		&b.ID, &b.Title, &b.Slug, &b.Summary, &b.CoverImage, &b.Content,
		&b.Tags, &b.AuthorID, &b.IsHidden, &b.PublishedAt, &b.CreatedAt, &b.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return blog.Blog{}, ErrBlogNotFound
		}
		return blog.Blog{}, err
	}
	return b, nil
}

func (r *BlogsRepo) Create(ctx context.Context, b blog.Blog) error {
	op := "blogs.create"

	return r.observe(op, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO blogs (id, title, slug, summary, cover_image, content, tags, author_id, is_hidden, published_at, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			b.ID, b.Title, b.Slug, b.Summary, b.CoverImage, b.Content, b.Tags,
			b.AuthorID, b.IsHidden, b.PublishedAt, b.CreatedAt, b.UpdatedAt,
		)

		if err != nil && IsUniqueViolation(err) {
			return ErrSlugTaken
		}
		return err
	})
}

func (r *BlogsRepo) GetBySlug(ctx context.Context, slug string) (blog.Blog, error) {
	var b blog.Blog
	var err error

	op := "blogs.get_by_slug"

	err = r.observe(op, func() error {
		b, err = scanBlog(r.pool.QueryRow(ctx,
			`SELECT `+blogColumns+` FROM blogs WHERE slug = $1`, slug))
		return err
	})

	return b, err
}

func (r *BlogsRepo) GetByID(ctx context.Context, id string) (blog.Blog, error) {
	var b blog.Blog
	var err error

	op := "blogs.get_by_id"

	err = r.observe(op, func() error {
		b, err = scanBlog(r.pool.QueryRow(ctx,
			`SELECT `+blogColumns+` FROM blogs WHERE id = $1`, id))
		return err
	})

	return b, err
}

func (r *BlogsRepo) List(ctx context.Context, filter blog.ListFilter) ([]blog.Blog, int, error) {
	var out []blog.Blog
	var total int

	op := "blogs.list"

	err := r.observe(op, func() error {
		baseQuery := `SELECT ` + blogColumns + `, COUNT(*) OVER() AS total FROM blogs`

		var conds []string
		var args []interface{}

		argsPosition := 1

		if !filter.IncludeHidden {
			conds = append(conds, "is_hidden = FALSE")
		}

		if filter.Tag != nil {
			conds = append(conds, fmt.Sprintf("$%d = ANY(tags)", argsPosition))
			args = append(args, *filter.Tag)
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

		query += fmt.Sprintf(" ORDER BY COALESCE(published_at, created_at) DESC, id DESC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)
		args = append(args, limit, filter.Offset)

		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var b blog.Blog

			err := rows.Scan(
				&b.ID, &b.Title, &b.Slug, &b.Summary, &b.CoverImage, &b.Content,
				&b.Tags, &b.AuthorID, &b.IsHidden, &b.PublishedAt, &b.CreatedAt, &b.UpdatedAt, &total,
			)
			if err != nil {
				return err
			}
			out = append(out, b)
		}
		return rows.Err()
	})

	return out, total, err
}

func (r *BlogsRepo) Update(ctx context.Context, id string, req blog.UpdateRequest) (blog.Blog, error) {
	var b blog.Blog
	var err error

	op := "blogs.update"

	err = r.observe(op, func() error {
		// un-hiding a draft stamps published_at on first publish
		var publishAt *time.Time
		if req.IsHidden != nil && !*req.IsHidden {
			now := time.Now().UTC()
			publishAt = &now
		}

		b, err = scanBlog(r.pool.QueryRow(ctx,
			`UPDATE blogs SET
				title = COALESCE($2, title),
				slug = COALESCE($3, slug),
				summary = COALESCE($4, summary),
				cover_image = COALESCE($5, cover_image),
				content = COALESCE($6, content),
				tags = COALESCE($7, tags),
				is_hidden = COALESCE($8, is_hidden),
				published_at = COALESCE(published_at, $9),
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+blogColumns,
			id, req.Title, req.Slug, req.Summary, req.CoverImage, req.Content,
			req.Tags, req.IsHidden, publishAt))

		if err != nil && IsUniqueViolation(err) {
			return ErrSlugTaken
		}
		return err
	})

	return b, err
}

func (r *BlogsRepo) Delete(ctx context.Context, id string) error {
	op := "blogs.delete"

	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM blogs WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrBlogNotFound
		}
		return nil
	})
}
