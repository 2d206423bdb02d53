package postgres

import (
	"context"
	"errors"

	"github.com/hcsem/communityhub/internal/domain/settings"
	"github.com/hcsem/communityhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Site settings live in a single row keyed by a fixed id, created on first
// write.
const settingsRowID = 1

type SettingsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewSettingsRepo(pool *pgxpool.Pool, prom *observability.Prom) *SettingsRepo {
	return &SettingsRepo{pool: pool, prom: prom}
}

func (r *SettingsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *SettingsRepo) Get(ctx context.Context) (settings.SiteSettings, error) {
	var s settings.SiteSettings

	op := "settings.get"

	err := r.observe(op, func() error {
		err := r.pool.QueryRow(ctx,
			`SELECT hero_title, hero_subtitle, hero_image, logo_url, contact_email, contact_phone, pages, updated_by, updated_at
			FROM site_settings WHERE id = $1`, settingsRowID,
		).Scan(
			&s.HeroTitle, &s.HeroSubtitle, &s.HeroImage, &s.LogoURL,
			&s.ContactEmail, &s.ContactPhone, &s.Pages, &s.UpdatedBy, &s.UpdatedAt,
		)

		if errors.Is(err, pgx.ErrNoRows) {
			// empty defaults until first admin save
			s = settings.SiteSettings{}
			return nil
		}
		return err
	})

	return s, err
}

func (r *SettingsRepo) Update(ctx context.Context, req settings.UpdateRequest, updatedBy string) (settings.SiteSettings, error) {
	var s settings.SiteSettings

	op := "settings.update"

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO site_settings (id, hero_title, hero_subtitle, hero_image, logo_url, contact_email, contact_phone, pages, updated_by, updated_at)
			VALUES ($1, COALESCE($2,''), COALESCE($3,''), COALESCE($4,''), COALESCE($5,''), COALESCE($6,''), COALESCE($7,''), COALESCE($8,'{}'::jsonb), $9, NOW())
			ON CONFLICT (id) DO UPDATE SET
				hero_title = COALESCE($2, site_settings.hero_title),
				hero_subtitle = COALESCE($3, site_settings.hero_subtitle),
				hero_image = COALESCE($4, site_settings.hero_image),
				logo_url = COALESCE($5, site_settings.logo_url),
				contact_email = COALESCE($6, site_settings.contact_email),
				contact_phone = COALESCE($7, site_settings.contact_phone),
				pages = COALESCE($8, site_settings.pages),
				updated_by = $9,
				updated_at = NOW()
			RETURNING hero_title, hero_subtitle, hero_image, logo_url, contact_email, contact_phone, pages, updated_by, updated_at`,
			settingsRowID, req.HeroTitle, req.HeroSubtitle, req.HeroImage,
			req.LogoURL, req.ContactEmail, req.ContactPhone, req.Pages, updatedBy,
		).Scan(
			&s.HeroTitle, &s.HeroSubtitle, &s.HeroImage, &s.LogoURL,
			&s.ContactEmail, &s.ContactPhone, &s.Pages, &s.UpdatedBy, &s.UpdatedAt,
		)
	})

	return s, err
}
