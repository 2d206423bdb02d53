package settings

import (
	"encoding/json"
	"time"
)

// SiteSettings is the single document driving the public site chrome. The
// page-content payload is carried as raw JSON: the admin UI owns its shape,
// the backend only versions and stores it.
type SiteSettings struct {
	HeroTitle    string          `json:"heroTitle"`
	HeroSubtitle string          `json:"heroSubtitle"`
	HeroImage    string          `json:"heroImage"`
	LogoURL      string          `json:"logoUrl,omitempty"`
	ContactEmail string          `json:"contactEmail,omitempty"`
	ContactPhone string          `json:"contactPhone,omitempty"`
	Pages        json.RawMessage `json:"pages,omitempty"`
	UpdatedBy    *string         `json:"updatedBy,omitempty"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type UpdateRequest struct {
	HeroTitle    *string         `json:"heroTitle"`
	HeroSubtitle *string         `json:"heroSubtitle"`
	HeroImage    *string         `json:"heroImage"`
	LogoURL      *string         `json:"logoUrl"`
	ContactEmail *string         `json:"contactEmail" binding:"omitempty,email"`
	ContactPhone *string         `json:"contactPhone"`
	Pages        json.RawMessage `json:"pages"`
}
