package event

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	CoverImage  string    `json:"coverImage,omitempty"`
	Gallery     []string  `json:"gallery,omitempty"`
	IsHidden    bool      `json:"isHidden"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateRequest struct {
	Title       string    `json:"title" binding:"required"`
	Slug        string    `json:"slug" binding:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" binding:"required"`
	Location    string    `json:"location"`
	CoverImage  string    `json:"coverImage"`
	Gallery     []string  `json:"gallery"`
	IsHidden    bool      `json:"isHidden"`
}

type UpdateRequest struct {
	Title       *string    `json:"title"`
	Slug        *string    `json:"slug"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location"`
	CoverImage  *string    `json:"coverImage"`
	Gallery     []string   `json:"gallery"`
	IsHidden    *bool      `json:"isHidden"`
}

type ListFilter struct {
	IncludeHidden bool
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

func NewFromCreateRequest(req CreateRequest) Event {
	now := time.Now().UTC()

	return Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		CoverImage:  req.CoverImage,
		Gallery:     req.Gallery,
		IsHidden:    req.IsHidden,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
