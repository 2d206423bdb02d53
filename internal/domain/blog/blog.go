package blog

import (
	"time"

	"github.com/google/uuid"
)

type Blog struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Summary     string     `json:"summary"`
	CoverImage  string     `json:"coverImage,omitempty"`
	Content     string     `json:"content"`
	Tags        []string   `json:"tags,omitempty"`
	AuthorID    *string    `json:"authorId,omitempty"`
	IsHidden    bool       `json:"isHidden"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type CreateRequest struct {
	Title      string   `json:"title" binding:"required"`
	Slug       string   `json:"slug" binding:"required"`
	Summary    string   `json:"summary"`
	CoverImage string   `json:"coverImage"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	IsHidden   *bool    `json:"isHidden"`
}

type UpdateRequest struct {
	Title      *string  `json:"title"`
	Slug       *string  `json:"slug"`
	Summary    *string  `json:"summary"`
	CoverImage *string  `json:"coverImage"`
	Content    *string  `json:"content"`
	Tags       []string `json:"tags"`
	IsHidden   *bool    `json:"isHidden"`
}

type ListFilter struct {
	IncludeHidden bool
	Tag           *string
	Limit         int
	Offset        int
}

func NewFromCreateRequest(req CreateRequest, authorID *string) Blog {
	now := time.Now().UTC()

	// new posts start as drafts unless the request says otherwise
	hidden := true
	if req.IsHidden != nil {
		hidden = *req.IsHidden
	}

	b := Blog{
		ID:         uuid.NewString(),
		Title:      req.Title,
		Slug:       req.Slug,
		Summary:    req.Summary,
		CoverImage: req.CoverImage,
		Content:    req.Content,
		Tags:       req.Tags,
		AuthorID:   authorID,
		IsHidden:   hidden,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if !hidden {
		b.PublishedAt = &now
	}

	return b
}
