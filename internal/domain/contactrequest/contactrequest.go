package contactrequest

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusReviewed Status = "reviewed"
	StatusArchived Status = "archived"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusReviewed, StatusArchived:
		return true
	}
	return false
}

type ContactRequest struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Notes     string    `json:"notes,omitempty"`
	Status    Status    `json:"status"`
	Read      bool      `json:"read"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateRequest struct {
	Reason    string `json:"reason" binding:"required"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone"`
	City      string `json:"city" binding:"required"`
	State     string `json:"state" binding:"required"`
	Notes     string `json:"notes"`
}

type ListFilter struct {
	Status         *Status
	IncludeDeleted bool
	Limit          int
	Offset         int
}

func NewFromCreateRequest(req CreateRequest) ContactRequest {
	now := time.Now().UTC()

	return ContactRequest{
		ID:        uuid.NewString(),
		Reason:    req.Reason,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		City:      req.City,
		State:     req.State,
		Notes:     req.Notes,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
