package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	FullName            string     `json:"fullName"`
	RoleID              *string    `json:"roleId,omitempty"`
	IsActive            bool       `json:"isActive"`
	MustChangePassword  bool       `json:"mustChangePassword"`
	FailedLoginAttempts int        `json:"failedLoginAttempts"`
	AccountLocked       bool       `json:"accountLocked"`
	LockoutExpiresAt    *time.Time `json:"lockoutExpiresAt,omitempty"`
	LastLogin           *time.Time `json:"lastLogin,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

type CreateRequest struct {
	Email              string
	FullName           string
	PasswordHash       string
	RoleID             *string
	MustChangePassword bool
}

func NewFromCreateRequest(req CreateRequest) User {
	now := time.Now().UTC()

	return User{
		ID:                 uuid.NewString(),
		Email:              req.Email,
		PasswordHash:       req.PasswordHash,
		FullName:           req.FullName,
		RoleID:             req.RoleID,
		IsActive:           true,
		MustChangePassword: req.MustChangePassword,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// UpdateRequest carries admin-editable fields. Nil means leave untouched.
type UpdateRequest struct {
	FullName *string
	RoleID   *string
	IsActive *bool
}
