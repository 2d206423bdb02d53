package role

import (
	"time"

	"github.com/google/uuid"
)

// Permission ids form a fixed vocabulary. Roles hold a subset; a super role
// implies all of them regardless of its stored set.
const (
	PermManageUsers    = "manage_users"
	PermManageRoles    = "manage_roles"
	PermManageContent  = "manage_content"
	PermManageSettings = "manage_settings"
	PermViewAuditLog   = "view_audit_log"
)

var All = []string{
	PermManageUsers,
	PermManageRoles,
	PermManageContent,
	PermManageSettings,
	PermViewAuditLog,
}

func IsValidPermission(id string) bool {
	for _, p := range All {
		if p == id {
			return true
		}
	}
	return false
}

type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	IsSuperRole bool      `json:"isSuperRole"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasPermission checks the explicit set together with the super-role grant.
// The super grant is a persisted flag, not a name match, so renaming the
// role cannot silently change authorization outcomes.
func (r Role) HasPermission(permissionID string) bool {
	if r.IsSuperRole {
		return true
	}

	for _, p := range r.Permissions {
		if p == permissionID {
			return true
		}
	}
	return false
}

type CreateRequest struct {
	Name        string
	Description string
	Permissions []string
	IsSuperRole bool
}

func NewFromCreateRequest(req CreateRequest) Role {
	now := time.Now().UTC()

	return Role{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		IsSuperRole: req.IsSuperRole,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
