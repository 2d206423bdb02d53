package auditlog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// actions recorded by the security core and the admin surface
const (
	ActionLoginSuccess     = "LOGIN_SUCCESS"
	ActionLoginFailed      = "LOGIN_FAILED"
	ActionAccountLocked    = "ACCOUNT_LOCKED"
	ActionAccountUnlocked  = "ACCOUNT_UNLOCKED"
	ActionAttemptsReset    = "ATTEMPTS_RESET"
	ActionPasswordChanged  = "PASSWORD_CHANGED"
	ActionResetIssued      = "PASSWORD_RESET_ISSUED"
	ActionResetRedeemed    = "PASSWORD_RESET_REDEEMED"
	ActionPermissionDenied = "PERMISSION_DENIED"
	ActionUserCreated      = "USER_CREATED"
	ActionUserUpdated      = "USER_UPDATED"
	ActionUserDeleted      = "USER_DELETED"
	ActionRoleCreated      = "ROLE_CREATED"
	ActionRoleUpdated      = "ROLE_UPDATED"
	ActionRoleDeleted      = "ROLE_DELETED"
	ActionSettingsUpdated  = "SETTINGS_UPDATED"
)

type Entry struct {
	ID        string          `json:"id"`
	ActorID   *string         `json:"actorId,omitempty"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	IPAddress string          `json:"ipAddress,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func New(actorID *string, action string, details json.RawMessage, ip string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Action:    action,
		Details:   details,
		IPAddress: ip,
		CreatedAt: time.Now().UTC(),
	}
}

type ListFilter struct {
	ActorID *string
	Action  *string
	Limit   int
	Offset  int
}
