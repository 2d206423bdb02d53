package jobs

import (
	"encoding/json"
	"time"
)

const TypePasswordResetEmail = "password_reset.email"

// PasswordResetEmailPayload carries everything the delivery side needs. The
// reset URL embeds the one-time plaintext token; it is never written to any
// store except as this queued payload, which is deleted with the job.
type PasswordResetEmailPayload struct {
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	ResetURL    string    `json:"resetUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
	RequestedBy string    `json:"requestedBy,omitempty"`
	RequestID   string    `json:"requestId,omitempty"`
}

func (p PasswordResetEmailPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
