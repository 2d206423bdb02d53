package resettoken

import (
	"time"

	"github.com/google/uuid"
)

// ResetToken stores only the digest of an issued password-reset token. The
// plaintext is surfaced exactly once, at issue time. At most one unconsumed
// token exists per user: issuing a replacement consumes the predecessor.
type ResetToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	ConsumedAt *time.Time `json:"consumedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func New(userID, tokenHash string, ttl time.Duration) ResetToken {
	now := time.Now().UTC()

	return ResetToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

func (t ResetToken) Usable(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}

func (t ResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
