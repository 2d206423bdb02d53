package notifications

import (
	"context"
	"time"
)

type SendPasswordResetInput struct {
	Email     string
	FullName  string
	ResetURL  string
	ExpiresAt time.Time
}

type Notifier interface {
	SendPasswordReset(ctx context.Context, input SendPasswordResetInput) error
}
