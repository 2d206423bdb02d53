package notifications

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// LogNotifier stands in for a real mail provider; the reset link lands in
// the process log. Swap it out behind the Notifier interface when an email
// provider is wired up.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) SendPasswordReset(ctx context.Context, in SendPasswordResetInput) error {
	// Optional: simulate slow provider
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate provider outage
	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	log.Printf("notification.password_reset email=%s name=%s expires_at=%s url=%s",
		in.Email, in.FullName, in.ExpiresAt.Format(time.RFC3339), in.ResetURL,
	)
	return nil
}
