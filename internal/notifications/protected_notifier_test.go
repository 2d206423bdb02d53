package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedNotifier struct {
	calls int
	errs  []error
}

func (s *scriptedNotifier) SendPasswordReset(ctx context.Context, in SendPasswordResetInput) error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	sendErr := errors.New("smtp down")
	inner := &scriptedNotifier{errs: []error{sendErr, sendErr, sendErr}}

	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 3,
		Cooldown:         time.Hour,
	})

	for i := 0; i < 3; i++ {
		if err := n.SendPasswordReset(context.Background(), SendPasswordResetInput{}); !errors.Is(err, sendErr) {
			t.Fatalf("call %d: got %v, want the send error", i, err)
		}
	}

	if err := n.SendPasswordReset(context.Background(), SendPasswordResetInput{}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}

	if inner.calls != 3 {
		t.Fatalf("inner called %d times, want 3 (open circuit must not pass through)", inner.calls)
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	sendErr := errors.New("smtp down")
	inner := &scriptedNotifier{errs: []error{sendErr}}

	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
	})

	if err := n.SendPasswordReset(context.Background(), SendPasswordResetInput{}); !errors.Is(err, sendErr) {
		t.Fatalf("got %v, want the send error", err)
	}

	if err := n.SendPasswordReset(context.Background(), SendPasswordResetInput{}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}

	time.Sleep(20 * time.Millisecond)

	// first trial after the cooldown succeeds and closes the circuit
	if err := n.SendPasswordReset(context.Background(), SendPasswordResetInput{}); err != nil {
		t.Fatalf("half-open trial: %v", err)
	}

	if err := n.SendPasswordReset(context.Background(), SendPasswordResetInput{}); err != nil {
		t.Fatalf("closed circuit: %v", err)
	}
}

func TestBreakerReopensOnFailedTrial(t *testing.T) {
	sendErr := errors.New("smtp down")
	inner := &scriptedNotifier{errs: []error{sendErr, sendErr}}

	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
	})

	_ = n.SendPasswordReset(context.Background(), SendPasswordResetInput{})

	time.Sleep(20 * time.Millisecond)

	if err := n.SendPasswordReset(context.Background(), SendPasswordResetInput{}); !errors.Is(err, sendErr) {
		t.Fatalf("got %v, want the send error", err)
	}

	if err := n.SendPasswordReset(context.Background(), SendPasswordResetInput{}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen after a failed trial", err)
	}
}
