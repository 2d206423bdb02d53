package accounts

import (
	"time"

	"github.com/hcsem/communityhub/internal/domain/user"
)

// LockoutGuard owns the lock/unlock policy. Nothing else may flip
// accountLocked except an explicit admin override.
//
// State machine:
//
//	Unlocked --failure, count<threshold--> Unlocked
//	Unlocked --failure, count==threshold--> Locked
//	Locked   --any login attempt---------> Locked
//	Locked   --admin unlock--------------> Unlocked
//	Locked   --lockout window elapsed----> Unlocked (checked lazily)
type LockoutGuard struct {
	Threshold int
	LockFor   time.Duration
}

func NewLockoutGuard(threshold int, lockFor time.Duration) LockoutGuard {
	if threshold <= 0 {
		threshold = 5
	}

	return LockoutGuard{Threshold: threshold, LockFor: lockFor}
}

// LockExpired reports whether a time-boxed lock has run out. Locks without
// an expiry (explicit admin locks) never expire on their own.
func (g LockoutGuard) LockExpired(u user.User, now time.Time) bool {
	if !u.AccountLocked || u.LockoutExpiresAt == nil {
		return false
	}

	return !now.Before(*u.LockoutExpiresAt)
}

// ShouldLock reports whether a failure count has reached the threshold.
func (g LockoutGuard) ShouldLock(failedAttempts int) bool {
	return failedAttempts >= g.Threshold
}
