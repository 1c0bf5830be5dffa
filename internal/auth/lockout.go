package auth

import (
	"time"

	"github.com/BradenHooton/storefront/internal/models"
)

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 15 * time.Minute
)

// LockoutPolicy decides when repeated credential failures lock an account.
// All methods are pure: they read and mutate only the account passed in.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutPolicy returns a policy locking for 15 minutes after 5 failures
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		Threshold: DefaultLockoutThreshold,
		Duration:  DefaultLockoutDuration,
	}
}

// CheckLocked reports whether the account is locked at now and for how long.
// A lock whose expiry has passed is treated as absent even though the
// stored timestamp has not been cleared yet.
func (p LockoutPolicy) CheckLocked(account *models.Account, now time.Time) (time.Duration, bool) {
	if account == nil || account.LockedUntil == nil {
		return 0, false
	}
	if !now.Before(*account.LockedUntil) {
		return 0, false
	}
	return account.LockedUntil.Sub(now), true
}

// OnFailure records a failed credential check. It returns true when this
// failure placed a new lock on the account.
func (p LockoutPolicy) OnFailure(account *models.Account, now time.Time, ip string) bool {
	account.FailedLoginAttempts++
	failedAt := now
	account.LastFailedLoginAt = &failedAt
	account.LastLoginIPAddress = ip

	if account.FailedLoginAttempts < p.Threshold {
		return false
	}
	if _, locked := p.CheckLocked(account, now); locked {
		return false
	}

	lockedUntil := now.Add(p.Duration)
	account.LockedUntil = &lockedUntil
	return true
}

// OnSuccess clears failure state after a verified login
func (p LockoutPolicy) OnSuccess(account *models.Account, now time.Time, ip string) {
	account.FailedLoginAttempts = 0
	account.LockedUntil = nil
	succeededAt := now
	account.LastSuccessfulLoginAt = &succeededAt
	account.LastLoginIPAddress = ip
}
