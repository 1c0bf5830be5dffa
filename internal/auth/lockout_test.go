package auth_test

import (
	"testing"
	"time"

	"github.com/BradenHooton/storefront/internal/auth"
	"github.com/BradenHooton/storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lockoutNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestLockoutPolicy_Defaults(t *testing.T) {
	policy := auth.DefaultLockoutPolicy()

	assert.Equal(t, 5, policy.Threshold)
	assert.Equal(t, 15*time.Minute, policy.Duration)
}

func TestLockoutPolicy_CheckLocked(t *testing.T) {
	policy := auth.DefaultLockoutPolicy()
	future := lockoutNow.Add(10 * time.Minute)
	past := lockoutNow.Add(-time.Second)

	tests := []struct {
		name          string
		lockedUntil   *time.Time
		wantLocked    bool
		wantRemaining time.Duration
	}{
		{"no lock", nil, false, 0},
		{"lock in force", &future, true, 10 * time.Minute},
		{"lock expired", &past, false, 0},
		{"lock expires exactly now", &lockoutNow, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := &models.Account{LockedUntil: tt.lockedUntil}

			remaining, locked := policy.CheckLocked(account, lockoutNow)

			assert.Equal(t, tt.wantLocked, locked)
			assert.Equal(t, tt.wantRemaining, remaining)
		})
	}
}

func TestLockoutPolicy_OnFailure_BelowThreshold(t *testing.T) {
	policy := auth.DefaultLockoutPolicy()
	account := &models.Account{FailedLoginAttempts: 2}

	newlyLocked := policy.OnFailure(account, lockoutNow, "198.51.100.7")

	assert.False(t, newlyLocked)
	assert.Equal(t, 3, account.FailedLoginAttempts)
	require.NotNil(t, account.LastFailedLoginAt)
	assert.Equal(t, lockoutNow, *account.LastFailedLoginAt)
	assert.Equal(t, "198.51.100.7", account.LastLoginIPAddress)
	assert.Nil(t, account.LockedUntil)
}

func TestLockoutPolicy_OnFailure_ReachesThreshold(t *testing.T) {
	policy := auth.DefaultLockoutPolicy()
	account := &models.Account{}

	for i := 1; i < policy.Threshold; i++ {
		assert.False(t, policy.OnFailure(account, lockoutNow, "198.51.100.7"))
	}

	newlyLocked := policy.OnFailure(account, lockoutNow, "198.51.100.7")

	assert.True(t, newlyLocked)
	assert.Equal(t, policy.Threshold, account.FailedLoginAttempts)
	require.NotNil(t, account.LockedUntil)
	assert.Equal(t, lockoutNow.Add(15*time.Minute), *account.LockedUntil)
}

func TestLockoutPolicy_OnFailure_DoesNotExtendExistingLock(t *testing.T) {
	policy := auth.DefaultLockoutPolicy()
	lockedUntil := lockoutNow.Add(5 * time.Minute)
	account := &models.Account{FailedLoginAttempts: 5, LockedUntil: &lockedUntil}

	newlyLocked := policy.OnFailure(account, lockoutNow, "198.51.100.7")

	assert.False(t, newlyLocked)
	assert.Equal(t, 6, account.FailedLoginAttempts)
	require.NotNil(t, account.LockedUntil)
	assert.Equal(t, lockoutNow.Add(5*time.Minute), *account.LockedUntil)
}

func TestLockoutPolicy_OnFailure_RelocksAfterExpiry(t *testing.T) {
	policy := auth.DefaultLockoutPolicy()
	expired := lockoutNow.Add(-time.Minute)
	account := &models.Account{FailedLoginAttempts: 5, LockedUntil: &expired}

	newlyLocked := policy.OnFailure(account, lockoutNow, "198.51.100.7")

	assert.True(t, newlyLocked)
	assert.Equal(t, 6, account.FailedLoginAttempts)
	require.NotNil(t, account.LockedUntil)
	assert.Equal(t, lockoutNow.Add(15*time.Minute), *account.LockedUntil)
}

func TestLockoutPolicy_OnFailure_CustomPolicy(t *testing.T) {
	policy := auth.LockoutPolicy{Threshold: 1, Duration: time.Hour}
	account := &models.Account{}

	assert.True(t, policy.OnFailure(account, lockoutNow, "203.0.113.9"))
	require.NotNil(t, account.LockedUntil)
	assert.Equal(t, lockoutNow.Add(time.Hour), *account.LockedUntil)
}

func TestLockoutPolicy_OnSuccess_ResetsState(t *testing.T) {
	policy := auth.DefaultLockoutPolicy()
	lastFailed := lockoutNow.Add(-time.Minute)
	expired := lockoutNow.Add(-time.Second)
	account := &models.Account{
		FailedLoginAttempts: 4,
		LastFailedLoginAt:   &lastFailed,
		LockedUntil:         &expired,
	}

	policy.OnSuccess(account, lockoutNow, "192.0.2.10")

	assert.Equal(t, 0, account.FailedLoginAttempts)
	assert.Nil(t, account.LockedUntil)
	require.NotNil(t, account.LastSuccessfulLoginAt)
	assert.Equal(t, lockoutNow, *account.LastSuccessfulLoginAt)
	assert.Equal(t, "192.0.2.10", account.LastLoginIPAddress)
	require.NotNil(t, account.LastFailedLoginAt)
	assert.Equal(t, lastFailed, *account.LastFailedLoginAt)
}
