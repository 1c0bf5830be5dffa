package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	DefaultMinDelay = 100 * time.Millisecond
	DefaultMaxDelay = 300 * time.Millisecond
)

// TimingConfig holds the latency window applied to authentication failures
type TimingConfig struct {
	MinDelay       time.Duration
	MaxDelay       time.Duration
	DelayOnSuccess bool // If true, pad successful logins as well
}

// Validate rejects windows that cannot produce a target delay
func (c TimingConfig) Validate() error {
	if c.MinDelay < 0 {
		return fmt.Errorf("min delay must not be negative (got %s)", c.MinDelay)
	}
	if c.MaxDelay < c.MinDelay {
		return fmt.Errorf("max delay %s is below min delay %s", c.MaxDelay, c.MinDelay)
	}
	return nil
}

// TimingDelay pads authentication outcomes so that every failure path takes
// a similar, randomized amount of wall-clock time.
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) (*TimingDelay, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing config: %w", err)
	}
	return &TimingDelay{config: config}, nil
}

// cryptoRandIntn returns a secure random number between 0 and max (exclusive)
func cryptoRandIntn(max int64) (int64, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	randomValue := binary.BigEndian.Uint64(randomBytes)
	return int64(randomValue % uint64(max)), nil
}

// Target draws a delay uniformly from [MinDelay, MaxDelay]
func (td *TimingDelay) Target() time.Duration {
	spread := int64(td.config.MaxDelay - td.config.MinDelay)
	offset, err := cryptoRandIntn(spread + 1)
	if err != nil {
		// Never shorter than the window on entropy failure
		return td.config.MaxDelay
	}
	return td.config.MinDelay + time.Duration(offset)
}

// WaitFrom sleeps until at least a freshly drawn target has elapsed since
// start. It returns early with ctx.Err() if the context is cancelled.
func (td *TimingDelay) WaitFrom(ctx context.Context, start time.Time, success bool) error {
	if success && !td.config.DelayOnSuccess {
		return nil
	}

	remaining := td.Target() - time.Since(start)
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
