package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockAuditPurger struct {
	mu                  sync.Mutex
	DeleteOlderThanFunc func(ctx context.Context, cutoff time.Time) (int64, error)
	Cutoffs             []time.Time
}

func (m *MockAuditPurger) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	m.Cutoffs = append(m.Cutoffs, cutoff)
	m.mu.Unlock()
	if m.DeleteOlderThanFunc != nil {
		return m.DeleteOlderThanFunc(ctx, cutoff)
	}
	return 0, nil
}

func (m *MockAuditPurger) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Cutoffs)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetentionManager_PurgesImmediatelyWithCutoff(t *testing.T) {
	repo := &MockAuditPurger{}
	rm := NewRetentionManager(repo, testLogger(), 24*time.Hour, time.Hour)
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rm.now = func() time.Time { return now }

	done := make(chan struct{})
	go func() {
		rm.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return repo.calls() >= 1 }, time.Second, 5*time.Millisecond)
	rm.Stop()
	<-done

	assert.Equal(t, now.Add(-24*time.Hour), repo.Cutoffs[0])
}

func TestRetentionManager_RunsOnInterval(t *testing.T) {
	repo := &MockAuditPurger{}
	rm := NewRetentionManager(repo, testLogger(), time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rm.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return repo.calls() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRetentionManager_ContinuesAfterError(t *testing.T) {
	repo := &MockAuditPurger{
		DeleteOlderThanFunc: func(ctx context.Context, cutoff time.Time) (int64, error) {
			return 0, errors.New("db unavailable")
		},
	}
	rm := NewRetentionManager(repo, testLogger(), time.Hour, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		rm.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return repo.calls() >= 2 }, time.Second, 5*time.Millisecond)
	rm.Stop()
	rm.Stop()
	<-done
}
