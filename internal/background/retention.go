package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AuditPurger deletes audit rows created before a cutoff
type AuditPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionManager periodically purges audit records older than the retention window
type RetentionManager struct {
	repo      AuditPurger
	logger    *slog.Logger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewRetentionManager creates a new retention manager
func NewRetentionManager(repo AuditPurger, logger *slog.Logger, retention, interval time.Duration) *RetentionManager {
	return &RetentionManager{
		repo:      repo,
		logger:    logger,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start runs a purge immediately and then on every interval until stopped
func (rm *RetentionManager) Start(ctx context.Context) {
	ticker := time.NewTicker(rm.interval)
	defer ticker.Stop()

	rm.runPurge(ctx)

	for {
		select {
		case <-ticker.C:
			rm.runPurge(ctx)
		case <-rm.stopCh:
			rm.logger.Info("audit retention manager stopped")
			return
		case <-ctx.Done():
			rm.logger.Info("audit retention manager context cancelled")
			return
		}
	}
}

func (rm *RetentionManager) runPurge(ctx context.Context) {
	purgeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := rm.now().Add(-rm.retention)
	rowsDeleted, err := rm.repo.DeleteOlderThan(purgeCtx, cutoff)
	if err != nil {
		rm.logger.Error("failed to purge audit logs", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		rm.logger.Info("audit log purge completed",
			slog.Int64("rows_deleted", rowsDeleted),
			slog.Time("cutoff", cutoff),
		)
	}
}

// Stop signals the retention manager to stop
func (rm *RetentionManager) Stop() {
	rm.stopOnce.Do(func() { close(rm.stopCh) })
}
