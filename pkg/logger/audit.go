package logger

import (
	"context"
	"log/slog"
	"time"
)

// Login outcome classes recorded by the audit trail
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeLocked             = "locked"
	OutcomeInactive           = "inactive"
	OutcomeInvalidRequest     = "invalid_request"
	OutcomeTransientError     = "transient_error"
)

// LoginEvent is a single login attempt as seen by the audit trail.
// The raw email never appears here, only its keyed hash.
type LoginEvent struct {
	AccountID   string
	EmailHash   string
	IPAddress   string
	Outcome     string
	NewlyLocked bool
	OccurredAt  time.Time
}

// AuditLogger writes security audit events to a structured logger
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogLoginAttempt logs one login outcome at Info on success and Warn otherwise
func (al *AuditLogger) LogLoginAttempt(ctx context.Context, event LoginEvent) {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", "login"),
		slog.String("outcome", event.Outcome),
		slog.Bool("success", event.Outcome == OutcomeSuccess),
		slog.String("timestamp", occurredAt.UTC().Format(time.RFC3339)),
	}

	if event.EmailHash != "" {
		attrs = append(attrs, slog.String("email_hash", event.EmailHash))
	}
	if event.AccountID != "" {
		attrs = append(attrs, slog.String("account_id", event.AccountID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.NewlyLocked {
		attrs = append(attrs, slog.Bool("account_locked", true))
	}

	level := slog.LevelWarn
	if event.Outcome == OutcomeSuccess {
		level = slog.LevelInfo
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}
