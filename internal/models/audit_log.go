package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types for audit logging
const (
	AuditEventTypeLogin = "login"
)

// AuditLog is a persisted security audit record. The email is only ever
// stored as a keyed one-way hash.
type AuditLog struct {
	ID        uuid.UUID `db:"id"`
	EventType string    `db:"event_type"`
	Outcome   string    `db:"outcome"`
	AccountID *string   `db:"account_id"`
	EmailHash string    `db:"email_hash"`
	IPAddress *string   `db:"ip_address"`
	CreatedAt time.Time `db:"created_at"`
}
