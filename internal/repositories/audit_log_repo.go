package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/storefront/internal/database"
	"github.com/BradenHooton/storefront/internal/models"
	"github.com/google/uuid"
)

// AuditLogRepository handles audit log data access
type AuditLogRepository struct {
	db *database.DB
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create inserts an audit log entry
func (r *AuditLogRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO audit_logs (id, event_type, outcome, account_id, email_hash, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		log.ID, log.EventType, log.Outcome, log.AccountID, log.EmailHash, log.IPAddress, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", database.MapPostgresError(err))
	}
	return nil
}

// ListByEmailHash returns the most recent entries for one email hash
func (r *AuditLogRepository) ListByEmailHash(ctx context.Context, emailHash string, limit int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, event_type, outcome, account_id, email_hash, ip_address, created_at
		FROM audit_logs WHERE email_hash = $1
		ORDER BY created_at DESC LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, emailHash, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)
	for rows.Next() {
		var log models.AuditLog
		if err := rows.Scan(&log.ID, &log.EventType, &log.Outcome, &log.AccountID,
			&log.EmailHash, &log.IPAddress, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}

// DeleteOlderThan removes entries created before cutoff and returns the count
func (r *AuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit logs: %w", err)
	}
	return tag.RowsAffected(), nil
}
