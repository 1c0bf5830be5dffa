package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/storefront/internal/models"
	pkglogger "github.com/BradenHooton/storefront/pkg/logger"
	"github.com/google/uuid"
)

const auditPersistTimeout = 5 * time.Second

// AuditLogRepository persists audit records
type AuditLogRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuditService dual-writes login events: immediately to the structured log,
// and to the database through a bounded queue drained by Run.
type AuditService struct {
	repo        AuditLogRepository
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger

	queue     chan *models.AuditLog
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewAuditService creates a new AuditService with room for queueSize pending records
func NewAuditService(repo AuditLogRepository, auditLogger *pkglogger.AuditLogger, logger *slog.Logger, queueSize int) *AuditService {
	if queueSize < 1 {
		queueSize = 1
	}
	return &AuditService{
		repo:        repo,
		auditLogger: auditLogger,
		logger:      logger,
		queue:       make(chan *models.AuditLog, queueSize),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// RecordLogin logs the event and queues it for persistence. It never blocks;
// when the queue is full the record is dropped and an error is logged.
func (s *AuditService) RecordLogin(ctx context.Context, event pkglogger.LoginEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	s.auditLogger.LogLoginAttempt(ctx, event)

	record := &models.AuditLog{
		ID:        uuid.New(),
		EventType: models.AuditEventTypeLogin,
		Outcome:   event.Outcome,
		EmailHash: event.EmailHash,
		CreatedAt: event.OccurredAt,
	}
	if event.AccountID != "" {
		accountID := event.AccountID
		record.AccountID = &accountID
	}
	if event.IPAddress != "" {
		ip := event.IPAddress
		record.IPAddress = &ip
	}

	select {
	case s.queue <- record:
	default:
		s.logger.ErrorContext(ctx, "audit queue full, dropping record",
			slog.String("outcome", event.Outcome),
			slog.String("email_hash", event.EmailHash),
		)
	}
}

// Run persists queued records until ctx is cancelled or Close is called,
// then flushes whatever is still buffered.
func (s *AuditService) Run(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case record := <-s.queue:
			s.persist(record)
		case <-s.stop:
			s.drain()
			return
		case <-ctx.Done():
			s.drain()
			return
		}
	}
}

// Close stops Run and waits for the flush to finish or ctx to expire
func (s *AuditService) Close(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.stop) })

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AuditService) drain() {
	for {
		select {
		case record := <-s.queue:
			s.persist(record)
		default:
			return
		}
	}
}

func (s *AuditService) persist(record *models.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), auditPersistTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("failed to persist audit log",
			slog.String("outcome", record.Outcome),
			slog.Any("error", err),
		)
	}
}
