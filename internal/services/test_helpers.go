package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BradenHooton/storefront/internal/models"
	pkglogger "github.com/BradenHooton/storefront/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockAccountStore implements AccountStore for testing
type MockAccountStore struct {
	GetByEmailFunc       func(ctx context.Context, email string) (*models.Account, error)
	UpdateLoginStateFunc func(ctx context.Context, id string, transition func(*models.Account)) (*models.Account, error)
}

func (m *MockAccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountStore) UpdateLoginState(ctx context.Context, id string, transition func(*models.Account)) (*models.Account, error) {
	if m.UpdateLoginStateFunc != nil {
		return m.UpdateLoginStateFunc(ctx, id, transition)
	}
	return nil, models.ErrInternalServer
}

// MemoryAccountStore is an in-process AccountStore with the same
// read-apply-write-with-version semantics as the Postgres repository
type MemoryAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account

	// StaleWrites makes the next n UpdateLoginState calls fail with ErrStaleAccount
	StaleWrites atomic.Int32
	Updates     atomic.Int32
}

func NewMemoryAccountStore(accounts ...*models.Account) *MemoryAccountStore {
	store := &MemoryAccountStore{accounts: make(map[string]*models.Account)}
	for _, account := range accounts {
		copied := *account
		store.accounts[account.Email] = &copied
	}
	return store
}

func (m *MemoryAccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (m *MemoryAccountStore) UpdateLoginState(ctx context.Context, id string, transition func(*models.Account)) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.Updates.Add(1)

	if remaining := m.StaleWrites.Load(); remaining > 0 {
		if m.StaleWrites.CompareAndSwap(remaining, remaining-1) {
			return nil, models.ErrStaleAccount
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for email, stored := range m.accounts {
		if stored.ID != id {
			continue
		}
		working := *stored
		transition(&working)
		working.Version = stored.Version + 1
		m.accounts[email] = &working

		copied := working
		return &copied, nil
	}
	return nil, models.ErrNotFound
}

// Snapshot returns the stored state of an account
func (m *MemoryAccountStore) Snapshot(email string) models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.accounts[email]
}

// SpyVerifier records the hashes it is asked to verify against
type SpyVerifier struct {
	mu        sync.Mutex
	Dummy     string
	Passwords map[string]string // hash -> matching secret
	Calls     []string
}

func NewSpyVerifier() *SpyVerifier {
	return &SpyVerifier{
		Dummy:     "$2a$04$dummydummydummydummydummydummydummydummydummydummydum",
		Passwords: make(map[string]string),
	}
}

func (v *SpyVerifier) Verify(secret, encoded string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Calls = append(v.Calls, encoded)

	expected, ok := v.Passwords[encoded]
	return ok && expected == secret && encoded != v.Dummy
}

func (v *SpyVerifier) DummyHash() string {
	return v.Dummy
}

func (v *SpyVerifier) CallCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.Calls)
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	IssueFunc func(ctx context.Context, account *models.Account) (*models.IssuedToken, error)
}

func (m *MockTokenIssuer) Issue(ctx context.Context, account *models.Account) (*models.IssuedToken, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, account)
	}
	return &models.IssuedToken{Token: "token-for-" + account.ID, ExpiresIn: time.Hour}, nil
}

// RecordingAuditSink captures login events
type RecordingAuditSink struct {
	mu     sync.Mutex
	Events []pkglogger.LoginEvent
}

func (r *RecordingAuditSink) RecordLogin(ctx context.Context, event pkglogger.LoginEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
}

func (r *RecordingAuditSink) Outcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	outcomes := make([]string, len(r.Events))
	for i, event := range r.Events {
		outcomes[i] = event.Outcome
	}
	return outcomes
}

// RecordingPadder records calls without sleeping
type RecordingPadder struct {
	mu      sync.Mutex
	Success []bool
}

func (p *RecordingPadder) WaitFrom(ctx context.Context, start time.Time, success bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Success = append(p.Success, success)
	return nil
}

// RecordingNotifier captures lockout notifications
type RecordingNotifier struct {
	mu       sync.Mutex
	Notified []models.Account
}

func (n *RecordingNotifier) NotifyLocked(account *models.Account) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Notified = append(n.Notified, *account)
}

func (n *RecordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Notified)
}

// MockAuditLogRepository implements AuditLogRepository for testing
type MockAuditLogRepository struct {
	mu         sync.Mutex
	CreateFunc func(ctx context.Context, log *models.AuditLog) error
	Created    []*models.AuditLog
}

func (m *MockAuditLogRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, log); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, log)
	return nil
}

func (m *MockAuditLogRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Created)
}

// MockSESClient implements SESClient for testing
type MockSESClient struct {
	mu           sync.Mutex
	SendEmailErr error
	Inputs       []*ses.SendEmailInput
}

func (m *MockSESClient) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inputs = append(m.Inputs, params)
	if m.SendEmailErr != nil {
		return nil, m.SendEmailErr
	}
	return &ses.SendEmailOutput{MessageId: aws.String(fmt.Sprintf("msg-%d", len(m.Inputs)))}, nil
}
