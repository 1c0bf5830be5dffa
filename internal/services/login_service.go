package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/storefront/internal/auth"
	"github.com/BradenHooton/storefront/internal/models"
	pkglogger "github.com/BradenHooton/storefront/pkg/logger"
)

// AccountStore loads accounts and applies login-state transitions atomically
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateLoginState(ctx context.Context, id string, transition func(*models.Account)) (*models.Account, error)
}

// CredentialVerifier compares a secret with a stored hash
type CredentialVerifier interface {
	Verify(secret, encoded string) bool
	DummyHash() string
}

// TokenIssuer mints a bearer credential for an authenticated account
type TokenIssuer interface {
	Issue(ctx context.Context, account *models.Account) (*models.IssuedToken, error)
}

// AuditSink records one event per login attempt
type AuditSink interface {
	RecordLogin(ctx context.Context, event pkglogger.LoginEvent)
}

// LatencyPadder stretches a response to a randomized minimum duration
type LatencyPadder interface {
	WaitFrom(ctx context.Context, start time.Time, success bool) error
}

// OutcomeKind classifies a login attempt
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeInvalidRequest
	OutcomeUnauthorized
	OutcomeTransientError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalidRequest:
		return "invalid_request"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeTransientError:
		return "transient_error"
	}
	return "unknown"
}

// FailureReason refines an OutcomeUnauthorized result
type FailureReason string

const (
	ReasonLocked             FailureReason = "locked"
	ReasonInvalidCredentials FailureReason = "invalid_credentials"
	ReasonInactive           FailureReason = "inactive"
)

// LoginOutcome is the single result of a login attempt. Fields beyond Kind
// are populated only for the kinds that use them.
type LoginOutcome struct {
	Kind       OutcomeKind
	Reason     FailureReason
	RetryAfter time.Duration

	Token       string
	ExpiresIn   time.Duration
	AccountID   string
	Email       string
	AccessLevel models.AccessLevel
}

// LoginService authenticates credentials and maintains lockout state
type LoginService struct {
	store    AccountStore
	verifier CredentialVerifier
	policy   auth.LockoutPolicy
	issuer   TokenIssuer
	audit    AuditSink
	padder   LatencyPadder
	notifier LockoutNotifier
	hasher   *pkglogger.EmailHasher
	logger   *slog.Logger
	now      func() time.Time
}

func NewLoginService(
	store AccountStore,
	verifier CredentialVerifier,
	policy auth.LockoutPolicy,
	issuer TokenIssuer,
	audit AuditSink,
	padder LatencyPadder,
	notifier LockoutNotifier,
	hasher *pkglogger.EmailHasher,
	logger *slog.Logger,
) *LoginService {
	if notifier == nil {
		notifier = NoopLockoutNotifier{}
	}
	return &LoginService{
		store:    store,
		verifier: verifier,
		policy:   policy,
		issuer:   issuer,
		audit:    audit,
		padder:   padder,
		notifier: notifier,
		hasher:   hasher,
		logger:   logger,
		now:      time.Now,
	}
}

// Login authenticates email and password for the request originating at clientIP.
// The email is matched exactly as stored after trimming surrounding whitespace.
func (s *LoginService) Login(ctx context.Context, email, password, clientIP string) LoginOutcome {
	start := time.Now()

	email = strings.TrimSpace(email)
	event := pkglogger.LoginEvent{
		EmailHash: s.hasher.Hash(email),
		IPAddress: clientIP,
	}

	if email == "" || strings.TrimSpace(password) == "" {
		return s.finish(ctx, event, LoginOutcome{Kind: OutcomeInvalidRequest})
	}

	account, err := s.store.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to load account", slog.Any("error", err))
		return s.finish(ctx, event, LoginOutcome{Kind: OutcomeTransientError})
	}
	found := err == nil
	now := s.now()

	if found {
		event.AccountID = account.ID

		if remaining, locked := s.policy.CheckLocked(account, now); locked {
			s.pad(ctx, start, false)
			return s.finish(ctx, event, LoginOutcome{
				Kind:       OutcomeUnauthorized,
				Reason:     ReasonLocked,
				RetryAfter: remaining,
			})
		}
	}

	hash := s.verifier.DummyHash()
	if found {
		hash = account.PasswordHash
	}
	verified := s.verifier.Verify(password, hash)

	if !found || !verified {
		if found {
			var newlyLocked bool
			updated, err := s.writeBack(ctx, account.ID, func(a *models.Account) {
				newlyLocked = s.policy.OnFailure(a, now, clientIP)
			})
			if err != nil {
				s.logger.ErrorContext(ctx, "failed to record login failure",
					slog.String("account_id", account.ID),
					slog.Any("error", err),
				)
				return s.finish(ctx, event, LoginOutcome{Kind: OutcomeTransientError})
			}
			if newlyLocked {
				event.NewlyLocked = true
				s.notifier.NotifyLocked(updated)
			}
		}

		s.pad(ctx, start, false)
		return s.finish(ctx, event, LoginOutcome{
			Kind:   OutcomeUnauthorized,
			Reason: ReasonInvalidCredentials,
		})
	}

	if !account.CanAuthenticate() {
		s.pad(ctx, start, false)
		return s.finish(ctx, event, LoginOutcome{
			Kind:   OutcomeUnauthorized,
			Reason: ReasonInactive,
		})
	}

	updated, err := s.writeBack(ctx, account.ID, func(a *models.Account) {
		s.policy.OnSuccess(a, now, clientIP)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record login success",
			slog.String("account_id", account.ID),
			slog.Any("error", err),
		)
		return s.finish(ctx, event, LoginOutcome{Kind: OutcomeTransientError})
	}

	issued, err := s.issuer.Issue(ctx, updated)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue token",
			slog.String("account_id", updated.ID),
			slog.Any("error", err),
		)
		return s.finish(ctx, event, LoginOutcome{Kind: OutcomeTransientError})
	}

	s.pad(ctx, start, true)
	return s.finish(ctx, event, LoginOutcome{
		Kind:        OutcomeSuccess,
		Token:       issued.Token,
		ExpiresIn:   issued.ExpiresIn,
		AccountID:   updated.ID,
		Email:       updated.Email,
		AccessLevel: updated.AccessLevel,
	})
}

// writeBack persists a transition, retrying once if the store reports a
// concurrent modification. The transition is re-applied to the re-read row.
func (s *LoginService) writeBack(ctx context.Context, id string, transition func(*models.Account)) (*models.Account, error) {
	updated, err := s.store.UpdateLoginState(ctx, id, transition)
	if errors.Is(err, models.ErrStaleAccount) {
		s.logger.DebugContext(ctx, "retrying stale login state write", slog.String("account_id", id))
		updated, err = s.store.UpdateLoginState(ctx, id, transition)
	}
	return updated, err
}

func (s *LoginService) pad(ctx context.Context, start time.Time, success bool) {
	if s.padder == nil {
		return
	}
	// A cancelled request returns early; the outcome is unchanged
	_ = s.padder.WaitFrom(ctx, start, success)
}

func (s *LoginService) finish(ctx context.Context, event pkglogger.LoginEvent, outcome LoginOutcome) LoginOutcome {
	event.Outcome = auditOutcome(outcome)
	event.OccurredAt = s.now()
	s.audit.RecordLogin(ctx, event)
	return outcome
}

func auditOutcome(outcome LoginOutcome) string {
	switch outcome.Kind {
	case OutcomeSuccess:
		return pkglogger.OutcomeSuccess
	case OutcomeInvalidRequest:
		return pkglogger.OutcomeInvalidRequest
	case OutcomeTransientError:
		return pkglogger.OutcomeTransientError
	}

	switch outcome.Reason {
	case ReasonLocked:
		return pkglogger.OutcomeLocked
	case ReasonInactive:
		return pkglogger.OutcomeInactive
	default:
		return pkglogger.OutcomeInvalidCredentials
	}
}
