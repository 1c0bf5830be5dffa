package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/storefront/internal/models"
	pkglogger "github.com/BradenHooton/storefront/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const lockoutNoticeTimeout = 10 * time.Second

// LockoutNotifier tells an account owner that their account was locked
type LockoutNotifier interface {
	NotifyLocked(account *models.Account)
}

// NoopLockoutNotifier is used when outbound email is disabled
type NoopLockoutNotifier struct{}

func (NoopLockoutNotifier) NotifyLocked(*models.Account) {}

// SESClient is the subset of the SES API used for sending
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESLockoutNotifier emails lockout notices through AWS SES. Sends run in
// the background so they never delay the login response.
type SESLockoutNotifier struct {
	client      SESClient
	fromAddress string
	supportURL  string
	hasher      *pkglogger.EmailHasher
	logger      *slog.Logger
	wg          sync.WaitGroup
}

// NewSESLockoutNotifier loads the default AWS config for region
func NewSESLockoutNotifier(ctx context.Context, region, fromAddress, supportURL string, hasher *pkglogger.EmailHasher, logger *slog.Logger) (*SESLockoutNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESLockoutNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, supportURL, hasher, logger), nil
}

func NewSESLockoutNotifierWithClient(client SESClient, fromAddress, supportURL string, hasher *pkglogger.EmailHasher, logger *slog.Logger) *SESLockoutNotifier {
	return &SESLockoutNotifier{
		client:      client,
		fromAddress: fromAddress,
		supportURL:  supportURL,
		hasher:      hasher,
		logger:      logger,
	}
}

// NotifyLocked sends the notice asynchronously
func (n *SESLockoutNotifier) NotifyLocked(account *models.Account) {
	if account == nil || account.LockedUntil == nil {
		return
	}

	email := account.Email
	lockedUntil := *account.LockedUntil

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), lockoutNoticeTimeout)
		defer cancel()

		if err := n.send(ctx, email, lockedUntil); err != nil {
			n.logger.Error("failed to send lockout notice",
				slog.String("email_hash", n.hasher.Hash(email)),
				slog.Any("error", err),
			)
		}
	}()
}

// Wait blocks until in-flight notices finish
func (n *SESLockoutNotifier) Wait() {
	n.wg.Wait()
}

func (n *SESLockoutNotifier) send(ctx context.Context, email string, lockedUntil time.Time) error {
	textBody := fmt.Sprintf(`Your account was temporarily locked

We detected several failed sign-in attempts on your account. To protect it, sign-in is disabled until %s.

If this was you, you can try again after that time.
If this was not you, we recommend changing your password once the lock expires.
`, lockedUntil.UTC().Format(time.RFC1123))

	if n.supportURL != "" {
		textBody += fmt.Sprintf("\nNeed help? Contact support at %s\n", n.supportURL)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your account has been temporarily locked"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("lockout notice sent",
		slog.String("email_hash", n.hasher.Hash(email)),
		slog.String("message_id", aws.ToString(result.MessageId)),
	)
	return nil
}
