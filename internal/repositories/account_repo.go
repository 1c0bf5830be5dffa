package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/storefront/internal/database"
	"github.com/BradenHooton/storefront/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `
	id, email, password_hash, access_level, is_active, is_banned, is_deleted,
	failed_login_attempts, last_failed_login_at, last_successful_login_at,
	last_login_ip_address, locked_until, version, created_at, updated_at`

type AccountRepository struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var accessLevel string

	err := scanner.Scan(
		&account.ID, &account.Email, &account.PasswordHash, &accessLevel,
		&account.IsActive, &account.IsBanned, &account.IsDeleted,
		&account.FailedLoginAttempts, &account.LastFailedLoginAt, &account.LastSuccessfulLoginAt,
		&account.LastLoginIPAddress, &account.LockedUntil, &account.Version,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	account.AccessLevel = models.AccessLevel(accessLevel)
	return &account, nil
}

// GetByEmail looks up an account by its exact stored email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts WHERE email = $1`

	account, err := scanAccountRow(r.db.Pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.AccessLevel == "" {
		account.AccessLevel = models.AccessLevelCustomer
	}

	now := time.Now()
	query := `
		INSERT INTO accounts (id, email, password_hash, access_level, is_active, is_banned, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING` + accountColumns

	created, err := scanAccountRow(r.db.Pool.QueryRow(ctx, query,
		account.ID, account.Email, account.PasswordHash, string(account.AccessLevel),
		account.IsActive, account.IsBanned, account.IsDeleted, now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return created, nil
}

// UpdateLoginState applies transition to the current row under a row lock
// and writes the security fields back with a bumped version. The write is
// conditional on the version read inside the transaction; a mismatch
// returns models.ErrStaleAccount.
func (r *AccountRepository) UpdateLoginState(ctx context.Context, id string, transition func(*models.Account)) (*models.Account, error) {
	var updated *models.Account

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		selectQuery := `SELECT` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

		account, err := scanAccountRow(tx.QueryRow(ctx, selectQuery, id))
		if err != nil {
			return err
		}

		loadedVersion := account.Version
		transition(account)

		updateQuery := `
			UPDATE accounts SET
				failed_login_attempts = $2,
				last_failed_login_at = $3,
				last_successful_login_at = $4,
				last_login_ip_address = $5,
				locked_until = $6,
				version = version + 1,
				updated_at = NOW()
			WHERE id = $1 AND version = $7
			RETURNING` + accountColumns

		updated, err = scanAccountRow(tx.QueryRow(ctx, updateQuery,
			id,
			account.FailedLoginAttempts,
			account.LastFailedLoginAt,
			account.LastSuccessfulLoginAt,
			account.LastLoginIPAddress,
			account.LockedUntil,
			loadedVersion,
		))
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrStaleAccount
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update login state: %w", err)
	}

	return updated, nil
}
