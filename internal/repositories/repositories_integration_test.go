//go:build integration

package repositories_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/storefront/internal/auth"
	"github.com/BradenHooton/storefront/internal/database"
	"github.com/BradenHooton/storefront/internal/models"
	"github.com/BradenHooton/storefront/internal/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := database.New(pool, nil)
	require.NoError(t, db.Migrate(ctx))

	return db
}

func seedAccount(t *testing.T, repo *repositories.AccountRepository, email string) *models.Account {
	t.Helper()
	account, err := repo.Create(context.Background(), &models.Account{
		Email:        email,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
		AccessLevel:  models.AccessLevelStaff,
		IsActive:     true,
	})
	require.NoError(t, err)
	return account
}

func TestAccountRepository_Integration(t *testing.T) {
	db := setupTestDatabase(t)
	repo := repositories.NewAccountRepository(db)
	ctx := context.Background()

	t.Run("create and fetch by exact email", func(t *testing.T) {
		created := seedAccount(t, repo, "Clerk@Example.com")
		assert.Equal(t, int64(1), created.Version)

		fetched, err := repo.GetByEmail(ctx, "Clerk@Example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, fetched.ID)
		assert.Equal(t, models.AccessLevelStaff, fetched.AccessLevel)

		_, err = repo.GetByEmail(ctx, "clerk@example.com")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		seedAccount(t, repo, "dup@example.com")

		_, err := repo.Create(ctx, &models.Account{Email: "dup@example.com", PasswordHash: "x", IsActive: true})
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("update login state bumps version", func(t *testing.T) {
		account := seedAccount(t, repo, "bump@example.com")
		policy := auth.DefaultLockoutPolicy()
		now := time.Now().UTC().Truncate(time.Microsecond)

		updated, err := repo.UpdateLoginState(ctx, account.ID, func(a *models.Account) {
			policy.OnFailure(a, now, "198.51.100.1")
		})
		require.NoError(t, err)
		assert.Equal(t, 1, updated.FailedLoginAttempts)
		assert.Equal(t, account.Version+1, updated.Version)
		assert.Equal(t, "198.51.100.1", updated.LastLoginIPAddress)
		require.NotNil(t, updated.LastFailedLoginAt)
		assert.True(t, now.Equal(*updated.LastFailedLoginAt))
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := repo.UpdateLoginState(ctx, "00000000-0000-0000-0000-000000000000", func(*models.Account) {})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("concurrent failures each increment once", func(t *testing.T) {
		account := seedAccount(t, repo, "race@example.com")
		policy := auth.DefaultLockoutPolicy()
		const attempts = 20

		var wg sync.WaitGroup
		errs := make(chan error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.UpdateLoginState(ctx, account.ID, func(a *models.Account) {
					policy.OnFailure(a, time.Now(), "198.51.100.2")
				})
				if err != nil && !errors.Is(err, models.ErrStaleAccount) {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("unexpected error: %v", err)
		}

		fetched, err := repo.GetByEmail(ctx, "race@example.com")
		require.NoError(t, err)
		assert.Equal(t, attempts, fetched.FailedLoginAttempts)
		assert.Equal(t, account.Version+attempts, fetched.Version)
		assert.NotNil(t, fetched.LockedUntil)
	})
}

func TestAuditLogRepository_Integration(t *testing.T) {
	db := setupTestDatabase(t)
	repo := repositories.NewAuditLogRepository(db)
	ctx := context.Background()

	ip := "203.0.113.8"
	old := &models.AuditLog{
		EventType: models.AuditEventTypeLogin,
		Outcome:   "invalid_credentials",
		EmailHash: "hash-a",
		IPAddress: &ip,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}
	recent := &models.AuditLog{
		EventType: models.AuditEventTypeLogin,
		Outcome:   "success",
		EmailHash: "hash-a",
		IPAddress: &ip,
	}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, recent))

	logs, err := repo.ListByEmailHash(ctx, "hash-a", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "success", logs[0].Outcome)

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	logs, err = repo.ListByEmailHash(ctx, "hash-a", 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
