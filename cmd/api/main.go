package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/storefront/internal/auth"
	"github.com/BradenHooton/storefront/internal/background"
	"github.com/BradenHooton/storefront/internal/config"
	"github.com/BradenHooton/storefront/internal/database"
	"github.com/BradenHooton/storefront/internal/handlers"
	middlewareCustom "github.com/BradenHooton/storefront/internal/middleware"
	"github.com/BradenHooton/storefront/internal/models"
	"github.com/BradenHooton/storefront/internal/repositories"
	"github.com/BradenHooton/storefront/internal/routes"
	"github.com/BradenHooton/storefront/internal/services"
	pkgauth "github.com/BradenHooton/storefront/pkg/auth"
	pkghttp "github.com/BradenHooton/storefront/pkg/http"
	pkglogger "github.com/BradenHooton/storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.NewConnection(startupCtx, &cfg.Database, logger)
	if err != nil {
		startupCancel()
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := db.Migrate(startupCtx); err != nil {
			startupCancel()
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}
	startupCancel()

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	auditLogRepo := repositories.NewAuditLogRepository(db)

	// Credential verification with a dummy hash for unknown emails
	verifier, err := pkgauth.NewPasswordVerifier(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Error("failed to initialize password verifier", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize token manager
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)

	// Timing delay for auth security
	timingDelay, err := auth.NewTimingDelay(auth.TimingConfig{
		MinDelay:       cfg.Timing.MinDelay,
		MaxDelay:       cfg.Timing.MaxDelay,
		DelayOnSuccess: cfg.Timing.DelayOnSuccess,
	})
	if err != nil {
		logger.Error("invalid timing configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Audit trail: structured log plus async persistence
	emailHasher := pkglogger.NewEmailHasher(cfg.Audit.EmailHashKey)
	auditLogger := pkglogger.NewAuditLogger(logger)
	auditService := services.NewAuditService(auditLogRepo, auditLogger, logger, cfg.Audit.QueueSize)

	auditCtx, auditCancel := context.WithCancel(context.Background())
	defer auditCancel()
	go auditService.Run(auditCtx)

	// Lockout notices
	var notifier services.LockoutNotifier = services.NoopLockoutNotifier{}
	var sesNotifier *services.SESLockoutNotifier
	if cfg.Email.Enabled {
		initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
		sesNotifier, err = services.NewSESLockoutNotifier(initCtx, cfg.Email.AWSRegion, cfg.Email.FromAddress, cfg.Email.SupportURL, emailHasher, logger)
		initCancel()
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	}

	// Initialize services
	lockoutPolicy := auth.LockoutPolicy{
		Threshold: cfg.Lockout.Threshold,
		Duration:  cfg.Lockout.Duration,
	}
	loginService := services.NewLoginService(
		accountRepo,
		verifier,
		lockoutPolicy,
		tokenManager,
		auditService,
		timingDelay,
		notifier,
		emailHasher,
		logger,
	)

	ipResolver, err := pkghttp.NewClientIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Error("invalid trusted proxy configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(loginService, ipResolver)
	healthHandler := handlers.NewHealthHandler(db)

	// Bootstrap first admin account if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminAccount(ctx, accountRepo, cfg.Auth.BcryptCost, logger); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	cancel()

	// Setup router. chi's RealIP is not used: it trusts forwarded headers
	// from any peer, while ipResolver only honours configured proxies.
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipResolver))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	// Register routes
	routes.RegisterRoutes(
		router,
		authHandler,
		healthHandler,
		tokenManager,
		ipResolver,
		middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.RateLimit.LoginRequestsPerMinute},
	)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start audit retention task
	retentionManager := background.NewRetentionManager(auditLogRepo, logger, cfg.Audit.Retention, cfg.Audit.CleanupInterval)
	retentionCtx, retentionCancel := context.WithCancel(context.Background())
	defer retentionCancel()

	go retentionManager.Start(retentionCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	retentionCancel()
	retentionManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	// Flush queued audit records after in-flight requests have finished
	if err := auditService.Close(shutdownCtx); err != nil {
		logger.Error("audit flush incomplete", slog.Any("error", err))
	}
	if sesNotifier != nil {
		sesNotifier.Wait()
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminAccount creates the first admin account if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminAccount(ctx context.Context, accountRepo *repositories.AccountRepository, cost int, logger *slog.Logger) error {
	adminEmail := strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin account creation")
		return nil
	}

	if err := pkgauth.ValidatePassword(adminPassword); err != nil {
		return fmt.Errorf("admin password rejected: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword, cost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	_, err = accountRepo.Create(ctx, &models.Account{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		AccessLevel:  models.AccessLevelAdmin,
		IsActive:     true,
	})
	if errors.Is(err, models.ErrConflict) {
		logger.Info("admin account already exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	logger.Info("admin account created successfully")
	return nil
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
