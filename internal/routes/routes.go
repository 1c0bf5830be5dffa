package routes

import (
	"github.com/BradenHooton/storefront/internal/auth"
	"github.com/BradenHooton/storefront/internal/handlers"
	"github.com/BradenHooton/storefront/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	tokenValidator auth.TokenValidator,
	ipResolver middleware.ClientIPResolver,
	rateLimitConfig middleware.RateLimitConfig,
) {
	router.Get("/health", healthHandler.Health)

	// Public routes - no authentication required
	router.With(middleware.RateLimitByIP(rateLimitConfig, ipResolver)).Post("/auth/login", authHandler.Login)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenValidator))
		r.Get("/auth/session", authHandler.Session)
	})
}
