package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/storefront/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultLoginRateLimit returns the default limit for the login endpoint (10 requests per minute)
func DefaultLoginRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 10,
	}
}

// ClientIPResolver determines the originating address of a request
type ClientIPResolver interface {
	ClientIP(r *http.Request) string
}

// RateLimitByIP creates a middleware that rate limits requests by client IP.
// The key comes from the resolver so forwarded headers are honoured only
// behind trusted proxies.
func RateLimitByIP(config RateLimitConfig, resolver ClientIPResolver) func(next http.Handler) http.Handler {
	keyFunc := httprate.KeyByRealIP
	if resolver != nil {
		keyFunc = func(r *http.Request) (string, error) {
			return resolver.ClientIP(r), nil
		}
	}

	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many login attempts, please try again later")
		}),
	)
}
