package routes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/storefront/internal/auth"
	"github.com/BradenHooton/storefront/internal/handlers"
	"github.com/BradenHooton/storefront/internal/middleware"
	"github.com/BradenHooton/storefront/internal/models"
	"github.com/BradenHooton/storefront/internal/routes"
	"github.com/BradenHooton/storefront/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "routes-test-secret-that-is-at-least-32-bytes"

func newRouter(t *testing.T, login *handlers.MockLoginService, perMinute int) (http.Handler, *auth.TokenManager) {
	t.Helper()
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	resolver := &handlers.MockIPResolver{IP: "198.51.100.7"}

	router := chi.NewRouter()
	routes.RegisterRoutes(
		router,
		handlers.NewAuthHandler(login, resolver),
		handlers.NewHealthHandler(&handlers.MockHealthChecker{}),
		tokens,
		resolver,
		middleware.RateLimitConfig{RequestsPerMinute: perMinute},
	)
	return router, tokens
}

func postLogin(router http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"user@example.com","password":"pw"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutes_Health(t *testing.T) {
	router, _ := newRouter(t, &handlers.MockLoginService{}, 10)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_LoginIsRateLimited(t *testing.T) {
	router, _ := newRouter(t, &handlers.MockLoginService{}, 2)

	assert.Equal(t, http.StatusUnauthorized, postLogin(router).Code)
	assert.Equal(t, http.StatusUnauthorized, postLogin(router).Code)
	assert.Equal(t, http.StatusTooManyRequests, postLogin(router).Code)
}

func TestRoutes_LoginThenSession(t *testing.T) {
	var router http.Handler
	var tokens *auth.TokenManager
	login := &handlers.MockLoginService{
		LoginFunc: func(ctx context.Context, email, password, clientIP string) services.LoginOutcome {
			issued, err := tokens.Issue(ctx, &models.Account{
				ID:          "acct-42",
				Email:       email,
				AccessLevel: models.AccessLevelCustomer,
			})
			require.NoError(t, err)
			return services.LoginOutcome{
				Kind:        services.OutcomeSuccess,
				Token:       issued.Token,
				ExpiresIn:   issued.ExpiresIn,
				AccountID:   "acct-42",
				Email:       email,
				AccessLevel: models.AccessLevelCustomer,
			}
		},
	}
	router, tokens = newRouter(t, login, 10)

	w := postLogin(router)
	var resp handlers.LoginResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	require.NotEmpty(t, resp.Token)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var session handlers.SessionResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &session)
	assert.Equal(t, "acct-42", session.UserID)
	assert.Equal(t, models.AccessLevelCustomer, session.AccessLevel)
}

func TestRoutes_SessionRequiresToken(t *testing.T) {
	router, _ := newRouter(t, &handlers.MockLoginService{}, 10)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/session", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
