package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/storefront/internal/auth"
	"github.com/BradenHooton/storefront/internal/models"
	"github.com/BradenHooton/storefront/internal/services"
	pkghttp "github.com/BradenHooton/storefront/pkg/http"
)

const maxLoginBodyBytes = 64 << 10

// Response messages for login failures. Every authentication failure other
// than an active lock shares one message.
const (
	msgInvalidRequest     = "Email and password are required"
	msgInvalidBody        = "Invalid request body"
	msgInvalidCredentials = "Invalid email or password"
	msgInternalError      = "An internal error occurred, please try again later"
)

// LoginServiceInterface defines the login orchestration used by the handler
type LoginServiceInterface interface {
	Login(ctx context.Context, email, password, clientIP string) services.LoginOutcome
}

// ClientIPResolver determines the originating address of a request
type ClientIPResolver interface {
	ClientIP(r *http.Request) string
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service    LoginServiceInterface
	ipResolver ClientIPResolver
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service LoginServiceInterface, ipResolver ClientIPResolver) *AuthHandler {
	return &AuthHandler{
		service:    service,
		ipResolver: ipResolver,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

// LoginResponse is returned on successful authentication
type LoginResponse struct {
	Token       string             `json:"token"`
	TokenType   string             `json:"tokenType"`
	ExpiresIn   int64              `json:"expiresIn"`
	UserID      string             `json:"userId"`
	Email       string             `json:"email"`
	AccessLevel models.AccessLevel `json:"accessLevel"`
}

// SessionResponse describes the bearer token presented with the request
type SessionResponse struct {
	UserID      string             `json:"userId"`
	Email       string             `json:"email"`
	AccessLevel models.AccessLevel `json:"accessLevel"`
	ExpiresAt   time.Time          `json:"expiresAt"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, msgInvalidBody)
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, msgInvalidRequest)
		return
	}

	outcome := h.service.Login(r.Context(), req.Email, req.Password, h.clientIP(r))

	switch outcome.Kind {
	case services.OutcomeSuccess:
		pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
			Token:       outcome.Token,
			TokenType:   "Bearer",
			ExpiresIn:   int64(outcome.ExpiresIn / time.Second),
			UserID:      outcome.AccountID,
			Email:       outcome.Email,
			AccessLevel: outcome.AccessLevel,
		})
	case services.OutcomeInvalidRequest:
		pkghttp.WriteBadRequest(w, msgInvalidRequest)
	case services.OutcomeUnauthorized:
		if outcome.Reason == services.ReasonLocked {
			minutes := lockedMinutes(outcome.RetryAfter)
			w.Header().Set("Retry-After", strconv.Itoa(minutes*60))
			pkghttp.WriteUnauthorized(w, fmt.Sprintf(
				"Account is temporarily locked due to too many failed login attempts. Try again in %d minute(s).", minutes))
			return
		}
		pkghttp.WriteUnauthorized(w, msgInvalidCredentials)
	default:
		pkghttp.WriteInternalError(w, msgInternalError)
	}
}

// Session handles GET /auth/session. It must be mounted behind auth.AuthMiddleware.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	resp := SessionResponse{
		UserID:      claims.UserID,
		Email:       claims.Email,
		AccessLevel: claims.AccessLevel,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) clientIP(r *http.Request) string {
	if h.ipResolver == nil {
		return r.RemoteAddr
	}
	return h.ipResolver.ClientIP(r)
}

// lockedMinutes rounds the remaining lock up to whole minutes, never below one
func lockedMinutes(remaining time.Duration) int {
	minutes := int(math.Ceil(remaining.Minutes()))
	if minutes < 1 {
		return 1
	}
	return minutes
}
