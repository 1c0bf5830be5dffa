package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims carried by an issued bearer token
type TokenClaims struct {
	Type        string      `json:"type"`
	UserID      string      `json:"user_id"`
	Email       string      `json:"email,omitempty"`
	AccessLevel AccessLevel `json:"access_level"`
	jwt.RegisteredClaims
}

// IssuedToken is an opaque bearer credential and its lifetime
type IssuedToken struct {
	Token     string
	ExpiresIn time.Duration
}
