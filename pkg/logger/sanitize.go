package logger

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashEmail returns a keyed, irreversible identifier for an email address so
// repeated attempts against one address can be correlated in logs.
func HashEmail(key []byte, email string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(email))
	return hex.EncodeToString(mac.Sum(nil))
}

// EmailHasher binds HashEmail to a fixed key
type EmailHasher struct {
	key []byte
}

func NewEmailHasher(key string) *EmailHasher {
	return &EmailHasher{key: []byte(key)}
}

func (h *EmailHasher) Hash(email string) string {
	return HashEmail(h.key, email)
}

// SanitizeQueryString checks if query string contains sensitive parameters
// and returns true if the entire query string should be redacted
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"password", "token", "secret", "email", "auth", "key",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
