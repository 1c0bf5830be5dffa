package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/storefront/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T, trusted ...string) *pkghttp.ClientIPResolver {
	t.Helper()
	resolver, err := pkghttp.NewClientIPResolver(trusted)
	require.NoError(t, err)
	return resolver
}

func TestNewClientIPResolver_InvalidEntry(t *testing.T) {
	_, err := pkghttp.NewClientIPResolver([]string{"10.0.0.0/8", "not-a-cidr"})
	assert.Error(t, err)
}

func TestClientIP_DirectConnection_IgnoresHeaders(t *testing.T) {
	resolver := newResolver(t, "10.0.0.0/8")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "203.0.113.50:41234"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	req.Header.Set("X-Real-IP", "5.6.7.8")

	assert.Equal(t, "203.0.113.50", resolver.ClientIP(req))
}

func TestClientIP_NoTrustedProxies_IgnoresHeaders(t *testing.T) {
	resolver := newResolver(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "127.0.0.1:5000"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	assert.Equal(t, "127.0.0.1", resolver.ClientIP(req))
}

func TestClientIP_TrustedProxy_UsesXForwardedFor(t *testing.T) {
	resolver := newResolver(t, "10.0.0.0/8")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.5:8080"
	req.Header.Set("X-Forwarded-For", "198.51.100.23")

	assert.Equal(t, "198.51.100.23", resolver.ClientIP(req))
}

func TestClientIP_TrustedProxy_SkipsSpoofedLeftmostEntry(t *testing.T) {
	resolver := newResolver(t, "10.0.0.0/8")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.5:8080"
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 198.51.100.23, 10.0.0.9")

	assert.Equal(t, "198.51.100.23", resolver.ClientIP(req))
}

func TestClientIP_TrustedProxy_MalformedHopFallsBackToRealIP(t *testing.T) {
	resolver := newResolver(t, "10.0.0.5")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.5:8080"
	req.Header.Set("X-Forwarded-For", "garbage")
	req.Header.Set("X-Real-IP", "198.51.100.77")

	assert.Equal(t, "198.51.100.77", resolver.ClientIP(req))
}

func TestClientIP_IPv6_TrustedProxy(t *testing.T) {
	resolver := newResolver(t, "2001:db8::/32")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "[2001:db8::1]:8080"
	req.Header.Set("X-Forwarded-For", "2001:db9::42")

	assert.Equal(t, "2001:db9::42", resolver.ClientIP(req))
}

func TestClientIP_IPv4MappedRemote(t *testing.T) {
	resolver := newResolver(t, "10.0.0.0/8")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "[::ffff:10.0.0.5]:8080"
	req.Header.Set("X-Forwarded-For", "198.51.100.23")

	assert.Equal(t, "198.51.100.23", resolver.ClientIP(req))
}

func TestClientIP_RemoteAddrWithoutPort(t *testing.T) {
	resolver := newResolver(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "192.0.2.1"

	assert.Equal(t, "192.0.2.1", resolver.ClientIP(req))
}

func TestClientIP_EmptyRemoteAddr(t *testing.T) {
	resolver := newResolver(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = ""

	assert.Equal(t, "unknown", resolver.ClientIP(req))
}
