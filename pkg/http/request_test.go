package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/afo-asso/membership-api/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP_UntrustedPeerIgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.Header.Set("X-Real-IP", "192.168.1.1")

	cfg := &pkghttp.IPConfig{
		TrustedProxies: []string{"10.0.0.0/8", "172.16.0.0/12", "127.0.0.1/32"},
	}

	// Forwarding headers from an arbitrary peer are attacker-controlled.
	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, cfg))
}

func TestExtractClientIP_TrustedProxyHonorsXForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "203.0.113.42, 10.0.0.5")

	cfg := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	assert.Equal(t, "203.0.113.42", pkghttp.ExtractClientIP(req, cfg))
}

func TestExtractClientIP_FirstHopWins(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "203.0.113.42, 203.0.113.43, 10.0.0.5")

	cfg := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	// The leftmost entry is the original client; later entries are
	// proxies that appended themselves along the way.
	assert.Equal(t, "203.0.113.42", pkghttp.ExtractClientIP(req, cfg))
}

func TestExtractClientIP_IPv6(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "[::1]:54321"
	req.Header.Set("X-Forwarded-For", "2001:db8::1")

	cfg := &pkghttp.IPConfig{TrustedProxies: []string{"::1/128"}}

	assert.Equal(t, "2001:db8::1", pkghttp.ExtractClientIP(req, cfg))
}

func TestExtractClientIP_NoConfigFallsBackToPeer(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	req.Header.Set("X-Real-IP", "192.168.1.1")

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, nil))
}

func TestExtractClientIP_EmptyProxyListFallsBackToPeer(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	cfg := &pkghttp.IPConfig{TrustedProxies: []string{}}

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, cfg))
}

func TestExtractClientIP_BadCIDRTreatedAsUntrusted(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	cfg := &pkghttp.IPConfig{TrustedProxies: []string{"not-a-cidr"}}

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, cfg))
}

func TestExtractClientIP_StripsPortFromPeer(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, nil))
}

func TestExtractClientIP_CannotClaimLocalhost(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("X-Forwarded-For", "127.0.0.1, 203.0.113.10")

	cfg := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	// Claiming 127.0.0.1 in the header must not dodge per-IP limits.
	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, cfg))
}
