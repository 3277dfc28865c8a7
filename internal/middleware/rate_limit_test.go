package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitByIP_AllowsUnderLimit(t *testing.T) {
	limited := RateLimitByIP(RateLimitConfig{Requests: 5, Window: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		rec := httptest.NewRecorder()

		limited.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitByIP_BlocksOverLimit(t *testing.T) {
	limited := RateLimitByIP(RateLimitConfig{Requests: 3, Window: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	var lastCode int
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "192.0.2.20:1234"
		rec := httptest.NewRecorder()

		limited.ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestRateLimitByIP_SeparateCountersPerIP(t *testing.T) {
	limited := RateLimitByIP(RateLimitConfig{Requests: 1, Window: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	first := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	first.RemoteAddr = "192.0.2.30:1234"
	recFirst := httptest.NewRecorder()
	limited.ServeHTTP(recFirst, first)

	second := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	second.RemoteAddr = "192.0.2.31:1234"
	recSecond := httptest.NewRecorder()
	limited.ServeHTTP(recSecond, second)

	assert.Equal(t, http.StatusOK, recFirst.Code)
	assert.Equal(t, http.StatusOK, recSecond.Code)
}
