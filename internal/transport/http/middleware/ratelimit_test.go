package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leavetrack/internal/domain/auth"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewBufferString(`{"email":"`+email+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remote
	return req
}

func TestRateLimitUsesUserKeyBeforeIPFallback(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())
	userCtx := WithUser(context.Background(), auth.UserContext{UserID: "user-1"})

	first := httptest.NewRequest(http.MethodPut, "/api/v1/leaves/l1/status", nil).WithContext(userCtx)
	first.RemoteAddr = "198.51.100.11:2222"
	firstRec := httptest.NewRecorder()
	limited.ServeHTTP(firstRec, first)
	require.Equal(t, http.StatusNoContent, firstRec.Code)

	second := httptest.NewRequest(http.MethodPut, "/api/v1/leaves/l1/status", nil).WithContext(userCtx)
	second.RemoteAddr = "198.51.100.12:3333"
	secondRec := httptest.NewRecorder()
	limited.ServeHTTP(secondRec, second)
	assert.Equal(t, http.StatusTooManyRequests, secondRec.Code, "expected throttling by user key")
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())

	firstRec := httptest.NewRecorder()
	limited.ServeHTTP(firstRec, loginRequest("a@example.com", "203.0.113.10:4444"))
	require.Equal(t, http.StatusNoContent, firstRec.Code)

	secondRec := httptest.NewRecorder()
	limited.ServeHTTP(secondRec, loginRequest("b@example.com", "203.0.113.10:5555"))
	assert.Equal(t, http.StatusTooManyRequests, secondRec.Code, "expected throttling by ip key")
}

func TestRateLimitRefills(t *testing.T) {
	limited := RateLimit(1, 40*time.Millisecond)(noContent())

	rec1 := httptest.NewRecorder()
	limited.ServeHTTP(rec1, loginRequest("a@example.com", "192.0.2.20:1111"))
	require.Equal(t, http.StatusNoContent, rec1.Code)

	rec2 := httptest.NewRecorder()
	limited.ServeHTTP(rec2, loginRequest("a@example.com", "192.0.2.20:1111"))
	require.Equal(t, http.StatusTooManyRequests, rec2.Code)

	time.Sleep(60 * time.Millisecond)

	rec3 := httptest.NewRecorder()
	limited.ServeHTTP(rec3, loginRequest("a@example.com", "192.0.2.20:1111"))
	assert.Equal(t, http.StatusNoContent, rec3.Code)
}

func TestRateLimitReturnsRetryMetadata(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())
	limited.ServeHTTP(httptest.NewRecorder(), loginRequest("a@example.com", "192.0.2.30:1234"))

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, loginRequest("a@example.com", "192.0.2.30:1234"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, rec.Body.String(), "rate_limited")
}

func TestSensitiveMutationRateLimitScope(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(noContent())

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/leaves/mine", nil)
		req.RemoteAddr = "198.51.100.40:8888"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, "read request %d should bypass sensitive limits", i+1)
	}

	userCtx := WithUser(context.Background(), auth.UserContext{UserID: "mgr-1", Role: auth.RoleManager})
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/leaves/l9/status", nil).WithContext(userCtx)
		req.RemoteAddr = "198.51.100.41:9999"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		if i < 2 {
			assert.Equal(t, http.StatusNoContent, rec.Code, "review %d", i+1)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code, "third review should be throttled")
		}
	}
}

func TestSensitiveMutationRateLimitLogin(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(noContent())

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, loginRequest("x@example.com", "198.51.100.50:1000"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, loginRequest("x@example.com", "198.51.100.51:1000"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "same email from another ip is still throttled")
}
