package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAllowEnforcesLimit(t *testing.T) {
	l := NewLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("1.2.3.4")
		require.True(t, ok, "request %d should pass", i+1)
	}

	ok, retry := l.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.Positive(t, retry)
}

func TestKeysAreIndependent(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	ok, _ := l.Allow("1.2.3.4")
	require.True(t, ok)
	ok, _ = l.Allow("1.2.3.4")
	require.False(t, ok)

	ok, _ = l.Allow("5.6.7.8")
	assert.True(t, ok, "a busy neighbour must not starve other clients")
}

func TestWindowExpiry(t *testing.T) {
	l := NewLimiter(1, 20*time.Millisecond)

	ok, _ := l.Allow("1.2.3.4")
	require.True(t, ok)
	ok, _ = l.Allow("1.2.3.4")
	require.False(t, ok)

	time.Sleep(30 * time.Millisecond)

	ok, _ = l.Allow("1.2.3.4")
	assert.True(t, ok, "requests outside the window no longer count")
}

func TestReset(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	_, _ = l.Allow("1.2.3.4")
	ok, _ := l.Allow("1.2.3.4")
	require.False(t, ok)

	l.Reset("1.2.3.4")

	ok, _ = l.Allow("1.2.3.4")
	assert.True(t, ok)
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	handler := Middleware(l, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "1.2.3.4:51234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"message":"Too many requests, slow down"}`, rec.Body.String())
}
