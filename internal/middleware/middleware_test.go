package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gasfeel/gaspay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})
	handler := NewRequestIDMiddleware().Handler(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeaderName))
}

func TestRequestIDReusesCallerHeader(t *testing.T) {
	handler := NewRequestIDMiddleware().Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	req.Header.Set(RequestIDHeaderName, "caller-id-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "caller-id-1", rec.Header().Get(RequestIDHeaderName))
}

func TestRecoveryMiddlewareTurnsPanicInto500(t *testing.T) {
	handler := NewRecoveryMiddleware(zap.NewNop()).Handler(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimitExhaustion(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, APIRPS: 1, APIBurst: 2, OpsRPS: 1, OpsBurst: 1}
	handler := NewRateLimitMiddleware(cfg, zap.NewNop()).Handler(okHandler())

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
		statuses = append(statuses, rec.Code)
	}

	assert.Equal(t, http.StatusOK, statuses[0])
	assert.Equal(t, http.StatusOK, statuses[1])
	assert.Equal(t, http.StatusTooManyRequests, statuses[2], "burst of 2 exhausted")
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: false}
	handler := NewRateLimitMiddleware(cfg, zap.NewNop()).Handler(okHandler())

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
