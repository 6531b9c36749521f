package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubLimiter struct {
	allowed bool
	err     error
}

func (s stubLimiter) Allow(context.Context, string, string) (bool, error) {
	return s.allowed, s.err
}

func (s stubLimiter) StartCooldown(context.Context, string, string) (bool, error) {
	return true, nil
}

func (s stubLimiter) EndCooldown(context.Context, string, string) error {
	return nil
}

func serve(limiter Limiter) *httptest.ResponseRecorder {
	handler := Middleware(limiter, "login", 15*time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	t.Run("allowed passes through", func(t *testing.T) {
		rec := serve(stubLimiter{allowed: true})
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("limited returns 429 with Retry-After", func(t *testing.T) {
		rec := serve(stubLimiter{allowed: false})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "900", rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), `"status":"fail"`)
	})

	t.Run("limiter failure lets request through", func(t *testing.T) {
		rec := serve(stubLimiter{err: errors.New("redis down")})
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	assert.Equal(t, "203.0.113.7", ClientIP(req))

	req.RemoteAddr = "203.0.113.8"
	assert.Equal(t, "203.0.113.8", ClientIP(req))
}
