package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

// Limiter throttles requests per purpose and key
type Limiter interface {
	// Allow records one request for key and reports whether it is within the limit.
	Allow(ctx context.Context, purpose, key string) (bool, error)

	// StartCooldown begins a cooldown for key. It returns false when one is
	// already running.
	StartCooldown(ctx context.Context, purpose, key string) (bool, error)

	// EndCooldown releases a running cooldown for key.
	EndCooldown(ctx context.Context, purpose, key string) error
}

// Config holds the fixed window and cooldown settings
type Config struct {
	Requests int           // allowed requests per window and key
	Window   time.Duration // window length
	Cooldown time.Duration // minimum gap between cooldown-guarded actions
}

// DefaultConfig allows 10 requests per 15 minutes and a 2 minute cooldown
func DefaultConfig() Config {
	return Config{
		Requests: 10,
		Window:   15 * time.Minute,
		Cooldown: 2 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Requests <= 0 {
		c.Requests = def.Requests
	}
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.Cooldown <= 0 {
		c.Cooldown = def.Cooldown
	}
	return c
}

// ClientIP extracts the client IP address from the request.
// RemoteAddr has already been rewritten by the RealIP middleware when the
// request came through a trusted proxy.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
