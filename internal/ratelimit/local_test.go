package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(cfg Config) (*LocalLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	return newLocalLimiter(cfg, clock.Now), clock
}

func TestLocalLimiter_AllowsUpToLimitThenRejects(t *testing.T) {
	l, _ := newTestLimiter(Config{Requests: 3, Window: time.Minute, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "login", "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i+1)
	}

	ok, err := l.Allow(ctx, "login", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalLimiter_KeysAndPurposesAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(Config{Requests: 1, Window: time.Minute, Cooldown: time.Minute})
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "login", "10.0.0.1")
	assert.True(t, ok)

	ok, _ = l.Allow(ctx, "login", "10.0.0.2")
	assert.True(t, ok, "different IP")

	ok, _ = l.Allow(ctx, "signup", "10.0.0.1")
	assert.True(t, ok, "different purpose")

	ok, _ = l.Allow(ctx, "login", "10.0.0.1")
	assert.False(t, ok)
}

func TestLocalLimiter_RefillsOverTime(t *testing.T) {
	l, clock := newTestLimiter(Config{Requests: 2, Window: time.Minute, Cooldown: time.Minute})
	ctx := context.Background()

	l.Allow(ctx, "login", "ip")
	l.Allow(ctx, "login", "ip")
	ok, _ := l.Allow(ctx, "login", "ip")
	require.False(t, ok)

	clock.Advance(30 * time.Second)
	ok, _ = l.Allow(ctx, "login", "ip")
	assert.True(t, ok)
}

func TestLocalLimiter_Cooldown(t *testing.T) {
	l, clock := newTestLimiter(Config{Requests: 1, Window: time.Minute, Cooldown: 2 * time.Minute})
	ctx := context.Background()

	started, err := l.StartCooldown(ctx, "forgot_password", "a@example.com")
	require.NoError(t, err)
	assert.True(t, started)

	started, _ = l.StartCooldown(ctx, "forgot_password", "a@example.com")
	assert.False(t, started)

	clock.Advance(2 * time.Minute)
	started, _ = l.StartCooldown(ctx, "forgot_password", "a@example.com")
	assert.True(t, started)

	require.NoError(t, l.EndCooldown(ctx, "forgot_password", "a@example.com"))
	started, _ = l.StartCooldown(ctx, "forgot_password", "a@example.com")
	assert.True(t, started)
}

func TestLocalLimiter_CleanupDropsIdleEntries(t *testing.T) {
	l, clock := newTestLimiter(Config{Requests: 1, Window: time.Minute, Cooldown: time.Minute})
	ctx := context.Background()

	l.Allow(ctx, "login", "ip")
	l.StartCooldown(ctx, "forgot_password", "a@example.com")

	clock.Advance(3 * time.Minute)
	l.cleanup()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.buckets)
	assert.Empty(t, l.cooldowns)
}

func TestLocalLimiter_StopIsIdempotent(t *testing.T) {
	l := NewLocalLimiter(DefaultConfig())
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestLocalLimiter_StopEndsCleanupGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := NewLocalLimiter(Config{Requests: 1, Window: time.Millisecond, Cooldown: time.Millisecond})
	time.Sleep(5 * time.Millisecond)
	l.Stop()
}
