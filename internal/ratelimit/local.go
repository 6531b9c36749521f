package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LocalLimiter is an in-process limiter for single-instance deployments.
// Each key gets a token bucket refilling Requests tokens per Window.
type LocalLimiter struct {
	config Config
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*entry
	cooldowns map[string]time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewLocalLimiter creates a limiter and starts its background cleanup
func NewLocalLimiter(config Config) *LocalLimiter {
	l := newLocalLimiter(config, time.Now)
	go l.cleanupLoop()
	return l
}

func newLocalLimiter(config Config, now func() time.Time) *LocalLimiter {
	return &LocalLimiter{
		config:    config.withDefaults(),
		now:       now,
		buckets:   make(map[string]*entry),
		cooldowns: make(map[string]time.Time),
		stopCh:    make(chan struct{}),
	}
}

// Stop ends the background cleanup
func (l *LocalLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *LocalLimiter) Allow(_ context.Context, purpose, key string) (bool, error) {
	k := purpose + ":" + key
	now := l.now()

	l.mu.Lock()
	e, ok := l.buckets[k]
	if !ok {
		every := l.config.Window / time.Duration(l.config.Requests)
		e = &entry{limiter: rate.NewLimiter(rate.Every(every), l.config.Requests)}
		l.buckets[k] = e
	}
	e.lastAccess = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1), nil
}

func (l *LocalLimiter) StartCooldown(_ context.Context, purpose, key string) (bool, error) {
	k := purpose + ":" + key
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.cooldowns[k]; ok && now.Before(until) {
		return false, nil
	}
	l.cooldowns[k] = now.Add(l.config.Cooldown)
	return true, nil
}

func (l *LocalLimiter) EndCooldown(_ context.Context, purpose, key string) error {
	l.mu.Lock()
	delete(l.cooldowns, purpose+":"+key)
	l.mu.Unlock()
	return nil
}

func (l *LocalLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.Window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// cleanup drops buckets idle for two windows and finished cooldowns
func (l *LocalLimiter) cleanup() {
	now := l.now()
	idle := 2 * l.config.Window

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.buckets {
		if now.Sub(e.lastAccess) > idle {
			delete(l.buckets, k)
		}
	}
	for k, until := range l.cooldowns {
		if !now.Before(until) {
			delete(l.cooldowns, k)
		}
	}
}
