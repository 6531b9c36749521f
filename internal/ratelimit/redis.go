package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// RedisLimiter keeps fixed-window counters in Redis so limits hold across
// instances
type RedisLimiter struct {
	client *redis.Client
	config Config
}

func NewRedisLimiter(client *redis.Client, config Config) *RedisLimiter {
	return &RedisLimiter{client: client, config: config.withDefaults()}
}

func windowKey(purpose, key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, key)
}

func cooldownKey(purpose, key string) string {
	return fmt.Sprintf("cooldown:%s:%s", purpose, key)
}

func (l *RedisLimiter) Allow(ctx context.Context, purpose, key string) (bool, error) {
	k := windowKey(purpose, key)

	// Window starts at the first request; later requests keep its TTL.
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, oops.Code("RATE_LIMIT_UNAVAILABLE").With("purpose", purpose).Wrap(err)
	}

	return incr.Val() <= int64(l.config.Requests), nil
}

func (l *RedisLimiter) StartCooldown(ctx context.Context, purpose, key string) (bool, error) {
	started, err := l.client.SetNX(ctx, cooldownKey(purpose, key), "1", l.config.Cooldown).Result()
	if err != nil {
		return false, oops.Code("RATE_LIMIT_UNAVAILABLE").With("purpose", purpose).Wrap(err)
	}
	return started, nil
}

func (l *RedisLimiter) EndCooldown(ctx context.Context, purpose, key string) error {
	if err := l.client.Del(ctx, cooldownKey(purpose, key)).Err(); err != nil {
		return oops.Code("RATE_LIMIT_UNAVAILABLE").With("purpose", purpose).Wrap(err)
	}
	return nil
}
