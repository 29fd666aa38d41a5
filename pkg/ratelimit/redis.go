package ratelimit

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisPrefix namespaces limiter counters in a shared Redis
const DefaultRedisPrefix = "handoff_ratelimit"

// RedisLimiter counts requests per fixed window in Redis, so limits hold across replicas
type RedisLimiter struct {
	client redis.UniversalClient
	cfg    Config
	prefix string
}

// NewRedisLimiter creates a Redis-backed limiter
func NewRedisLimiter(client redis.UniversalClient, cfg Config, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisLimiter{client: client, cfg: cfg, prefix: prefix}
}

// Config returns the limiter settings
func (l *RedisLimiter) Config() Config {
	return l.cfg
}

// Allow increments key's counter and reports whether it is still within the window limit
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, fmt.Errorf("rate limit counter: %w", err)
	}
	// the first request opens the window
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.cfg.Window).Err(); err != nil {
			l.client.Del(ctx, redisKey)
			return true, fmt.Errorf("rate limit window: %w", err)
		}
	}

	return count <= int64(l.cfg.RequestsPerWindow), nil
}

// Reset clears the counter for key
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, fmt.Sprintf("%s:%s", l.prefix, key)).Err()
}
