package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/handoff/pkg/sso"
)

const BackendRedis = "redis"

// RedisConfig configures RedisStore
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
}

// RedisStore keeps tokens in Redis as JSON with native key expiry
type RedisStore struct {
	client redis.UniversalClient
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB > 0 {
		opts.DB = cfg.DB
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Put stores tok under key for ttl, replacing any previous value
func (s *RedisStore) Put(ctx context.Context, key string, tok *sso.SSOToken, ttl time.Duration) error {
	if tok == nil {
		return ErrNilToken
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Get returns the token under key, or nil on a miss
func (s *RedisStore) Get(ctx context.Context, key string) (*sso.SSOToken, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return s.decode(ctx, key, data)
}

// GetDel atomically returns and removes the token under key
func (s *RedisStore) GetDel(ctx context.Context, key string) (*sso.SSOToken, error) {
	data, err := s.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("redis getdel failed: %w", err)
	}
	return s.decode(ctx, key, data)
}

func (s *RedisStore) decode(ctx context.Context, key string, data []byte) (*sso.SSOToken, error) {
	var tok sso.SSOToken
	if err := json.Unmarshal(data, &tok); err != nil {
		s.client.Del(ctx, key)
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return &tok, nil
}

// Ping checks Redis connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Backend returns "redis"
func (s *RedisStore) Backend() string {
	return BackendRedis
}

// Client returns the underlying Redis client for health checks
func (s *RedisStore) Client() redis.UniversalClient {
	return s.client
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
