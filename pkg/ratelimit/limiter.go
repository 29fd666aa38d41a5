package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config defines rate limiting configuration
type Config struct {
	// RequestsPerWindow is the max requests allowed in the time window; 0 disables limiting
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows temporary bursts above the rate (local limiter only)
	Burst int
	// TrustedProxies lists IPs or CIDR ranges whose forwarding headers are believed.
	// Requests from any other peer are keyed by the peer address.
	TrustedProxies []string
}

// DefaultConfig returns default rate limit settings
func DefaultConfig() Config {
	return Config{
		RequestsPerWindow: 60,
		Window:            time.Minute,
		Burst:             10,
	}
}

// Enabled reports whether c limits anything
func (c Config) Enabled() bool {
	return c.RequestsPerWindow > 0 && c.Window > 0
}

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Config() Config
}

// LocalLimiter implements rate limiting using a token bucket per key
type LocalLimiter struct {
	cfg     Config
	buckets map[string]*bucket
	mu      sync.Mutex
	now     func() time.Time
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewLocalLimiter creates an in-process limiter
func NewLocalLimiter(cfg Config) *LocalLimiter {
	return &LocalLimiter{
		cfg:     cfg,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Config returns the limiter settings
func (l *LocalLimiter) Config() Config {
	return l.cfg
}

func (l *LocalLimiter) capacity() float64 {
	return float64(l.cfg.RequestsPerWindow + l.cfg.Burst)
}

// Allow takes one token from key's bucket, refilling it for the time elapsed
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{tokens: l.capacity(), lastUpdate: now}
		l.buckets[key] = b
	}

	// Refill tokens based on elapsed time
	elapsed := now.Sub(b.lastUpdate)
	b.tokens += elapsed.Seconds() * float64(l.cfg.RequestsPerWindow) / l.cfg.Window.Seconds()
	if b.tokens > l.capacity() {
		b.tokens = l.capacity()
	}
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

// Len returns the number of tracked keys
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Cleanup removes buckets idle for two windows; they would be full again anyway
func (l *LocalLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, b := range l.buckets {
		if now.Sub(b.lastUpdate) > l.cfg.Window*2 {
			delete(l.buckets, key)
		}
	}
}

// StartCleanup runs Cleanup every window until ctx is done
func (l *LocalLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.Window)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}
