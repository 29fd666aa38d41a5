package tokenstore

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/handoff/pkg/sso"
)

const (
	BackendMemory = "memory"

	// DefaultMemorySize bounds the number of live tokens held in memory
	DefaultMemorySize = 10000

	// DefaultMemoryMaxTTL caps every entry's lifetime regardless of its put ttl
	DefaultMemoryMaxTTL = time.Hour
)

type memoryEntry struct {
	token     sso.SSOToken
	expiresAt time.Time
}

// MemoryStore is a process-local token store backed by an expirable LRU. Every
// entry carries its own expiry, and the LRU's ttl caps how long any entry survives.
type MemoryStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, memoryEntry]
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store holding at most size tokens for at most maxTTL
func NewMemoryStore(size int, maxTTL time.Duration) *MemoryStore {
	if size <= 0 {
		size = DefaultMemorySize
	}
	if maxTTL <= 0 {
		maxTTL = DefaultMemoryMaxTTL
	}
	return &MemoryStore{
		cache: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		now:   time.Now,
	}
}

// Put stores tok under key for ttl, replacing any previous value
func (s *MemoryStore) Put(_ context.Context, key string, tok *sso.SSOToken, ttl time.Duration) error {
	if tok == nil {
		return ErrNilToken
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(key, memoryEntry{token: *tok, expiresAt: s.now().Add(ttl)})
	return nil
}

// Get returns the token under key, or nil on a miss
func (s *MemoryStore) Get(ctx context.Context, key string) (*sso.SSOToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(key), nil
}

// GetDel returns and removes the token under key
func (s *MemoryStore) GetDel(ctx context.Context, key string) (*sso.SSOToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tok := s.lookup(key)
	if tok != nil {
		s.cache.Remove(key)
	}
	return tok, nil
}

// lookup must be called with mu held
func (s *MemoryStore) lookup(key string) *sso.SSOToken {
	entry, ok := s.cache.Get(key)
	if !ok {
		return nil
	}
	if !s.now().Before(entry.expiresAt) {
		s.cache.Remove(key)
		return nil
	}
	tok := entry.token
	return &tok
}

// Len returns the number of entries, including expired ones not yet evicted
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

// Ping always succeeds
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Backend returns "memory"
func (s *MemoryStore) Backend() string {
	return BackendMemory
}

// Close drops all entries
func (s *MemoryStore) Close() error {
	s.cache.Purge()
	return nil
}
