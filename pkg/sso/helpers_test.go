package sso

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/platinummonkey/handoff/pkg/observability"
)

// mapStore is an in-memory TokenStore with failure injection
type mapStore struct {
	mu      sync.Mutex
	entries map[string]SSOToken
	err     error
	delay   time.Duration
	gets    int
	getDels int
}

func newMapStore() *mapStore {
	return &mapStore{entries: make(map[string]SSOToken)}
}

func (s *mapStore) Put(_ context.Context, key string, value *SSOToken, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries[key] = *value
	return nil
}

func (s *mapStore) Get(ctx context.Context, key string) (*SSOToken, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.lookup(ctx, key, false)
}

func (s *mapStore) GetDel(ctx context.Context, key string) (*SSOToken, error) {
	s.mu.Lock()
	s.getDels++
	s.mu.Unlock()
	return s.lookup(ctx, key, true)
}

func (s *mapStore) lookup(ctx context.Context, key string, del bool) (*SSOToken, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	tok, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if del {
		delete(s.entries, key)
	}
	return &tok, nil
}

func (s *mapStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// spyAuthenticator counts calls and returns a fixed result
type spyAuthenticator struct {
	calls    int
	err      error
	username string
}

func (a *spyAuthenticator) Validate(_ context.Context, _ TokenStore, creds *Credentials) error {
	a.calls++
	if a.err != nil {
		return a.err
	}
	creds.SetUsername(a.username)
	return nil
}

// handshakeRecorder captures handshake outcomes
type handshakeRecorder struct {
	observability.NopRecorder
	mu       sync.Mutex
	outcomes []string
	issued   []string
}

func (r *handshakeRecorder) RecordHandshake(_ context.Context, _ string, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *handshakeRecorder) RecordTokenIssued(_ context.Context, client string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued = append(r.issued, client)
}

func testLogger(buf *bytes.Buffer) *observability.Logger {
	return observability.NewLogger(observability.DebugLevel, buf)
}

func testConfig() ClientConfig {
	return ClientConfig{
		Name:     "bizdock",
		LoginURL: "https://idp.example.com/login",
	}
}
