package sso

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Provider is the capability a host authentication pipeline registers: one leg that
// starts the handshake and one that completes it
type Provider interface {
	// Name returns the client name the provider is registered under
	Name() string

	// RedirectNeeded reports whether the request has no handshake in progress
	RedirectNeeded(r *http.Request) bool

	// InitiateRedirect sends the browser to the login form
	InitiateRedirect(w http.ResponseWriter, r *http.Request)

	// HandleCallback redeems the token in r. Failures are *RedirectError values.
	HandleCallback(w http.ResponseWriter, r *http.Request) (*Credentials, error)
}

var _ Provider = (*Client)(nil)

// Registry holds independently configured providers keyed by client name
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a registry holding providers
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a provider. Names must be non-blank and unique.
func (r *Registry) Register(p Provider) error {
	name := p.Name()
	if strings.TrimSpace(name) == "" {
		return configError("name", "cannot be blank")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateClient, name)
	}
	r.providers[name] = p
	return nil
}

// Replace swaps the whole provider set in one step. Nothing changes if any provider
// is invalid, so in-flight requests always see either the old set or the new one.
func (r *Registry) Replace(providers ...Provider) error {
	next := make(map[string]Provider, len(providers))
	for _, p := range providers {
		name := p.Name()
		if strings.TrimSpace(name) == "" {
			return configError("name", "cannot be blank")
		}
		if _, exists := next[name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateClient, name)
		}
		next[name] = p
	}

	r.mu.Lock()
	r.providers = next
	r.mu.Unlock()
	return nil
}

// Get returns the provider registered under name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClientNotFound, name)
	}
	return p, nil
}

// Names returns the registered client names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
