package sso

import (
	"context"
	"time"
)

// TokenStore is the shared expiring cache used as the trust bridge between the
// identity provider and this application. Implementations live in pkg/tokenstore.
type TokenStore interface {
	// Put stores value under key for ttl, silently overwriting any existing entry
	Put(ctx context.Context, key string, value *SSOToken, ttl time.Duration) error

	// Get returns the token stored under key, or nil (and no error) when the key was
	// never set or has expired
	Get(ctx context.Context, key string) (*SSOToken, error)

	// GetDel atomically returns and removes the token stored under key. It has the
	// same miss semantics as Get.
	GetDel(ctx context.Context, key string) (*SSOToken, error)
}
