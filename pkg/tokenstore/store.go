package tokenstore

import (
	"context"

	"github.com/platinummonkey/handoff/pkg/sso"
)

// Store is a token store backend with a connection lifecycle
type Store interface {
	sso.TokenStore

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error

	// Backend names the implementation for logs and metrics
	Backend() string

	// Close releases backend resources
	Close() error
}
