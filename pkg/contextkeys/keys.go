// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here so that key
// usage stays discoverable.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/handoff/pkg/contextkeys"
//	ctx = contextkeys.WithRequestID(ctx, id)
//	id := contextkeys.GetRequestID(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, handshake tracing
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains the uid a handshake resolved to
	// Set by: Host session layer after a successful callback
	// Used by: Logger
	// Type: string
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Set by: httputil.LoggingMiddleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"

	// SSOClientKey contains the name of the SSO client serving the request
	// Set by: sso.Handlers
	// Used by: Logger
	// Type: string
	SSOClientKey Key = "sso_client"
)

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// WithSSOClient adds the SSO client name to the context
func WithSSOClient(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, SSOClientKey, name)
}

// GetSSOClient retrieves the SSO client name from context
func GetSSOClient(ctx context.Context) string {
	if name, ok := ctx.Value(SSOClientKey).(string); ok {
		return name
	}
	return ""
}
