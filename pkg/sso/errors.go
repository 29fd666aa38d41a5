package sso

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyUID is returned when a token is requested for a blank user identifier
	ErrEmptyUID = errors.New("uid cannot be blank")

	// ErrMissingParameter is returned when the callback lacks the token or redirect parameter
	ErrMissingParameter = errors.New("missing handshake parameter")

	// ErrTokenNotFound is returned when a token is absent or expired in the token store
	ErrTokenNotFound = errors.New("sso token not found")

	// ErrTokenStoreUnavailable is returned when the token store could not be reached
	ErrTokenStoreUnavailable = errors.New("token store unavailable")

	// ErrCredentialsNotValidated is returned when a profile is built from unvalidated credentials
	ErrCredentialsNotValidated = errors.New("credentials have no resolved username")

	// ErrConfiguration is returned when a client is built from an invalid configuration
	ErrConfiguration = errors.New("invalid sso client configuration")

	// ErrClientNotFound is returned when no client is registered under a name
	ErrClientNotFound = errors.New("sso client not found")

	// ErrDuplicateClient is returned when two clients are registered under the same name
	ErrDuplicateClient = errors.New("sso client already registered")
)

// RedirectError is the terminal failure of a handshake. The browser must be sent to
// URL; Cause carries the internal reason and never reaches the browser.
type RedirectError struct {
	URL    string
	Reason string
	Cause  error
}

func (e *RedirectError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s -> redirect to %s: %v", e.Reason, e.URL, e.Cause)
	}
	return fmt.Sprintf("%s -> redirect to %s", e.Reason, e.URL)
}

func (e *RedirectError) Unwrap() error {
	return e.Cause
}

func configError(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrConfiguration, field, reason)
}
