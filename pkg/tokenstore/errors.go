package tokenstore

import "errors"

var (
	// ErrUnknownBackend is returned by New for an unsupported store type
	ErrUnknownBackend = errors.New("unknown token store backend")

	// ErrNilToken is returned when putting a nil token
	ErrNilToken = errors.New("token cannot be nil")

	// ErrInvalidTTL is returned when putting with a non-positive ttl
	ErrInvalidTTL = errors.New("ttl must be positive")

	// ErrCorruptEntry is returned when a stored value cannot be decoded. The entry
	// is removed.
	ErrCorruptEntry = errors.New("corrupt token store entry")
)
