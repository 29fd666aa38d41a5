package sso

import (
	"context"
	"fmt"
)

// Authenticator validates credentials against a token store, populating the
// username on success
type Authenticator interface {
	Validate(ctx context.Context, store TokenStore, creds *Credentials) error
}

// CacheAuthenticator resolves a token by reading prefix+token from the store.
//
// By default a token is not removed after redemption: validating the same live token
// twice succeeds twice with the same uid. With singleUse the lookup is a GetDel and
// a second redemption fails with ErrTokenNotFound.
type CacheAuthenticator struct {
	prefix    string
	singleUse bool
}

// NewCacheAuthenticator creates an authenticator reading keys under prefix
func NewCacheAuthenticator(prefix string, singleUse bool) *CacheAuthenticator {
	return &CacheAuthenticator{prefix: prefix, singleUse: singleUse}
}

// Validate looks up the credentials' token and sets the username it vouches for
func (a *CacheAuthenticator) Validate(ctx context.Context, store TokenStore, creds *Credentials) error {
	key := CacheKey(a.prefix, creds.Token())

	var (
		tok *SSOToken
		err error
	)
	if a.singleUse {
		tok, err = store.GetDel(ctx, key)
	} else {
		tok, err = store.Get(ctx, key)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenStoreUnavailable, err)
	}
	if tok == nil {
		return ErrTokenNotFound
	}

	creds.SetUsername(tok.UID)
	return nil
}
