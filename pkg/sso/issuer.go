package sso

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Issuer is the identity-provider side of the handshake: it mints a token for a user
// and deposits it in the shared store, where a Client later redeems it
type Issuer struct {
	store  TokenStore
	prefix string
	ttl    time.Duration
}

// NewIssuer creates an issuer writing under prefix with the given ttl
func NewIssuer(store TokenStore, prefix string, ttl time.Duration) *Issuer {
	if prefix == "" {
		prefix = CachePrefix
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{store: store, prefix: prefix, ttl: ttl}
}

// NewIssuerForClient creates an issuer whose keys and ttl match cfg
func NewIssuerForClient(store TokenStore, cfg ClientConfig) *Issuer {
	cfg = cfg.WithDefaults()
	return NewIssuer(store, cfg.KeyPrefix, cfg.TokenTTL)
}

// TTL returns how long issued tokens stay redeemable
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue mints a token vouching for uid and stores it
func (i *Issuer) Issue(ctx context.Context, uid string) (*SSOToken, error) {
	tok, err := NewSSOToken(uid)
	if err != nil {
		return nil, err
	}

	if err := i.store.Put(ctx, CacheKey(i.prefix, tok.Token), tok, i.ttl); err != nil {
		return nil, fmt.Errorf("%w: failed to store token: %v", ErrTokenStoreUnavailable, err)
	}
	return tok, nil
}

// HandoffURL returns the callback URL the identity provider redirects the browser to
func HandoffURL(callbackURL string, cfg ClientConfig, token, redirect string) (string, error) {
	cfg = cfg.WithDefaults()

	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", fmt.Errorf("invalid callback URL: %w", err)
	}
	q := u.Query()
	q.Set(cfg.TokenParameter, token)
	q.Set(cfg.RedirectParameter, redirect)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
