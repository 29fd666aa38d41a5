package sso

import (
	"crypto/rand"
	"strings"
)

const (
	// CachePrefix namespaces SSO tokens inside a shared cache
	CachePrefix = "sso_token."

	// TokenAlphabet is the symbol set tokens are drawn from
	TokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// TokenLength is the number of characters in a minted token
	TokenLength = 128

	// rejectAbove is the largest multiple of len(TokenAlphabet) that fits in a byte;
	// bytes at or above it are redrawn so b % 36 stays uniform.
	rejectAbove = 252
)

// SSOToken binds an opaque, high-entropy token to the user an identity provider
// vouches for. Values are immutable once minted.
type SSOToken struct {
	Token string `json:"token"`
	UID   string `json:"uid"`
}

// NewSSOToken mints a token for uid.
//
// Each of the TokenLength characters is an independent uniform draw from
// crypto/rand over TokenAlphabet (about 661 bits in total). crypto/rand aborts the
// process if the system entropy source fails, so there is no error path for it.
func NewSSOToken(uid string) (*SSOToken, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, ErrEmptyUID
	}
	return &SSOToken{Token: randomToken(), UID: uid}, nil
}

// CacheKey returns the token store key for token under prefix
func CacheKey(prefix, token string) string {
	return prefix + token
}

func randomToken() string {
	out := make([]byte, 0, TokenLength)
	buf := make([]byte, TokenLength)
	for len(out) < TokenLength {
		rand.Read(buf)
		for _, b := range buf {
			if b >= rejectAbove {
				continue
			}
			out = append(out, TokenAlphabet[int(b)%len(TokenAlphabet)])
			if len(out) == TokenLength {
				break
			}
		}
	}
	return string(out)
}
