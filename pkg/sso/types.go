package sso

import (
	"net/url"
	"strings"
	"time"
)

// Defaults applied by ClientConfig.WithDefaults
const (
	DefaultTokenParameter    = "token"
	DefaultRedirectParameter = "redirect"
	DefaultErrorParameter    = "error"
	DefaultCookieName        = "bzr"
	DefaultLookupTimeout     = 2 * time.Second
	DefaultTokenTTL          = 5 * time.Minute
)

// Messages appended to the login URL on failure. They are deliberately generic.
const (
	ReasonBlankToken       = "token cannot be blank"
	ReasonValidationFailed = "credentials validation failed"
)

// Handshake outcomes reported to metrics and traces
const (
	OutcomeSuccess          = "success"
	OutcomeInitiated        = "initiated"
	OutcomeMissingParameter = "missing_parameter"
	OutcomeTokenNotFound    = "token_not_found"
	OutcomeStoreUnavailable = "store_unavailable"
	OutcomeError            = "error"
)

// ClientConfig is the immutable configuration of one delegation mechanism. Several
// clients with different names may run side by side.
type ClientConfig struct {
	Name              string        `yaml:"name" json:"name"`
	LoginURL          string        `yaml:"login_url" json:"login_url"`
	TokenParameter    string        `yaml:"token_parameter" json:"token_parameter"`
	RedirectParameter string        `yaml:"redirect_parameter" json:"redirect_parameter"`
	ErrorParameter    string        `yaml:"error_parameter" json:"error_parameter"`
	CookieName        string        `yaml:"cookie_name" json:"cookie_name"`
	KeyPrefix         string        `yaml:"key_prefix" json:"key_prefix"`
	LookupTimeout     time.Duration `yaml:"lookup_timeout" json:"lookup_timeout"`
	TokenTTL          time.Duration `yaml:"token_ttl" json:"token_ttl"`
	SingleUse         bool          `yaml:"single_use" json:"single_use"`
}

// WithDefaults returns a copy of c with every unset optional field filled in
func (c ClientConfig) WithDefaults() ClientConfig {
	if c.TokenParameter == "" {
		c.TokenParameter = DefaultTokenParameter
	}
	if c.RedirectParameter == "" {
		c.RedirectParameter = DefaultRedirectParameter
	}
	if c.ErrorParameter == "" {
		c.ErrorParameter = DefaultErrorParameter
	}
	if c.CookieName == "" {
		c.CookieName = DefaultCookieName
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = CachePrefix
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = DefaultLookupTimeout
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = DefaultTokenTTL
	}
	return c
}

// Validate checks the fields a client cannot start without
func (c ClientConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return configError("name", "cannot be blank")
	}
	if strings.TrimSpace(c.LoginURL) == "" {
		return configError("login_url", "cannot be blank")
	}
	if _, err := url.Parse(c.LoginURL); err != nil {
		return configError("login_url", "is not a valid URL: "+err.Error())
	}
	if c.TokenParameter != "" && c.TokenParameter == c.RedirectParameter {
		return configError("token_parameter", "must differ from redirect_parameter")
	}
	return nil
}
