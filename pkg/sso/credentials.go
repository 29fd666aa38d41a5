package sso

import "fmt"

// Credentials carry a submitted token through validation. They are request-scoped
// and never persisted.
type Credentials struct {
	token      string
	clientName string
	username   string
	resolved   bool
}

// NewCredentials creates credentials for token as presented to clientName
func NewCredentials(token, clientName string) *Credentials {
	return &Credentials{token: token, clientName: clientName}
}

// Token returns the raw submitted token
func (c *Credentials) Token() string {
	return c.token
}

// ClientName returns the name of the client that produced these credentials
func (c *Credentials) ClientName() string {
	return c.clientName
}

// Username returns the resolved username and whether validation has set it
func (c *Credentials) Username() (string, bool) {
	return c.username, c.resolved
}

// SetUsername records the identity the token vouches for. Authenticators call it
// once, on successful validation.
func (c *Credentials) SetUsername(username string) {
	c.username = username
	c.resolved = true
}

// String never includes the raw token.
func (c *Credentials) String() string {
	return fmt.Sprintf("Credentials{clientName=%s, token=%s, resolved=%t}", c.clientName, maskToken(c.token), c.resolved)
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "***"
}
