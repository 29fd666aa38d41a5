package sso

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsernameProfileCreator(t *testing.T) {
	creds := NewCredentials("ABC", "bizdock")
	creds.SetUsername("alice")

	profile, err := NewUsernameProfileCreator().Create(creds)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.ID)
	assert.Equal(t, "bizdock", profile.ClientName)
	assert.Equal(t, map[string]string{AttributeUsername: "alice"}, profile.Attributes)
}

func TestUsernameProfileCreator_Unvalidated(t *testing.T) {
	profile, err := NewUsernameProfileCreator().Create(NewCredentials("ABC", "bizdock"))
	assert.ErrorIs(t, err, ErrCredentialsNotValidated)
	assert.Nil(t, profile)
}

func TestCredentials(t *testing.T) {
	token := strings.Repeat("A", TokenLength)
	creds := NewCredentials(token, "bizdock")

	assert.Equal(t, token, creds.Token())
	assert.Equal(t, "bizdock", creds.ClientName())

	username, ok := creds.Username()
	assert.False(t, ok)
	assert.Empty(t, username)

	creds.SetUsername("alice")
	username, ok = creds.Username()
	assert.True(t, ok)
	assert.Equal(t, "alice", username)
}

func TestCredentials_StringMasksToken(t *testing.T) {
	token := "ABCDEFGH" + strings.Repeat("Z", 120)
	s := NewCredentials(token, "bizdock").String()

	assert.NotContains(t, s, token)
	assert.Contains(t, s, "token=ABCDEFGH***")
	assert.Contains(t, s, "clientName=bizdock")

	assert.Contains(t, NewCredentials("SHORT", "bizdock").String(), "token=***")
}

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientConfig
		wantErr bool
	}{
		{name: "minimal", cfg: testConfig()},
		{name: "blank name", cfg: ClientConfig{LoginURL: "https://idp/login"}, wantErr: true},
		{name: "blank login url", cfg: ClientConfig{Name: "x", LoginURL: "  "}, wantErr: true},
		{name: "same parameter", cfg: ClientConfig{Name: "x", LoginURL: "https://idp/login", TokenParameter: "p", RedirectParameter: "p"}, wantErr: true},
		{name: "distinct parameters", cfg: ClientConfig{Name: "x", LoginURL: "https://idp/login", TokenParameter: "p", RedirectParameter: "q"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfiguration)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestClientConfig_WithDefaultsKeepsOverrides(t *testing.T) {
	cfg := ClientConfig{Name: "x", LoginURL: "https://idp/login", CookieName: "cont", KeyPrefix: "k:"}.WithDefaults()
	assert.Equal(t, "cont", cfg.CookieName)
	assert.Equal(t, "k:", cfg.KeyPrefix)
	assert.Equal(t, DefaultTokenTTL, cfg.TokenTTL)
}
