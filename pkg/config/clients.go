package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/handoff/pkg/sso"
)

// ClientsFile is the document read from HANDOFF_CLIENTS_FILE:
//
//	clients:
//	  - name: bizdock
//	    login_url: https://idp.example.com/login
//	    lookup_timeout: 2s
//	  - name: partner
//	    login_url: https://partner.example.com/signin
//	    token_parameter: t
//	    single_use: true
type ClientsFile struct {
	Clients []sso.ClientConfig `yaml:"clients"`
}

// LoadClientsFile reads client definitions from a YAML file
func LoadClientsFile(path string) ([]sso.ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read clients file: %w", err)
	}

	clients, err := ParseClients(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse clients file %s: %w", path, err)
	}
	return clients, nil
}

// ParseClients decodes a clients document. Unknown keys are rejected so that a
// misspelled option does not silently fall back to its default.
func ParseClients(data []byte) ([]sso.ClientConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file ClientsFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return file.Clients, nil
}

// ValidateClients checks every client and rejects an empty set or duplicate names
func ValidateClients(clients []sso.ClientConfig) error {
	if len(clients) == 0 {
		return fmt.Errorf("at least one SSO client is required")
	}

	seen := make(map[string]struct{}, len(clients))
	for i, client := range clients {
		if err := client.WithDefaults().Validate(); err != nil {
			return fmt.Errorf("client %d: %w", i, err)
		}
		if _, dup := seen[client.Name]; dup {
			return fmt.Errorf("%w: %s", sso.ErrDuplicateClient, client.Name)
		}
		seen[client.Name] = struct{}{}
	}
	return nil
}
