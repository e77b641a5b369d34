package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrCredential = errors.New("credential unavailable")

// Credential is the API secret. It is loaded once at run start, lives only in
// memory, and is shared read-only across all concurrent units. The type
// redacts itself in formatted output so a stray %v in a log line or error
// message cannot leak the key.
type Credential struct {
	key string
}

// Key returns the raw secret for request construction.
func (c Credential) Key() string { return c.key }

func (c Credential) IsZero() bool { return c.key == "" }

func (c Credential) String() string { return "[redacted]" }

func (c Credential) GoString() string { return "config.Credential{[redacted]}" }

// LoadCredential reads the key file: a JSON object whose single required key
// is "api_key". The process environment is deliberately never consulted;
// keys in the environment leak through shell history and process listings.
func LoadCredential(path string) (Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %s: %w", ErrCredential, path, err)
	}

	var doc struct {
		APIKey string `json:"api_key"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Credential{}, fmt.Errorf("%w: %s must be a JSON object with an api_key entry", ErrCredential, path)
	}

	key := strings.TrimSpace(doc.APIKey)
	if key == "" {
		return Credential{}, fmt.Errorf("%w: %s holds no api_key", ErrCredential, path)
	}
	return Credential{key: key}, nil
}
