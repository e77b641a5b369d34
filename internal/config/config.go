// Package config resolves the tool configuration and the API credential.
// Configuration comes from JSON files with an ordered fallback: an explicit
// path beats the manuscript-root file, which beats the embedded default.
// The credential comes from a key file only, never from the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/logiclint/logiclint/internal/assets"
)

const (
	// ConfigDir is the dot directory under the manuscript root holding the
	// config file and, by default, the credential.
	ConfigDir = ".logiclint"

	// ConfigName is the config file name looked up inside ConfigDir.
	ConfigName = "logiclint.config.json"
)

var (
	ErrNotResolved   = errors.New("no config file resolved")
	ErrInvalidConfig = errors.New("invalid config")
)

// Config mirrors logiclint.config.json.
type Config struct {
	Provider       string         `json:"provider"`
	Output         OutputConfig   `json:"output"`
	Gemini         ProviderConfig `json:"gemini"`
	OpenAI         ProviderConfig `json:"openai"`
	RubricFile     string         `json:"rubric_file,omitempty"`
	SchemaFile     string         `json:"schema_file,omitempty"`
	Chunk          ChunkConfig    `json:"chunk"`
	Concurrency    int            `json:"concurrency"`
	Retry          RetryConfig    `json:"retry"`
	TimeoutSeconds int            `json:"timeout_seconds"`

	// Source is the path the config was loaded from, empty for the embedded
	// default. Informational only.
	Source string `json:"-"`
}

type OutputConfig struct {
	Dir string `json:"dir"`
}

type ProviderConfig struct {
	Model      string `json:"model"`
	BaseURL    string `json:"base_url,omitempty"`
	APIKeyFile string `json:"api_key_file"`
}

type ChunkConfig struct {
	BudgetTokens  int `json:"budget_tokens"`
	OverlapTokens int `json:"overlap_tokens"`
}

type RetryConfig struct {
	MaxAttempts      int `json:"max_attempts"`
	BaseDelaySeconds int `json:"base_delay_seconds"`
	MaxDelaySeconds  int `json:"max_delay_seconds"`
}

func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelaySeconds) * time.Second
}

func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelaySeconds) * time.Second
}

// Timeout is the per-attempt model request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Active returns the provider section selected by Provider.
func (c *Config) Active() ProviderConfig {
	if c.Provider == "openai" {
		return c.OpenAI
	}
	return c.Gemini
}

// CredentialPath resolves the active provider's key file against the
// manuscript root.
func (c *Config) CredentialPath(root string) string {
	p := c.Active().APIKeyFile
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Resolve loads the configuration with the documented precedence: explicit
// path, then <root>/.logiclint/logiclint.config.json, then the embedded
// default. An explicit path that cannot be read is an error, never a
// fall-through, so a typo cannot silently change which config a run used.
func Resolve(root, explicit string) (*Config, error) {
	if explicit != "" {
		data, err := os.ReadFile(explicit)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotResolved, explicit, err)
		}
		return parse(data, explicit)
	}

	candidate := filepath.Join(root, ConfigDir, ConfigName)
	data, err := os.ReadFile(candidate)
	if err == nil {
		return parse(data, candidate)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotResolved, candidate, err)
	}

	return parse(assets.DefaultConfig(), "")
}

func parse(data []byte, source string) (*Config, error) {
	label := source
	if label == "" {
		label = "embedded default"
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, label, err)
	}
	cfg.Source = source

	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, label, err)
	}
	return cfg, nil
}

// normalize applies defaults for optional knobs and rejects settings the
// pipeline cannot run with.
func (c *Config) normalize() error {
	if c.Provider == "" {
		c.Provider = "gemini"
	}
	if c.Provider != "gemini" && c.Provider != "openai" {
		return fmt.Errorf("provider must be gemini or openai, got %q", c.Provider)
	}
	if c.Output.Dir == "" {
		return errors.New("output.dir is required")
	}

	active := c.Active()
	if active.Model == "" {
		return fmt.Errorf("%s.model is required", c.Provider)
	}
	if active.APIKeyFile == "" {
		return fmt.Errorf("%s.api_key_file is required", c.Provider)
	}

	if c.Chunk.BudgetTokens == 0 {
		c.Chunk.BudgetTokens = 4000
	}
	if c.Chunk.BudgetTokens < 0 || c.Chunk.OverlapTokens < 0 {
		return errors.New("chunk budgets must not be negative")
	}
	if c.Chunk.OverlapTokens >= c.Chunk.BudgetTokens {
		return errors.New("chunk.overlap_tokens must be below chunk.budget_tokens")
	}

	if c.Concurrency == 0 {
		c.Concurrency = 2
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency must not be negative")
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelaySeconds == 0 {
		c.Retry.BaseDelaySeconds = 2
	}
	if c.Retry.MaxDelaySeconds == 0 {
		c.Retry.MaxDelaySeconds = 30
	}
	if c.Retry.MaxAttempts < 1 || c.Retry.BaseDelaySeconds < 0 || c.Retry.MaxDelaySeconds < 0 {
		return errors.New("retry settings must not be negative")
	}

	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 120
	}
	if c.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds must not be negative")
	}

	return nil
}
