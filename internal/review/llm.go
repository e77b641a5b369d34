// Package review implements the model exchange at the heart of the linter:
// deterministic prompt assembly, provider clients, the bounded retry loop,
// and the strict response validation that turns free-form model output into
// typed findings. Validation is the sole trust boundary between the external
// model and the rest of the system; every downstream component assumes
// validated data.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/logiclint/logiclint/internal/config"
)

var (
	ErrInvalidConfig   = errors.New("invalid LLM configuration")
	ErrAuthentication  = errors.New("authentication rejected by provider")
	ErrRequestRejected = errors.New("request rejected by provider")
	ErrTransient       = errors.New("transient API failure")
)

// LLM defines the interface for interacting with language models.
// Implementations must be stateless and thread-safe, and must honor
// cancellation of the request context. One call is one network round trip;
// retries belong to the Caller.
type LLM interface {
	// Generate produces text from a prompt using the configured model.
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMConfig holds common configuration options for LLM providers.
type LLMConfig struct {
	// Model specifies the provider's model identifier.
	Model string

	// BaseURL overrides the provider endpoint (empty = provider default).
	BaseURL string

	// Temperature controls randomness. Consistency linting wants answers
	// anchored to the text, so runs use a low value.
	Temperature float64

	// Timeout bounds a single request attempt.
	Timeout time.Duration

	// Credential authenticates against the provider.
	Credential config.Credential
}

// DefaultLLMConfig returns sensible defaults for consistency linting.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Temperature: 0.2,
		Timeout:     120 * time.Second,
	}
}

// APIError is an HTTP-level provider failure. The retry loop classifies it
// by status; everything else treats it as opaque.
type APIError struct {
	Status  int
	Message string

	// RetryAfter is a server-provided delay hint, currently only set from
	// the RetryInfo detail of a Gemini 429.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d: %s", e.Status, e.Message)
}
