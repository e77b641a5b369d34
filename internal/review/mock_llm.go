package review

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM is a deterministic LLM implementation for testing.
// It returns predictable responses based on prompt content.
type MockLLM struct {
	// Response is the fixed text returned by Generate.
	// If empty, a clean-report document is generated from the prompt.
	Response string

	// Error, if set, is returned by Generate instead of a response.
	Error error

	// LastPrompt stores the most recent prompt passed to Generate.
	LastPrompt string

	// Calls counts Generate invocations.
	Calls int
}

// NewMockLLM creates a mock LLM with the given fixed response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a mock LLM that always returns an error.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

// Generate returns the configured response or generates a deterministic one.
func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.LastPrompt = prompt
	m.Calls++

	if m.Error != nil {
		return "", m.Error
	}

	if m.Response != "" {
		return m.Response, nil
	}

	return generateMockResponse(prompt), nil
}

// generateMockResponse creates a schema-conformant clean report echoing the
// source path found in the prompt.
func generateMockResponse(prompt string) string {
	source := "unknown"
	if idx := strings.LastIndex(prompt, "source: "); idx >= 0 {
		line := prompt[idx+len("source: "):]
		if end := strings.IndexByte(line, '\n'); end >= 0 {
			line = line[:end]
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			source = trimmed
		}
	}
	return fmt.Sprintf("{\"source\": %q, \"issues\": []}", source)
}

// ScriptStep is one queued ScriptedLLM result.
type ScriptStep struct {
	Response string
	Err      error
}

// ScriptedLLM returns queued results in order, for exercising retry paths.
// Calling past the end of the script fails loudly.
type ScriptedLLM struct {
	Steps []ScriptStep

	// Calls counts Generate invocations.
	Calls int
}

// Generate consumes and returns the next scripted step.
func (s *ScriptedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if s.Calls >= len(s.Steps) {
		s.Calls++
		return "", fmt.Errorf("script exhausted after %d steps", len(s.Steps))
	}
	step := s.Steps[s.Calls]
	s.Calls++
	if step.Err != nil {
		return "", step.Err
	}
	return step.Response, nil
}
