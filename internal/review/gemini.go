package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultGeminiBaseURL is the public Gemini REST endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiLLM implements the LLM interface against the Gemini generateContent
// endpoint. It speaks the REST wire format directly; the request and
// response shapes below are the subset this linter uses.
type GeminiLLM struct {
	config LLMConfig
	client *http.Client
}

// NewGeminiLLM creates a Gemini client with the given configuration.
func NewGeminiLLM(config LLMConfig) (*GeminiLLM, error) {
	if config.Credential.IsZero() {
		return nil, fmt.Errorf("%w: missing credential", ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrInvalidConfig)
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultGeminiBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}
	return &GeminiLLM{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate produces text from a prompt using the configured model.
func (g *GeminiLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", ErrInvalidConfig)
	}

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{Temperature: g.config.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimSuffix(g.config.BaseURL, "/"),
		url.PathEscape(g.config.Model))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// The key travels as a header, never in the URL: transport errors quote
	// the URL verbatim, and that text reaches logs.
	req.Header.Set("x-goog-api-key", g.config.Credential.Key())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, body)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unparsable provider envelope: %w", err)
	}
	if parsed.Error != nil {
		return "", classifyStatus(parsed.Error.Code, body)
	}
	if len(parsed.Candidates) == 0 {
		return "", &MalformedResponseError{Raw: string(body), Reason: "response carries no candidates"}
	}

	var out strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		out.WriteString(part.Text)
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", &MalformedResponseError{Raw: string(body), Reason: "candidate carries no text"}
	}
	return text, nil
}

// classifyStatus maps an HTTP failure onto the error taxonomy.
// Authentication failures and non-transient rejections surface as terminal
// sentinels; everything else stays an APIError for the retry classifier.
func classifyStatus(status int, body []byte) error {
	msg := compactBody(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", ErrAuthentication, status, msg)
	case status >= 400 && status < 500 && !retryStatus[status]:
		return fmt.Errorf("%w: HTTP %d: %s", ErrRequestRejected, status, msg)
	}
	apiErr := &APIError{Status: status, Message: msg}
	if status == http.StatusTooManyRequests {
		apiErr.RetryAfter = retryDelayHint(body)
	}
	return apiErr
}

var retryDelayPattern = regexp.MustCompile(`^(\d+)(?:\.\d+)?s$`)

// retryDelayHint extracts the delay from the RetryInfo detail a Gemini 429
// carries. Returns zero when the body has no usable hint.
func retryDelayHint(body []byte) time.Duration {
	var payload struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return 0
	}
	for _, detail := range payload.Error.Details {
		if detail.Type != "type.googleapis.com/google.rpc.RetryInfo" {
			continue
		}
		m := retryDelayPattern.FindStringSubmatch(strings.TrimSpace(detail.RetryDelay))
		if m == nil {
			continue
		}
		secs, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return time.Duration(secs) * time.Second
	}
	return 0
}

// compactBody flattens an error body into a single short line for messages.
func compactBody(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	const max = 300
	if len(s) > max {
		s = s[:max] + "..."
	}
	if s == "" {
		s = "(empty body)"
	}
	return s
}
