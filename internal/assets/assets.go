// Package assets bundles the versioned rubric and schema documents the linter
// evaluates against, plus the tool's default configuration. Both documents are
// immutable for the duration of a run and shared read-only across all analysis
// units. Overrides come from config-file paths only; an override's version is
// recorded as a content digest so every report names the exact documents that
// produced it.
package assets

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

//go:embed rubric.md
var bundledRubric string

//go:embed schema.json
var bundledSchema []byte

//go:embed logiclint.config.json
var defaultConfig []byte

// RubricVersion is the declared version of the bundled rubric document.
const RubricVersion = "1"

var ErrSchemaDocument = errors.New("unusable schema document")

// Rubric is the evaluation rubric given to the model.
type Rubric struct {
	Text    string
	Version string
}

// Schema is the structural contract for model output, parsed once per run.
// The response validator walks replies against it and the prompt builder embeds
// its minimized form, so both always agree on what the model was asked for.
type Schema struct {
	Version          string
	RequiredTop      []string
	RequiredIssue    []string
	RequiredLocation []string
	Taxonomy         []string
	SeverityMin      int
	SeverityMax      int

	minJSON []byte
}

// MinJSON returns the minimized schema body (type, required, properties,
// additionalProperties) with two-space indent. Rendered once at load time, so
// repeated calls yield byte-identical output.
func (s *Schema) MinJSON() []byte { return s.minJSON }

// LoadRubric returns the bundled rubric, or the document at path when overridden.
func LoadRubric(path string) (Rubric, error) {
	if path == "" {
		return Rubric{Text: bundledRubric, Version: RubricVersion}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rubric{}, fmt.Errorf("rubric override: %w", err)
	}
	return Rubric{Text: string(data), Version: digest(data)}, nil
}

// LoadSchema returns the parsed bundled schema, or the document at path when
// overridden. An override that declares no version is versioned by digest.
func LoadSchema(path string) (*Schema, error) {
	if path == "" {
		return parseSchema(bundledSchema)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema override: %w", err)
	}
	s, err := parseSchema(data)
	if err != nil {
		return nil, err
	}
	if s.Version == "" {
		s.Version = digest(data)
	}
	return s, nil
}

// DefaultConfig returns the embedded default configuration file.
func DefaultConfig() []byte { return defaultConfig }

// schemaDoc mirrors the top level of schema.json. Properties stays raw so the
// minimized prompt form reproduces the document instead of a lossy re-model.
type schemaDoc struct {
	Version              string          `json:"version"`
	Type                 string          `json:"type"`
	Required             []string        `json:"required"`
	AdditionalProperties bool            `json:"additionalProperties"`
	Properties           json.RawMessage `json:"properties"`
}

type schemaProperties struct {
	Issues struct {
		Items struct {
			Required   []string `json:"required"`
			Properties struct {
				Type struct {
					Enum []string `json:"enum"`
				} `json:"type"`
				Location struct {
					Required []string `json:"required"`
				} `json:"location"`
				Severity struct {
					Minimum *int `json:"minimum"`
					Maximum *int `json:"maximum"`
				} `json:"severity"`
			} `json:"properties"`
		} `json:"items"`
	} `json:"issues"`
}

func parseSchema(data []byte) (*Schema, error) {
	var doc schemaDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaDocument, err)
	}
	if doc.Type != "object" || len(doc.Required) == 0 {
		return nil, fmt.Errorf("%w: top level must be an object schema with required keys", ErrSchemaDocument)
	}

	var props schemaProperties
	if len(doc.Properties) > 0 {
		if err := json.Unmarshal(doc.Properties, &props); err != nil {
			return nil, fmt.Errorf("%w: properties: %w", ErrSchemaDocument, err)
		}
	}

	s := &Schema{
		Version:          doc.Version,
		RequiredTop:      doc.Required,
		RequiredIssue:    props.Issues.Items.Required,
		RequiredLocation: props.Issues.Items.Properties.Location.Required,
		Taxonomy:         props.Issues.Items.Properties.Type.Enum,
		SeverityMin:      1,
		SeverityMax:      5,
	}
	if v := props.Issues.Items.Properties.Severity.Minimum; v != nil {
		s.SeverityMin = *v
	}
	if v := props.Issues.Items.Properties.Severity.Maximum; v != nil {
		s.SeverityMax = *v
	}
	if s.SeverityMin > s.SeverityMax {
		return nil, fmt.Errorf("%w: severity minimum %d above maximum %d", ErrSchemaDocument, s.SeverityMin, s.SeverityMax)
	}
	// Documents without per-issue structure fall back to the historical contract.
	if len(s.RequiredIssue) == 0 {
		s.RequiredIssue = []string{"type", "location", "claim_a", "claim_b", "why", "severity", "fix"}
	}
	if len(s.RequiredLocation) == 0 {
		s.RequiredLocation = []string{"quote"}
	}

	min := struct {
		Type                 string          `json:"type"`
		Required             []string        `json:"required"`
		Properties           json.RawMessage `json:"properties,omitempty"`
		AdditionalProperties bool            `json:"additionalProperties"`
	}{doc.Type, doc.Required, doc.Properties, doc.AdditionalProperties}
	rendered, err := json.MarshalIndent(min, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaDocument, err)
	}
	s.minJSON = rendered

	return s, nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:6])
}
