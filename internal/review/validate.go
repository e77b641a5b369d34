package review

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/logiclint/logiclint/internal/assets"
	"github.com/logiclint/logiclint/internal/chunk"
)

// MalformedResponseError means the model reply could not be read as a JSON
// document at all. Raw preserves the reply for the audit artifact.
type MalformedResponseError struct {
	Raw    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %s", e.Reason)
}

// SchemaViolationError means the reply parsed as JSON but does not satisfy
// the output contract. All violations found in one pass are collected, so a
// reply is diagnosed once rather than one field at a time.
type SchemaViolationError struct {
	Violations []string
}

func (e *SchemaViolationError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("schema violation: %s", e.Violations[0])
	}
	return fmt.Sprintf("%d schema violations: %s", len(e.Violations), strings.Join(e.Violations, "; "))
}

// Location pins a finding to manuscript text via a verbatim quote.
type Location struct {
	Quote string `json:"quote"`
	Note  string `json:"note,omitempty"`
}

// Finding is one validated consistency issue. The byte offsets are resolved
// from the quote during validation; they are internal coordinates for
// aggregation and do not serialize.
type Finding struct {
	Type     string   `json:"type"`
	Location Location `json:"location"`
	ClaimA   string   `json:"claim_a"`
	ClaimB   string   `json:"claim_b"`
	Why      string   `json:"why"`
	Severity int      `json:"severity"`
	Fix      string   `json:"fix"`

	Unit  int `json:"-"` // originating unit index
	Start int `json:"-"` // absolute byte offset of the quote in the source
	End   int `json:"-"`
}

// Models occasionally fence the JSON they were told not to fence. A single
// well-formed wrapping fence is transport framing and gets stripped; any
// other repair (brace hunting, truncation fixes) is out of bounds.
var codeFence = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// ParseFindings validates raw model output against the schema and resolves
// each finding's quote inside the originating unit. A reply is accepted or
// rejected whole: one violation rejects everything, so no finding is ever
// silently dropped.
func ParseFindings(raw string, schema *assets.Schema, unit chunk.Unit) ([]Finding, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, &MalformedResponseError{Raw: raw, Reason: "empty response"}
	}
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Reason: err.Error()}
	}
	if dec.More() {
		return nil, &MalformedResponseError{Raw: raw, Reason: "trailing data after JSON document"}
	}

	doc, ok := value.(map[string]any)
	if !ok {
		return nil, &SchemaViolationError{Violations: []string{"top-level must be an object"}}
	}

	if violations := checkDocument(doc, schema, unit); len(violations) > 0 {
		return nil, &SchemaViolationError{Violations: violations}
	}
	return buildFindings(doc, unit), nil
}

// checkDocument collects every contract violation in the parsed document.
func checkDocument(doc map[string]any, schema *assets.Schema, unit chunk.Unit) []string {
	var violations []string

	for _, key := range schema.RequiredTop {
		if _, ok := doc[key]; !ok {
			violations = append(violations, fmt.Sprintf("missing required key: %s", key))
		}
	}
	if src, ok := doc["source"]; ok {
		if _, isString := src.(string); !isString {
			violations = append(violations, "source must be a string")
		}
	}

	issuesVal, ok := doc["issues"]
	if !ok {
		return violations
	}
	issues, ok := issuesVal.([]any)
	if !ok {
		return append(violations, "issues must be an array")
	}

	taxonomy := make(map[string]bool, len(schema.Taxonomy))
	for _, t := range schema.Taxonomy {
		taxonomy[t] = true
	}

	for i, entry := range issues {
		issue, ok := entry.(map[string]any)
		if !ok {
			violations = append(violations, fmt.Sprintf("issues[%d] must be an object", i))
			continue
		}
		violations = append(violations, checkIssue(issue, i, schema, taxonomy, unit)...)
	}
	return violations
}

func checkIssue(issue map[string]any, i int, schema *assets.Schema, taxonomy map[string]bool, unit chunk.Unit) []string {
	var violations []string

	for _, key := range schema.RequiredIssue {
		if _, ok := issue[key]; !ok {
			violations = append(violations, fmt.Sprintf("issues[%d].%s is required", i, key))
		}
	}

	for _, key := range [...]string{"type", "claim_a", "claim_b", "why", "fix"} {
		value, ok := issue[key]
		if !ok {
			continue
		}
		if _, isString := value.(string); !isString {
			violations = append(violations, fmt.Sprintf("issues[%d].%s must be a string", i, key))
		}
	}

	if typeVal, ok := issue["type"].(string); ok && len(taxonomy) > 0 {
		if !taxonomy[strings.TrimSpace(typeVal)] {
			violations = append(violations, fmt.Sprintf("issues[%d].type must be one of taxonomy: %s", i, typeVal))
		}
	}

	if sevVal, ok := issue["severity"]; ok {
		if !validSeverity(sevVal, schema) {
			violations = append(violations,
				fmt.Sprintf("issues[%d].severity must be integer %d..%d", i, schema.SeverityMin, schema.SeverityMax))
		}
	}

	loc, ok := issue["location"].(map[string]any)
	if !ok {
		if _, present := issue["location"]; present {
			violations = append(violations, fmt.Sprintf("issues[%d].location must be an object", i))
		}
		return violations
	}
	for _, key := range schema.RequiredLocation {
		if _, ok := loc[key]; !ok {
			violations = append(violations, fmt.Sprintf("issues[%d].location.%s is required", i, key))
		}
	}
	if quoteVal, present := loc["quote"]; present {
		quote, isString := quoteVal.(string)
		switch {
		case !isString:
			violations = append(violations, fmt.Sprintf("issues[%d].location.quote must be a string", i))
		case strings.TrimSpace(quote) == "":
			violations = append(violations, fmt.Sprintf("issues[%d].location.quote is empty", i))
		case !strings.Contains(unit.Text, strings.TrimSpace(quote)):
			violations = append(violations, fmt.Sprintf("issues[%d].location.quote is not found verbatim in the unit text", i))
		}
	}
	if noteVal, present := loc["note"]; present {
		if _, isString := noteVal.(string); !isString {
			violations = append(violations, fmt.Sprintf("issues[%d].location.note must be a string", i))
		}
	}
	return violations
}

// validSeverity requires an integral JSON number inside the schema bounds.
// A fractional value like 4.5 is rejected even though it parses as a number.
func validSeverity(value any, schema *assets.Schema) bool {
	num, ok := value.(json.Number)
	if !ok {
		return false
	}
	n, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil {
		return false
	}
	return n >= int64(schema.SeverityMin) && n <= int64(schema.SeverityMax)
}

// buildFindings converts a violation-free document into typed findings,
// trimming string fields, dropping unknown keys, and resolving each quote to
// absolute byte offsets within the source file.
func buildFindings(doc map[string]any, unit chunk.Unit) []Finding {
	issues, _ := doc["issues"].([]any)
	findings := make([]Finding, 0, len(issues))

	for _, entry := range issues {
		issue := entry.(map[string]any)
		loc := issue["location"].(map[string]any)
		quote := strings.TrimSpace(loc["quote"].(string))
		rel := strings.Index(unit.Text, quote)

		f := Finding{
			Type:     trimmedString(issue["type"]),
			Location: Location{Quote: quote, Note: trimmedString(loc["note"])},
			ClaimA:   trimmedString(issue["claim_a"]),
			ClaimB:   trimmedString(issue["claim_b"]),
			Why:      trimmedString(issue["why"]),
			Severity: severityInt(issue["severity"]),
			Fix:      trimmedString(issue["fix"]),
			Unit:     unit.Index,
			Start:    unit.ContextStart + rel,
			End:      unit.ContextStart + rel + len(quote),
		}
		findings = append(findings, f)
	}
	return findings
}

func trimmedString(value any) string {
	s, _ := value.(string)
	return strings.TrimSpace(s)
}

func severityInt(value any) int {
	num, _ := value.(json.Number)
	n, _ := strconv.ParseInt(num.String(), 10, 64)
	return int(n)
}
