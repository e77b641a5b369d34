package review

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/logiclint/logiclint/internal/chunk"
)

const unitText = "The duke arrived on Tuesday morning. Three days later, on Wednesday, he departed."

func validIssue() map[string]any {
	return map[string]any{
		"type":     "temporal",
		"location": map[string]any{"quote": "Three days later, on Wednesday"},
		"claim_a":  "The duke arrived on Tuesday morning.",
		"claim_b":  "Three days after Tuesday is called Wednesday.",
		"why":      "Three days after Tuesday is Friday, not Wednesday.",
		"severity": 3,
		"fix":      "Change \"Wednesday\" to \"Friday\" or adjust the elapsed days.",
	}
}

func validDoc() map[string]any {
	return map[string]any{
		"source": "draft.md",
		"issues": []any{validIssue()},
	}
}

func mustJSON(t *testing.T, doc any) string {
	t.Helper()
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal test document: %v", err)
	}
	return string(b)
}

func parseHelper(t *testing.T, raw string) ([]Finding, error) {
	t.Helper()
	_, schema := testRubricSchema(t)
	return ParseFindings(raw, schema, testUnit("draft.md", unitText))
}

func TestParseFindings_CleanReport(t *testing.T) {
	findings, err := parseHelper(t, `{"source": "draft.md", "issues": []}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %d", len(findings))
	}
}

func TestParseFindings_ValidFinding(t *testing.T) {
	findings, err := parseHelper(t, mustJSON(t, validDoc()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}

	f := findings[0]
	if f.Type != "temporal" {
		t.Errorf("type = %q", f.Type)
	}
	if f.Severity != 3 {
		t.Errorf("severity = %d", f.Severity)
	}
	if f.Location.Quote != "Three days later, on Wednesday" {
		t.Errorf("quote = %q", f.Location.Quote)
	}

	wantStart := strings.Index(unitText, f.Location.Quote)
	if f.Start != wantStart || f.End != wantStart+len(f.Location.Quote) {
		t.Errorf("offsets = [%d, %d), want [%d, %d)", f.Start, f.End, wantStart, wantStart+len(f.Location.Quote))
	}
}

func TestParseFindings_OffsetsAreAbsolute(t *testing.T) {
	_, schema := testRubricSchema(t)
	unit := chunk.Unit{
		Source:       "draft.md",
		Index:        2,
		Start:        4200,
		End:          4100 + len(unitText),
		ContextStart: 4100,
		Text:         unitText,
	}

	findings, err := ParseFindings(mustJSON(t, validDoc()), schema, unit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := findings[0]
	rel := strings.Index(unitText, f.Location.Quote)
	if f.Start != 4100+rel {
		t.Errorf("start = %d, want %d", f.Start, 4100+rel)
	}
	if f.Unit != 2 {
		t.Errorf("unit index = %d, want 2", f.Unit)
	}
}

func TestParseFindings_FencedJSONAccepted(t *testing.T) {
	body := mustJSON(t, validDoc())
	for _, raw := range []string{
		"```json\n" + body + "\n```",
		"```\n" + body + "\n```",
	} {
		findings, err := parseHelper(t, raw)
		if err != nil {
			t.Errorf("fenced response rejected: %v", err)
			continue
		}
		if len(findings) != 1 {
			t.Errorf("expected 1 finding from fenced response, got %d", len(findings))
		}
	}
}

func TestParseFindings_MalformedResponses(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "  \n\t "},
		{"prose", "I reviewed the text and it looks consistent to me!"},
		{"prose before json", "Here is the report: {\"source\": \"draft.md\", \"issues\": []}"},
		{"trailing garbage", `{"source": "draft.md", "issues": []} done`},
		{"truncated", `{"source": "draft.md", "issues": [`},
		{"fence not closed", "```json\n{\"source\": \"draft.md\", \"issues\": []}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseHelper(t, tc.raw)
			var malformed *MalformedResponseError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedResponseError, got %v", err)
			}
			if malformed.Raw != tc.raw {
				t.Error("raw response not preserved for the audit artifact")
			}
		})
	}
}

// issueDoc returns a valid document with its single issue mutated.
func issueDoc(mutate func(map[string]any)) map[string]any {
	doc := validDoc()
	mutate(doc["issues"].([]any)[0].(map[string]any))
	return doc
}

func TestParseFindings_ViolationMatrix(t *testing.T) {
	del := func(doc map[string]any, key string) map[string]any {
		delete(doc, key)
		return doc
	}
	issue := issueDoc

	cases := []struct {
		name string
		doc  any
		want string
	}{
		{"missing source", del(validDoc(), "source"), "missing required key: source"},
		{"missing issues", del(validDoc(), "issues"), "missing required key: issues"},
		{"source not string", map[string]any{"source": 7, "issues": []any{}}, "source must be a string"},
		{"issues not array", map[string]any{"source": "draft.md", "issues": "none"}, "issues must be an array"},
		{"issue not object", map[string]any{"source": "draft.md", "issues": []any{"oops"}}, "issues[0] must be an object"},
		{"missing why", issue(func(i map[string]any) { delete(i, "why") }), "issues[0].why is required"},
		{"missing fix", issue(func(i map[string]any) { delete(i, "fix") }), "issues[0].fix is required"},
		{"type outside taxonomy", issue(func(i map[string]any) { i["type"] = "style" }), "issues[0].type must be one of taxonomy: style"},
		{"severity fractional", issue(func(i map[string]any) { i["severity"] = 4.5 }), "issues[0].severity must be integer 1..5"},
		{"severity zero", issue(func(i map[string]any) { i["severity"] = 0 }), "issues[0].severity must be integer 1..5"},
		{"severity six", issue(func(i map[string]any) { i["severity"] = 6 }), "issues[0].severity must be integer 1..5"},
		{"severity string", issue(func(i map[string]any) { i["severity"] = "3" }), "issues[0].severity must be integer 1..5"},
		{"claim not string", issue(func(i map[string]any) { i["claim_a"] = 12 }), "issues[0].claim_a must be a string"},
		{"location not object", issue(func(i map[string]any) { i["location"] = "page 3" }), "issues[0].location must be an object"},
		{"quote missing", issue(func(i map[string]any) { i["location"] = map[string]any{"note": "x"} }), "issues[0].location.quote is required"},
		{"quote empty", issue(func(i map[string]any) { i["location"] = map[string]any{"quote": "  "} }), "issues[0].location.quote is empty"},
		{"quote paraphrased", issue(func(i map[string]any) { i["location"] = map[string]any{"quote": "the duke left on Wednesday"} }), "not found verbatim"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseHelper(t, mustJSON(t, tc.doc))
			var violation *SchemaViolationError
			if !errors.As(err, &violation) {
				t.Fatalf("expected SchemaViolationError, got %v", err)
			}
			if !strings.Contains(strings.Join(violation.Violations, "; "), tc.want) {
				t.Errorf("violations %v missing %q", violation.Violations, tc.want)
			}
		})
	}
}

func TestParseFindings_TopLevelNotObject(t *testing.T) {
	for _, raw := range []string{`[1, 2]`, `"report"`, `null`, `42`} {
		_, err := parseHelper(t, raw)
		var violation *SchemaViolationError
		if !errors.As(err, &violation) {
			t.Fatalf("%s: expected SchemaViolationError, got %v", raw, err)
		}
		if violation.Violations[0] != "top-level must be an object" {
			t.Errorf("%s: violations = %v", raw, violation.Violations)
		}
	}
}

func TestParseFindings_CollectsAllViolations(t *testing.T) {
	doc := issueDoc(func(i map[string]any) {
		delete(i, "why")
		i["type"] = "vibes"
		i["severity"] = 9
	})

	_, err := parseHelper(t, mustJSON(t, doc))
	var violation *SchemaViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected SchemaViolationError, got %v", err)
	}
	if len(violation.Violations) < 3 {
		t.Errorf("expected all violations collected in one pass, got %v", violation.Violations)
	}
}

func TestParseFindings_NormalizesFields(t *testing.T) {
	doc := issueDoc(func(i map[string]any) {
		i["why"] = "  padded reasoning  "
		i["fix"] = "\ttab fix\n"
		i["confidence"] = 0.97
		i["location"] = map[string]any{
			"quote": "  Three days later, on Wednesday  ",
			"note":  " near the opening ",
		}
	})

	findings, err := parseHelper(t, mustJSON(t, doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := findings[0]
	if f.Why != "padded reasoning" || f.Fix != "tab fix" {
		t.Errorf("fields not trimmed: %q / %q", f.Why, f.Fix)
	}
	if f.Location.Quote != "Three days later, on Wednesday" {
		t.Errorf("quote not trimmed: %q", f.Location.Quote)
	}
	if f.Location.Note != "near the opening" {
		t.Errorf("note not carried: %q", f.Location.Note)
	}

	serialized, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal finding: %v", err)
	}
	for _, leak := range []string{"confidence", "Unit", "Start"} {
		if strings.Contains(string(serialized), leak) {
			t.Errorf("serialized finding leaks %q: %s", leak, serialized)
		}
	}
}

func TestParseFindings_NoteOmittedWhenAbsent(t *testing.T) {
	findings, err := parseHelper(t, mustJSON(t, validDoc()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	serialized, err := json.Marshal(findings[0])
	if err != nil {
		t.Fatalf("marshal finding: %v", err)
	}
	if strings.Contains(string(serialized), `"note"`) {
		t.Errorf("absent note serialized: %s", serialized)
	}
}
