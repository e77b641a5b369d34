package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/logiclint/logiclint/internal/review"
)

func TestPaths(t *testing.T) {
	reportPath, auditPath := Paths("reviews", "draft/ch01.md")
	if reportPath != filepath.Join("reviews", "ch01.json") {
		t.Errorf("report path = %s", reportPath)
	}
	if auditPath != filepath.Join("reviews", "ch01.PROMPT.md") {
		t.Errorf("audit path = %s", auditPath)
	}
}

func testMeta() Meta {
	return Meta{
		GeneratedBy:   "gemini-api",
		Model:         "gemini-2.5-pro",
		GeneratedAt:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		RubricVersion: "1",
		SchemaVersion: "1",
		RunID:         "ba3e9f2c-0000-0000-0000-000000000000",
		Units:         2,
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reviews", "ch01.json")

	rep := New("draft/ch01.md", []review.Finding{
		finding(0, 10, 40, 3, "numeric", "counts differ"),
	}, testMeta())

	if err := WriteReport(path, rep); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.HasSuffix(string(data), "}\n") {
		t.Error("report does not end with a newline")
	}

	var got Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if got.Source != "draft/ch01.md" {
		t.Errorf("source = %q", got.Source)
	}
	if len(got.Issues) != 1 || got.Issues[0].Type != "numeric" {
		t.Errorf("issues did not round-trip: %+v", got.Issues)
	}
	if got.Meta.RunID != rep.Meta.RunID || got.Meta.Units != 2 {
		t.Errorf("meta did not round-trip: %+v", got.Meta)
	}
	if got.Meta.SourceRevision != "" {
		t.Error("absent revision should stay empty")
	}
	if strings.Contains(string(data), "source_revision") {
		t.Error("absent revision must be omitted from the document")
	}
}

func TestWriteReport_EmptyIssuesIsArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clean.json")

	if err := WriteReport(path, New("clean.md", nil, testMeta())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), `"issues": []`) {
		t.Errorf("empty issues must serialize as an array:\n%s", data)
	}
}

func TestWriteReport_Overwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ch01.json")

	first := New("ch01.md", []review.Finding{finding(0, 0, 5, 1, "scope", "old")}, testMeta())
	if err := WriteReport(path, first); err != nil {
		t.Fatalf("first write: %v", err)
	}
	second := New("ch01.md", nil, testMeta())
	if err := WriteReport(path, second); err != nil {
		t.Fatalf("second write: %v", err)
	}

	var got Report
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Issues) != 0 {
		t.Error("stale report content survived the overwrite")
	}
}

func TestWriteAudit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reviews", "ch01.PROMPT.md")

	entries := []AuditEntry{
		{Unit: 0, Start: 0, End: 4096, Prompt: "first prompt body", Response: `{"source": "x", "issues": []}`},
		{Unit: 1, Start: 3896, End: 8000, Prompt: "second prompt body", Response: "I refuse.", Note: "malformed model response: invalid character 'I'"},
	}
	if err := WriteAudit(path, "draft/ch01.md", entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit: %v", err)
	}
	text := string(data)

	for _, want := range []string{
		"# Prompt audit: draft/ch01.md",
		"## Unit 1 (bytes 0-4096)",
		"## Unit 2 (bytes 3896-8000)",
		"first prompt body",
		"second prompt body",
		`{"source": "x", "issues": []}`,
		"I refuse.",
		"### Validation",
		"malformed model response",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("audit missing %q", want)
		}
	}

	if strings.Count(text, "### Validation") != 1 {
		t.Error("validation section should appear only for the rejected unit")
	}
}

func TestWriteAudit_EmptyResponse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.PROMPT.md")

	entries := []AuditEntry{{Unit: 0, Start: 0, End: 10, Prompt: "p", Response: "", Note: "empty response"}}
	if err := WriteAudit(path, "a.md", entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "(no response)") {
		t.Error("empty response not marked")
	}
}
