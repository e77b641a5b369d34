// Package report assembles validated findings into the persisted artifacts:
// the report document and the prompt audit trail. Aggregation here is
// deterministic text work; anything requiring judgment happened upstream of
// the validation boundary.
package report

import (
	"time"

	"github.com/logiclint/logiclint/internal/review"
)

// Meta describes how a report was produced.
type Meta struct {
	GeneratedBy    string    `json:"generated_by"`
	Model          string    `json:"model"`
	GeneratedAt    time.Time `json:"generated_at"`
	RubricVersion  string    `json:"rubric_version"`
	SchemaVersion  string    `json:"schema_version"`
	RunID          string    `json:"run_id"`
	SourceRevision string    `json:"source_revision,omitempty"`
	Units          int       `json:"units"`
}

// Report is the persisted result for one manuscript file. Its shape matches
// the output contract the model is held to, so a report validates against
// the same schema.
type Report struct {
	Source string           `json:"source"`
	Issues []review.Finding `json:"issues"`
	Meta   Meta             `json:"meta"`
}

// New builds a report, normalizing a nil issue list to an empty one so the
// serialized form always carries an array.
func New(source string, issues []review.Finding, meta Meta) *Report {
	if issues == nil {
		issues = []review.Finding{}
	}
	meta.GeneratedAt = meta.GeneratedAt.UTC()
	return &Report{Source: source, Issues: issues, Meta: meta}
}
