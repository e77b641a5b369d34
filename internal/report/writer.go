package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paths derives the two artifact paths for a source file: the report
// document and the prompt audit. Both carry the source's basename with the
// extension dropped.
func Paths(outDir, source string) (reportPath, auditPath string) {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(outDir, base+".json"),
		filepath.Join(outDir, base+".PROMPT.md")
}

// WriteReport persists the report document, creating the output directory as
// needed. An existing file is overwritten.
func WriteReport(path string, rep *Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// AuditEntry records one unit's exchange for the prompt artifact.
type AuditEntry struct {
	Unit     int
	Start    int
	End      int
	Prompt   string
	Response string

	// Note carries a failure description when the unit's response was
	// rejected. Empty for clean units.
	Note string
}

// WriteAudit persists the prompt artifact: every prompt sent for the source
// and every raw response received, unit by unit. It is written on failure
// too, so a rejected response can be inspected exactly as the model produced
// it.
func WriteAudit(path, source string, entries []AuditEntry) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Prompt audit: %s\n", source)

	for _, e := range entries {
		fmt.Fprintf(&b, "\n## Unit %d (bytes %d-%d)\n\n", e.Unit+1, e.Start, e.End)
		b.WriteString("### Prompt\n\n")
		b.WriteString(strings.TrimRight(e.Prompt, "\n"))
		b.WriteString("\n\n### Response\n\n")
		if e.Response == "" {
			b.WriteString("(no response)")
		} else {
			b.WriteString(strings.TrimRight(e.Response, "\n"))
		}
		b.WriteString("\n")
		if e.Note != "" {
			fmt.Fprintf(&b, "\n### Validation\n\n%s\n", e.Note)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write audit: %w", err)
	}
	return nil
}
