package review

import (
	"fmt"
	"strings"

	"github.com/logiclint/logiclint/internal/assets"
	"github.com/logiclint/logiclint/internal/chunk"
)

// BuildPrompt merges the rubric, the minimized schema, and one analysis unit
// into the request payload. Pure and deterministic: identical inputs produce
// byte-identical output, which the audit artifact and reproducibility depend
// on. Layout runs role preamble, rubric, hard output constraints, schema
// summary, then the unit text, so the constraints nearest the text are the
// structural ones.
func BuildPrompt(rubric assets.Rubric, schema *assets.Schema, unit chunk.Unit) string {
	var b strings.Builder

	b.WriteString("You are not a human reviewer. You are a formal logic lint pass over a manuscript. ")
	b.WriteString("Your only task is to check the text below for internal logical consistency ")
	b.WriteString("against the rubric. Style, grammar, and real-world accuracy are out of scope.\n\n")

	b.WriteString("## Rubric\n\n")
	b.WriteString(strings.TrimSpace(rubric.Text))
	b.WriteString("\n\n")

	b.WriteString("## Output constraints\n\n")
	b.WriteString("- Respond with a single JSON object and nothing else: no preamble, no commentary, no code fences.\n")
	b.WriteString("- Conform exactly to the schema summarized below.\n")
	b.WriteString("- Every `location.quote` must be copied verbatim from the input text. Never paraphrase a quote.\n")
	b.WriteString("- Ground every issue in the text itself. If the text does not state it, do not report it.\n")
	b.WriteString("- An input with no issues is the expected common case: report an empty `issues` array.\n\n")

	b.WriteString("## JSON schema (summary)\n\n")
	b.Write(schema.MinJSON())
	b.WriteString("\n\n")

	b.WriteString("## Input\n\n")
	fmt.Fprintf(&b, "source: %s\n", unit.Source)
	fmt.Fprintf(&b, "unit: %d (bytes %d-%d)\n\n", unit.Index+1, unit.ContextStart, unit.End)
	b.WriteString(strings.TrimSpace(unit.Text))
	b.WriteString("\n")

	return b.String()
}
