package chunk

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func paragraphs(n, words int) string {
	word := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	var b strings.Builder
	for p := 0; p < n; p++ {
		for w := 0; w < words; w++ {
			if w > 0 {
				b.WriteString(" ")
			}
			b.WriteString(word[(p+w)%len(word)])
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

// reassemble concatenates the core ranges and must reproduce the input.
func reassemble(t *testing.T, input string, units []Unit) {
	t.Helper()
	var b strings.Builder
	for i, u := range units {
		if u.Index != i {
			t.Errorf("unit %d has index %d", i, u.Index)
		}
		if u.Text != input[u.ContextStart:u.End] {
			t.Errorf("unit %d text does not match its offsets", i)
		}
		b.WriteString(input[u.Start:u.End])
	}
	if b.String() != input {
		t.Error("core ranges do not reconstruct the input")
	}
}

func TestSplitSingleUnit(t *testing.T) {
	input := "# Title\n\nA short manuscript, well under budget.\n"
	units, err := Split("short.md", input, DefaultConfig())
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	u := units[0]
	if u.Start != 0 || u.End != len(input) || u.ContextStart != 0 {
		t.Errorf("unexpected offsets: %+v", u)
	}
	if u.Text != input {
		t.Error("single unit should carry the whole input")
	}
	if u.Source != "short.md" {
		t.Errorf("unexpected source %q", u.Source)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   \n\t  \n"} {
		_, err := Split("empty.md", input, DefaultConfig())
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("input %q: expected ErrEmptyInput, got %v", input, err)
		}
	}
}

func TestSplitTilesWithoutLoss(t *testing.T) {
	input := paragraphs(12, 90)
	units, err := Split("long.md", input, Config{BudgetTokens: 200, OverlapTokens: 40})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(units) < 2 {
		t.Fatalf("expected several units, got %d", len(units))
	}
	reassemble(t, input, units)
}

func TestSplitCutsAtParagraphBoundaries(t *testing.T) {
	input := paragraphs(8, 90)
	units, err := Split("paras.md", input, Config{BudgetTokens: 200})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for _, u := range units[1:] {
		if input[u.Start-2:u.Start] != "\n\n" {
			t.Errorf("unit %d starts mid-paragraph at offset %d", u.Index, u.Start)
		}
	}
}

func TestSplitOpensUnitOnHeading(t *testing.T) {
	input := paragraphs(1, 90) + "## Closing\n\n" + paragraphs(1, 30)
	units, err := Split("sections.md", input, Config{BudgetTokens: 200})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected a cut before the heading, got %d units", len(units))
	}
	if !strings.HasPrefix(input[units[1].Start:], "## Closing") {
		t.Errorf("second unit should open on the heading, starts at %q",
			input[units[1].Start:units[1].Start+12])
	}
}

func TestSplitOverlapMargin(t *testing.T) {
	input := paragraphs(8, 90)
	units, err := Split("overlap.md", input, Config{BudgetTokens: 200, OverlapTokens: 40})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(units) < 2 {
		t.Fatalf("expected several units, got %d", len(units))
	}

	if units[0].ContextStart != units[0].Start {
		t.Error("first unit must not carry an overlap margin")
	}
	for _, u := range units[1:] {
		margin := u.Start - u.ContextStart
		if margin <= 0 {
			t.Errorf("unit %d has no overlap margin", u.Index)
		}
		if margin > 40*bytesPerToken {
			t.Errorf("unit %d margin %d exceeds the configured width", u.Index, margin)
		}
		if !u.InOverlap(u.ContextStart) {
			t.Errorf("unit %d: margin start should report as overlap", u.Index)
		}
		if u.InOverlap(u.Start) {
			t.Errorf("unit %d: core start should not report as overlap", u.Index)
		}
	}
	reassemble(t, input, units)
}

func TestSplitOversizedBlock(t *testing.T) {
	// One paragraph far over budget, no internal blank lines.
	input := strings.TrimSpace(strings.Repeat("alpha beta gamma delta epsilon ", 200)) + "\n"
	units, err := Split("wall.md", input, Config{BudgetTokens: 300})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(units) < 3 {
		t.Fatalf("oversized block should hard-split, got %d units", len(units))
	}
	reassemble(t, input, units)
}

func TestSplitKeepsRunesIntact(t *testing.T) {
	input := strings.TrimSpace(strings.Repeat("déjà vu cliché naïveté résumé ", 150)) + "\n"
	units, err := Split("accents.md", input, Config{BudgetTokens: 150})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(units) < 2 {
		t.Fatalf("expected hard cuts, got %d units", len(units))
	}
	for _, u := range units {
		if !utf8.ValidString(u.Text) {
			t.Errorf("unit %d text is not valid UTF-8", u.Index)
		}
	}
	reassemble(t, input, units)
}
