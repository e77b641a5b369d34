// Package chunk splits manuscript text into bounded analysis units.
//
// Units are defined by byte offsets into the original text, never by
// re-joined strings, so the core ranges of consecutive units tile the file
// exactly: concatenating manuscript[Start:End] over all units reproduces the
// input byte for byte. Each unit after the first additionally carries a small
// leading overlap margin so the model sees cross-boundary context; findings
// located inside the margin are the aggregator's dedup candidates.
package chunk

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var ErrEmptyInput = errors.New("manuscript contains no reviewable text")

// Unit is one contiguous slice of manuscript text sent to the model in a
// single request. Immutable after creation.
type Unit struct {
	Source       string // manuscript path as shown to the model
	Index        int    // sequence index within the file, from 0
	Start        int    // byte offset where the core range begins
	End          int    // byte offset just past the core range
	ContextStart int    // byte offset where Text begins; below Start when overlapping
	Text         string // manuscript[ContextStart:End]
}

// InOverlap reports whether an absolute byte offset falls inside the unit's
// leading overlap margin.
func (u Unit) InOverlap(off int) bool {
	return off >= u.ContextStart && off < u.Start
}

// Config controls unit sizing.
type Config struct {
	BudgetTokens  int // target unit size in tokens
	OverlapTokens int // leading context carried over from the previous unit
}

// DefaultConfig returns sensible defaults for manuscript prose.
func DefaultConfig() Config {
	return Config{
		BudgetTokens:  4000,
		OverlapTokens: 200,
	}
}

// Split produces the units covering text with no gaps and no loss. Unit
// boundaries prefer Markdown block breaks, headings above all; a single block
// larger than the budget is cut hard, at a line break inside the tolerance
// window when one exists, at a rune boundary otherwise. A file under budget
// yields exactly one unit. Whitespace-only input fails with ErrEmptyInput.
func Split(source, input string, cfg Config) ([]Unit, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyInput, source)
	}
	if cfg.BudgetTokens <= 0 {
		cfg.BudgetTokens = DefaultConfig().BudgetTokens
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = 0
	}

	spans := pack(input, blockBoundaries(input), cfg.BudgetTokens)

	overlapBytes := cfg.OverlapTokens * bytesPerToken
	units := make([]Unit, 0, len(spans))
	for i, sp := range spans {
		ctx := sp.start
		if i > 0 && overlapBytes > 0 {
			ctx = sp.start - overlapBytes
			if prev := spans[i-1].start; ctx < prev {
				ctx = prev
			}
			ctx = alignRune(input, ctx)
		}
		units = append(units, Unit{
			Source:       source,
			Index:        i,
			Start:        sp.start,
			End:          sp.end,
			ContextStart: ctx,
			Text:         input[ctx:sp.end],
		})
	}
	return units, nil
}

type span struct {
	start, end int
}

type boundary struct {
	off     int
	heading bool
}

// blockBoundaries extracts the start offsets of top-level Markdown blocks.
// The parse is only a boundary oracle: coverage never depends on it, so
// blocks the AST cannot place (thematic breaks, raw HTML) simply merge into
// their neighbor.
func blockBoundaries(input string) []boundary {
	src := []byte(input)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	bounds := []boundary{{off: 0}}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		off := nodeStart(n)
		if off <= bounds[len(bounds)-1].off {
			continue
		}
		_, heading := n.(*ast.Heading)
		bounds = append(bounds, boundary{off: off, heading: heading})
	}
	return bounds
}

// nodeStart locates a block node's first source offset, descending into
// containers such as lists and block quotes. Returns -1 when the node owns
// no source lines.
func nodeStart(n ast.Node) int {
	if n.Type() != ast.TypeBlock {
		return -1
	}
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		return lines.At(0).Start
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if off := nodeStart(c); off >= 0 {
			return off
		}
	}
	return -1
}

// pack greedily accumulates blocks into spans of at most budget tokens.
// A heading closes the running span once it is at least half full, so units
// tend to open on section starts. Oversized single blocks are hard-split.
func pack(input string, bounds []boundary, budget int) []span {
	var spans []span
	curStart := 0
	curTokens := 0

	emit := func(end int) {
		if end > curStart {
			spans = append(spans, span{start: curStart, end: end})
		}
		curStart = end
		curTokens = 0
	}

	for i, b := range bounds {
		blockEnd := len(input)
		if i+1 < len(bounds) {
			blockEnd = bounds[i+1].off
		}
		blockTokens := EstimateTokens(input[b.off:blockEnd])

		if curTokens > 0 && (curTokens+blockTokens > budget || (b.heading && curTokens >= budget/2)) {
			emit(b.off)
		}

		if blockTokens > budget {
			emit(b.off)
			for _, cut := range hardCuts(input, b.off, blockEnd, budget) {
				emit(cut)
			}
			// The tail below the last cut stays open for the next block.
			curTokens = 0
			if curStart < blockEnd {
				curTokens = EstimateTokens(input[curStart:blockEnd])
			}
			continue
		}

		curTokens += blockTokens
	}
	emit(len(input))

	if len(spans) == 0 {
		spans = []span{{start: 0, end: len(input)}}
	}
	return spans
}

// hardCuts returns cut offsets inside [start,end) spaced about budget tokens
// apart. Each cut lands just past a line break when one falls inside the
// trailing fifth of the window, on a rune boundary otherwise.
func hardCuts(input string, start, end, budget int) []int {
	byteBudget := budget * bytesPerToken
	window := byteBudget / 5

	var cuts []int
	pos := start
	for {
		target := pos + byteBudget
		if target >= end {
			break
		}
		cut := alignRune(input, target)
		if nl := strings.LastIndexByte(input[target-window:target], '\n'); nl >= 0 {
			cut = target - window + nl + 1
		}
		cuts = append(cuts, cut)
		pos = cut
	}
	return cuts
}

// alignRune moves off forward to the nearest UTF-8 rune start.
func alignRune(input string, off int) int {
	for off < len(input) && !utf8.RuneStart(input[off]) {
		off++
	}
	return off
}
