package report

import (
	"sort"
	"strings"

	"github.com/logiclint/logiclint/internal/review"
)

// Aggregate merges per-unit findings into a single list ordered by position
// in the manuscript. Order follows the text so the report reads alongside
// it; findings are never reordered by severity. Overlap margins make
// adjacent units re-read the same text, so the same issue can surface twice;
// such duplicates collapse to the earlier unit's finding.
func Aggregate(perUnit [][]review.Finding) []review.Finding {
	var merged []review.Finding
	for _, findings := range perUnit {
		merged = append(merged, findings...)
	}
	sortByPosition(merged)

	out := make([]review.Finding, 0, len(merged))
	for _, f := range merged {
		dup := -1
		for i := range out {
			if sameIssue(out[i], f) {
				dup = i
				break
			}
		}
		if dup < 0 {
			out = append(out, f)
			continue
		}
		if f.Unit < out[dup].Unit {
			out[dup] = f
		}
	}
	sortByPosition(out)
	return out
}

func sortByPosition(findings []review.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Start != findings[j].Start {
			return findings[i].Start < findings[j].Start
		}
		return findings[i].Unit < findings[j].Unit
	})
}

// sameIssue reports whether two findings describe one issue seen twice: the
// same dimension, the same reasoning after normalization, and quote ranges
// covering more than half of the shorter one.
func sameIssue(a, b review.Finding) bool {
	if a.Type != b.Type {
		return false
	}
	if normalizeText(a.Why) != normalizeText(b.Why) {
		return false
	}
	return overlapRatio(a, b) > 0.5
}

// overlapRatio is the intersection of the two quote ranges relative to the
// shorter range.
func overlapRatio(a, b review.Finding) float64 {
	lo := max(a.Start, b.Start)
	hi := min(a.End, b.End)
	if hi <= lo {
		return 0
	}
	shorter := min(a.End-a.Start, b.End-b.Start)
	if shorter <= 0 {
		return 0
	}
	return float64(hi-lo) / float64(shorter)
}

// normalizeText lowercases and collapses runs of whitespace so trivial
// rewording of spacing does not defeat duplicate detection.
func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
