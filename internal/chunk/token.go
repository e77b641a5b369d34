package chunk

import "strings"

// bytesPerToken converts token budgets into byte distances for overlap
// margins and hard cuts, using the ~4 chars/token heuristic.
const bytesPerToken = 4

// EstimateTokens gives a rough token count. Exact tokenization is not
// required for chunking; word count tracks model tokenizers closely enough
// for prose.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
