// Package budget provides token budget estimation and context trimming for
// the query pipeline. Because the engine supports multiple generator backends
// with different tokenizers, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose). This deliberately
// under-estimates token counts to leave headroom for model-specific overhead.
package budget

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English prose; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default budget for the assembled
	// retrieval context in tokens. Conservative enough to fit within
	// 8k-context models while leaving room for the prompt scaffold and the
	// generated answer. Override via rag.Config.MaxContextTokens.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// Trim returns the longest prefix of items whose combined estimated token
// count fits within maxTokens. textOf extracts the text of one item; each
// item also carries a small fixed overhead for its numbering and separators.
//
// Items are ordered most-important-first (descending relevance), so dropping
// from the tail always discards the least relevant context.
func Trim[T any](items []T, textOf func(T) string, maxTokens int) []T {
	total := 0
	for i, item := range items {
		// ~4 tokens of per-item overhead: bracket number plus blank line.
		total += 4 + Estimate(textOf(item))
		if total > maxTokens {
			return items[:i]
		}
	}
	return items
}
