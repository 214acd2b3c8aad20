// Package budget provides token estimation for prompt assembly. Because the
// assistant supports several LLM backends with different tokenizers, it uses
// a conservative character heuristic: 1 token ≈ 4 characters.
package budget

import "unicode/utf8"

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// DefaultContextTokens is the retrieved-context budget used when building
	// a prompt.
	DefaultContextTokens = 1000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// Truncate cuts s so that Estimate(result) <= maxTokens. The cut never
// splits a UTF-8 sequence. maxTokens <= 0 returns s unchanged.
func Truncate(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return s
	}
	limit := maxTokens * charsPerToken
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
