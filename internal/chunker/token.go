package chunker

import "unicode/utf8"

// EstimateTokens gives a rough token count using the ~4 chars/token heuristic.
// This is intentionally simple; exact tokenization is not required for chunking.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return tokensForChars(utf8.RuneCountInString(text))
}

// tokensForChars applies the estimate to a known character count.
func tokensForChars(n int) int {
	if n <= 0 {
		return 0
	}
	if n < 4 {
		return 1
	}
	return n / 4
}
