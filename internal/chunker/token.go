package chunker

import "strings"

// Tokenize splits text into whitespace-delimited tokens. Exact model
// tokenization is not required for chunking; what matters is that splitting
// and overlap math operate on the same unit everywhere.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// CountTokens returns the token count of text under the same definition
// Tokenize uses.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}
