package chunk

import "unicode"

// Tokenize splits text into whitespace-preserving tokens. Each token is
// a run of whitespace followed by a run of non-whitespace; a trailing
// whitespace run forms a final token of its own. Concatenating the
// tokens reproduces the input exactly, so any token window decodes back
// to the verbatim span of the source text.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	var tokens []string

	i := 0
	for i < len(runes) {
		start := i
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		for i < len(runes) && !unicode.IsSpace(runes[i]) {
			i++
		}
		tokens = append(tokens, string(runes[start:i]))
	}
	return tokens
}

// Detokenize reassembles tokens into text. It is the exact inverse of
// Tokenize: Detokenize(Tokenize(s)) == s for any s.
func Detokenize(tokens []string) string {
	var n int
	for _, t := range tokens {
		n += len(t)
	}
	b := make([]byte, 0, n)
	for _, t := range tokens {
		b = append(b, t...)
	}
	return string(b)
}

// CountTokens returns the token count of text.
func CountTokens(text string) int {
	return len(Tokenize(text))
}
