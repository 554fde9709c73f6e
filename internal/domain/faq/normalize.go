package faq

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes text for lexical comparison. NFKC folds full-width
// and composed variants to one form, the result is lower-cased, and
// punctuation, symbols and whitespace are removed so that CJK and Latin
// queries compare by content alone. Applied to both indexed questions and
// incoming queries, so comparisons stay symmetric.
func Normalize(s string) string {
	lowered := strings.ToLower(norm.NFKC.String(s))
	var builder strings.Builder
	builder.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsControl(r) {
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
