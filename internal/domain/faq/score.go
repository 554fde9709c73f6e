package faq

import (
	"math"
	"strings"
	"unicode/utf8"
)

// prefixDamping scales prefix-only scores so they never outrank a real
// containment match of the same lengths.
const prefixDamping = 0.5

// CosineSimilarity returns the cosine of the angle between two equal-length
// vectors, bounded to [-1, 1]. Mismatched or zero vectors score 0 rather
// than propagating NaN into ranking.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	score := dot / denom
	if math.IsNaN(score) {
		return 0
	}
	return score
}

// LexicalScore compares two already-normalized strings and returns a score
// in [0, 1]. Exact equality scores 1, containment scores by length ratio,
// otherwise the common prefix ratio is damped. Keyword rules may raise the
// result to their floor when both sides contain the same term.
func LexicalScore(query, candidate string, rules []KeywordRule) float64 {
	if query == "" || candidate == "" {
		return 0
	}

	var score float64
	switch {
	case query == candidate:
		score = 1
	case strings.Contains(query, candidate) || strings.Contains(candidate, query):
		shorter, longer := runeLengths(query, candidate)
		score = float64(shorter) / float64(longer)
	default:
		shorter, _ := runeLengths(query, candidate)
		score = float64(commonPrefixRunes(query, candidate)) / float64(shorter) * prefixDamping
	}

	for _, rule := range rules {
		if rule.Term == "" || rule.MinScore <= score {
			continue
		}
		if strings.Contains(query, rule.Term) && strings.Contains(candidate, rule.Term) {
			score = rule.MinScore
		}
	}
	return score
}

func runeLengths(a, b string) (shorter, longer int) {
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	if la < lb {
		return la, lb
	}
	return lb, la
}

func commonPrefixRunes(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	limit := len(ra)
	if len(rb) < limit {
		limit = len(rb)
	}
	count := 0
	for i := 0; i < limit; i++ {
		if ra[i] != rb[i] {
			break
		}
		count++
	}
	return count
}
