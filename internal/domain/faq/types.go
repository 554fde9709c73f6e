package faq

import (
	"context"
	"time"
)

// Method identifies which scoring stage produced a match.
type Method string

const (
	// MethodSemantic means the embedding similarity cleared the threshold.
	MethodSemantic Method = "semantic"
	// MethodLexical means the normalized-string score cleared the threshold.
	MethodLexical Method = "lexical"
)

// Record is one corpus row. Question and Answer are non-empty after
// trimming; rows violating that are dropped at load time.
type Record struct {
	Question string
	Answer   string
	Tags     string
}

// IndexedRecord enriches a Record with the precomputed lookup keys.
type IndexedRecord struct {
	Record
	NormalizedQuestion string
	Embedding          []float32
}

// Snapshot is one immutable index generation. It is replaced wholesale,
// never mutated in place.
type Snapshot struct {
	Records     []IndexedRecord
	GeneratedAt time.Time
}

// Empty reports whether the generation holds no usable records.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Records) == 0
}

// RefreshStats reports the best-effort outcome of one index rebuild.
type RefreshStats struct {
	Attempted int
	Indexed   int
	Skipped   int
}

// Match is a successful FAQ resolution.
type Match struct {
	Question string
	Answer   string
	Method   Method
	Score    float64
}

// KeywordRule forces a minimum lexical score when both the query and a
// candidate question contain the term. Rules are configuration data, not
// part of the generic scoring algorithm.
type KeywordRule struct {
	Term     string
	MinScore float64
}

// Config carries the tunables for resolution and the generative fallback.
type Config struct {
	SemanticThreshold float64
	LexicalThreshold  float64
	RefreshInterval   time.Duration
	KeywordRules      []KeywordRule

	Model              string
	Temperature        float32
	FallbackPrompt     string
	AnswerCacheTTL     time.Duration
	TopRecommendations int
}

// Source fetches the raw FAQ corpus.
type Source interface {
	Fetch(ctx context.Context) ([]Record, error)
}

// Embedder converts a string into a fixed-length dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TrendingQuery represents a frequently asked question.
type TrendingQuery struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// AnswerRecord captures a generated fallback answer kept in the KV cache.
type AnswerRecord struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store defines the persistence contract for fallback answers and trending
// counters. Keys are normalized question strings.
type Store interface {
	GetAnswer(ctx context.Context, key string) (AnswerRecord, bool, error)
	SaveAnswer(ctx context.Context, key string, record AnswerRecord, ttl time.Duration) error
	IncrementQuery(ctx context.Context, canonical, display string) error
	TopQueries(ctx context.Context, limit int) ([]TrendingQuery, error)
}
