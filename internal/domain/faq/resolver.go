package faq

import (
	"context"
	"log/slog"

	"github.com/yanqian/faq-webhook/pkg/metrics"
)

// Resolver ranks the indexed corpus against a user query: semantic
// similarity first, lexical overlap as the wider-recall fallback. No-match
// is a normal outcome, never an error.
type Resolver struct {
	cfg      Config
	cache    *Cache
	embedder Embedder
	logger   *slog.Logger
	metrics  *metrics.Metrics

	rules []KeywordRule // terms pre-normalized
}

// NewResolver builds a resolver around an index cache. Metrics may be nil
// in tests.
func NewResolver(cfg Config, cache *Cache, embedder Embedder, logger *slog.Logger, m *metrics.Metrics) *Resolver {
	rules := make([]KeywordRule, 0, len(cfg.KeywordRules))
	for _, rule := range cfg.KeywordRules {
		term := Normalize(rule.Term)
		if term == "" {
			continue
		}
		rules = append(rules, KeywordRule{Term: term, MinScore: rule.MinScore})
	}
	return &Resolver{
		cfg:      cfg,
		cache:    cache,
		embedder: embedder,
		logger:   logger.With("component", "faq.resolver"),
		metrics:  m,
		rules:    rules,
	}
}

// Resolve runs the two-stage lookup and returns the matched answer, or
// ok=false when no record clears either threshold. An embedding failure at
// query time degrades to lexical-only matching instead of failing the query.
func (r *Resolver) Resolve(ctx context.Context, userText string) (Match, bool) {
	snapshot := r.cache.Current(ctx)
	if snapshot.Empty() {
		r.observe("none")
		return Match{}, false
	}

	queryEmbedding, err := r.embedder.Embed(ctx, userText)
	if err != nil {
		r.logger.Warn("query embedding failed, degrading to lexical matching", "error", err)
		queryEmbedding = nil
	}

	if len(queryEmbedding) > 0 {
		if match, ok := r.rankSemantic(snapshot, queryEmbedding); ok {
			r.observe(string(MethodSemantic))
			return match, true
		}
	}

	if match, ok := r.rankLexical(snapshot, Normalize(userText)); ok {
		r.observe(string(MethodLexical))
		return match, true
	}

	r.observe("none")
	return Match{}, false
}

// rankSemantic takes the maximum cosine score across the generation. Ties
// keep the first record in index order.
func (r *Resolver) rankSemantic(snapshot *Snapshot, query []float32) (Match, bool) {
	best := -1
	bestScore := 0.0
	for i, rec := range snapshot.Records {
		score := CosineSimilarity(query, rec.Embedding)
		if best < 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 || bestScore < r.cfg.SemanticThreshold {
		return Match{}, false
	}
	rec := snapshot.Records[best]
	return Match{Question: rec.Question, Answer: rec.Answer, Method: MethodSemantic, Score: bestScore}, true
}

func (r *Resolver) rankLexical(snapshot *Snapshot, normalizedQuery string) (Match, bool) {
	best := -1
	bestScore := 0.0
	for i, rec := range snapshot.Records {
		score := LexicalScore(normalizedQuery, rec.NormalizedQuestion, r.rules)
		if best < 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 || bestScore < r.cfg.LexicalThreshold {
		return Match{}, false
	}
	rec := snapshot.Records[best]
	return Match{Question: rec.Question, Answer: rec.Answer, Method: MethodLexical, Score: bestScore}, true
}

func (r *Resolver) observe(method string) {
	if r.metrics != nil {
		r.metrics.ObserveResolution(method)
	}
}
