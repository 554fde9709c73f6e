package faq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testResolverConfig() Config {
	return Config{
		SemanticThreshold: 0.7,
		LexicalThreshold:  0.5,
		RefreshInterval:   10 * time.Minute,
	}
}

func newLoadedCache(t *testing.T, records []Record, embedder Embedder) *Cache {
	t.Helper()
	source := &stubSource{fetchFn: func(context.Context) ([]Record, error) {
		return records, nil
	}}
	cache := NewCache(source, embedder, 10*time.Minute, newTestLogger(), nil)
	_, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	return cache
}

func TestResolveEmptyIndexIsNoMatch(t *testing.T) {
	embedder := &stubEmbedder{embedFn: func(_ context.Context, _ string) ([]float32, error) {
		t.Fatal("embedder must not be called for an empty index")
		return nil, nil
	}}
	cache := newLoadedCache(t, nil, &stubEmbedder{embedFn: func(_ context.Context, _ string) ([]float32, error) {
		return []float32{1}, nil
	}})

	resolver := NewResolver(testResolverConfig(), cache, embedder, newTestLogger(), nil)

	_, ok := resolver.Resolve(context.Background(), "営業時間は何時ですか")
	require.False(t, ok)
}

func TestResolveSemanticHit(t *testing.T) {
	// Index embedding is the unit x-axis; the query vector is placed at
	// cosine 0.9 against it.
	indexVec := []float32{1, 0}
	queryVec := []float32{0.9, 0.43589}

	embedder := &stubEmbedder{embedFn: func(_ context.Context, text string) ([]float32, error) {
		if text == "営業時間は何時ですか" {
			return queryVec, nil
		}
		return indexVec, nil
	}}
	cache := newLoadedCache(t, []Record{{Question: "営業時間は？", Answer: "9時から18時です"}}, embedder)
	resolver := NewResolver(testResolverConfig(), cache, embedder, newTestLogger(), nil)

	match, ok := resolver.Resolve(context.Background(), "営業時間は何時ですか")
	require.True(t, ok)
	require.Equal(t, "9時から18時です", match.Answer)
	require.Equal(t, MethodSemantic, match.Method)
	require.InDelta(t, 0.9, match.Score, 1e-3)
}

func TestResolveLowSimilarityNoLexicalOverlapIsNoMatch(t *testing.T) {
	embedder := &stubEmbedder{embedFn: func(_ context.Context, text string) ([]float32, error) {
		if text == "予約はできますか" {
			return []float32{0, 1}, nil // cosine 0.2 is below threshold either way
		}
		return []float32{1, 0}, nil
	}}
	cache := newLoadedCache(t, []Record{{Question: "営業時間は？", Answer: "9時から18時です"}}, embedder)
	resolver := NewResolver(testResolverConfig(), cache, embedder, newTestLogger(), nil)

	_, ok := resolver.Resolve(context.Background(), "予約はできますか")
	require.False(t, ok)
}

func TestResolveDegradesToLexicalOnEmbeddingError(t *testing.T) {
	indexed := true
	embedder := &stubEmbedder{embedFn: func(_ context.Context, _ string) ([]float32, error) {
		if indexed {
			return []float32{1, 0}, nil
		}
		return nil, errors.New("embedding api down")
	}}
	cache := newLoadedCache(t, []Record{{Question: "営業時間は？", Answer: "9時から18時です"}}, embedder)
	indexed = false

	resolver := NewResolver(testResolverConfig(), cache, embedder, newTestLogger(), nil)

	match, ok := resolver.Resolve(context.Background(), "営業時間は")
	require.True(t, ok)
	require.Equal(t, MethodLexical, match.Method)
	require.Equal(t, 1.0, match.Score)
	require.Equal(t, "9時から18時です", match.Answer)
}

func TestResolveLexicalFallbackBelowSemanticThreshold(t *testing.T) {
	embedder := &stubEmbedder{embedFn: func(_ context.Context, text string) ([]float32, error) {
		if text == "営業時間は何時ですか" {
			return []float32{0, 1}, nil
		}
		return []float32{1, 0}, nil
	}}
	cache := newLoadedCache(t, []Record{{Question: "営業時間は何時ですか？", Answer: "9時から18時です"}}, embedder)
	resolver := NewResolver(testResolverConfig(), cache, embedder, newTestLogger(), nil)

	match, ok := resolver.Resolve(context.Background(), "営業時間は何時ですか")
	require.True(t, ok)
	require.Equal(t, MethodLexical, match.Method)
	require.Equal(t, 1.0, match.Score)
}

func TestResolveTieBreakKeepsFirstRecord(t *testing.T) {
	embedder := &stubEmbedder{embedFn: func(_ context.Context, _ string) ([]float32, error) {
		return []float32{1, 0}, nil
	}}
	cache := newLoadedCache(t, []Record{
		{Question: "first", Answer: "answer-one"},
		{Question: "second", Answer: "answer-two"},
	}, embedder)
	resolver := NewResolver(testResolverConfig(), cache, embedder, newTestLogger(), nil)

	match, ok := resolver.Resolve(context.Background(), "anything")
	require.True(t, ok)
	require.Equal(t, "answer-one", match.Answer)
}

func TestResolveAppliesKeywordRules(t *testing.T) {
	cfg := testResolverConfig()
	cfg.KeywordRules = []KeywordRule{{Term: "営業時間", MinScore: 0.6}}

	embedder := &stubEmbedder{embedFn: func(_ context.Context, _ string) ([]float32, error) {
		return nil, errors.New("embedding api down")
	}}
	source := &stubSource{fetchFn: func(context.Context) ([]Record, error) {
		return []Record{{Question: "本日の営業時間のご案内", Answer: "9時から18時です"}}, nil
	}}
	indexEmbedder := &stubEmbedder{embedFn: func(_ context.Context, _ string) ([]float32, error) {
		return []float32{1, 0}, nil
	}}
	cache := NewCache(source, indexEmbedder, 10*time.Minute, newTestLogger(), nil)
	_, err := cache.Refresh(context.Background())
	require.NoError(t, err)

	resolver := NewResolver(cfg, cache, embedder, newTestLogger(), nil)

	match, ok := resolver.Resolve(context.Background(), "営業時間を教えて")
	require.True(t, ok)
	require.Equal(t, MethodLexical, match.Method)
	require.Equal(t, 0.6, match.Score)
}
