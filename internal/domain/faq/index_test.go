package faq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubSource struct {
	fetchFn func(ctx context.Context) ([]Record, error)
	calls   int
}

func (s *stubSource) Fetch(ctx context.Context) ([]Record, error) {
	s.calls++
	return s.fetchFn(ctx)
}

type stubEmbedder struct {
	embedFn func(ctx context.Context, text string) ([]float32, error)
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.embedFn(ctx, text)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(at *time.Time) func() time.Time {
	return func() time.Time { return *at }
}

func TestCacheRefreshBuildsSnapshot(t *testing.T) {
	source := &stubSource{fetchFn: func(context.Context) ([]Record, error) {
		return []Record{
			{Question: "営業時間は？", Answer: "9時から18時です", Tags: "hours"},
			{Question: "定休日はいつ", Answer: "水曜日です"},
		}, nil
	}}
	embedder := &stubEmbedder{embedFn: func(_ context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}}

	cache := NewCache(source, embedder, 10*time.Minute, newTestLogger(), nil)

	stats, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, RefreshStats{Attempted: 2, Indexed: 2, Skipped: 0}, stats)

	snap := cache.Current(context.Background())
	require.Len(t, snap.Records, 2)
	require.Equal(t, "営業時間は", snap.Records[0].NormalizedQuestion)
	require.Equal(t, []float32{1, 0}, snap.Records[0].Embedding)
	require.Equal(t, 1, source.calls, "fresh snapshot should not trigger another fetch")
}

func TestCacheKeepsPreviousGenerationOnSourceFailure(t *testing.T) {
	now := time.Now()
	healthy := true
	source := &stubSource{fetchFn: func(context.Context) ([]Record, error) {
		if !healthy {
			return nil, errors.New("fetch failed")
		}
		return []Record{{Question: "営業時間は？", Answer: "9時から18時です"}}, nil
	}}
	embedder := &stubEmbedder{embedFn: func(_ context.Context, _ string) ([]float32, error) {
		return []float32{1, 0}, nil
	}}

	cache := NewCache(source, embedder, 10*time.Minute, newTestLogger(), nil)
	cache.now = fixedClock(&now)

	_, err := cache.Refresh(context.Background())
	require.NoError(t, err)

	healthy = false
	now = now.Add(11 * time.Minute)

	snap := cache.Current(context.Background())
	require.Len(t, snap.Records, 1, "stale generation must survive a failed reload")
	require.Equal(t, "9時から18時です", snap.Records[0].Answer)
	require.Equal(t, 2, source.calls)
}

func TestCacheSkipsRecordsWithFailingEmbeddings(t *testing.T) {
	source := &stubSource{fetchFn: func(context.Context) ([]Record, error) {
		return []Record{
			{Question: "営業時間は？", Answer: "9時から18時です"},
			{Question: "定休日はいつ", Answer: "水曜日です"},
			{Question: "駐車場はありますか", Answer: "ございます"},
		}, nil
	}}
	embedder := &stubEmbedder{embedFn: func(_ context.Context, text string) ([]float32, error) {
		if text == "定休日はいつ" {
			return nil, errors.New("embedding unavailable")
		}
		return []float32{0, 1}, nil
	}}

	cache := NewCache(source, embedder, 10*time.Minute, newTestLogger(), nil)

	stats, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, RefreshStats{Attempted: 3, Indexed: 2, Skipped: 1}, stats)

	snap := cache.Current(context.Background())
	require.Len(t, snap.Records, 2)
	for _, rec := range snap.Records {
		require.NotEqual(t, "定休日はいつ", rec.Question)
	}
}

func TestCacheSkipsRecordsWithMismatchedDimensions(t *testing.T) {
	source := &stubSource{fetchFn: func(context.Context) ([]Record, error) {
		return []Record{
			{Question: "one", Answer: "a"},
			{Question: "two", Answer: "b"},
		}, nil
	}}
	embedder := &stubEmbedder{embedFn: func(_ context.Context, text string) ([]float32, error) {
		if text == "two" {
			return []float32{1, 2, 3}, nil
		}
		return []float32{1, 2}, nil
	}}

	cache := NewCache(source, embedder, 10*time.Minute, newTestLogger(), nil)

	stats, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, RefreshStats{Attempted: 2, Indexed: 1, Skipped: 1}, stats)
}

func TestCacheCurrentRefreshesWhenStale(t *testing.T) {
	now := time.Now()
	source := &stubSource{fetchFn: func(context.Context) ([]Record, error) {
		return []Record{{Question: "営業時間は？", Answer: "9時から18時です"}}, nil
	}}
	embedder := &stubEmbedder{embedFn: func(_ context.Context, _ string) ([]float32, error) {
		return []float32{1}, nil
	}}

	cache := NewCache(source, embedder, 10*time.Minute, newTestLogger(), nil)
	cache.now = fixedClock(&now)

	cache.Current(context.Background())
	require.Equal(t, 1, source.calls)

	now = now.Add(9 * time.Minute)
	cache.Current(context.Background())
	require.Equal(t, 1, source.calls, "fresh generation must not reload")

	now = now.Add(2 * time.Minute)
	cache.Current(context.Background())
	require.Equal(t, 2, source.calls, "stale generation must reload")
}

func TestCacheCurrentReturnsEmptySnapshotBeforeFirstLoad(t *testing.T) {
	source := &stubSource{fetchFn: func(context.Context) ([]Record, error) {
		return nil, errors.New("unreachable source")
	}}
	embedder := &stubEmbedder{embedFn: func(_ context.Context, _ string) ([]float32, error) {
		return []float32{1}, nil
	}}

	cache := NewCache(source, embedder, 10*time.Minute, newTestLogger(), nil)

	snap := cache.Current(context.Background())
	require.NotNil(t, snap)
	require.True(t, snap.Empty())
}
