package faq

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/yanqian/faq-webhook/pkg/metrics"
)

// Cache owns the current index generation and refreshes it lazily. The
// snapshot reference is swapped atomically after a generation is fully
// assembled; concurrent readers never observe a partial build. Redundant
// concurrent refreshes are tolerated, the cost is one extra fetch plus
// embedding burst.
type Cache struct {
	source   Source
	embedder Embedder
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	now     func() time.Time
	current atomic.Pointer[Snapshot]
}

// NewCache wires the refresh dependencies. Metrics may be nil in tests.
func NewCache(source Source, embedder Embedder, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Cache {
	return &Cache{
		source:   source,
		embedder: embedder,
		interval: interval,
		logger:   logger.With("component", "faq.cache"),
		metrics:  m,
		now:      time.Now,
	}
}

// Current returns the live snapshot, attempting a refresh first when the
// generation is stale or missing. Refresh failure keeps the previous
// generation; before the first successful load an empty snapshot is
// returned so callers resolve to no-match instead of failing.
func (c *Cache) Current(ctx context.Context) *Snapshot {
	if snap := c.current.Load(); snap != nil && c.now().Sub(snap.GeneratedAt) < c.interval {
		return snap
	}

	if _, err := c.Refresh(ctx); err != nil {
		c.logger.Warn("index refresh failed, keeping previous generation", "error", err)
	}

	if snap := c.current.Load(); snap != nil {
		return snap
	}
	return &Snapshot{}
}

// Refresh rebuilds the index unconditionally. The load step is
// replace-or-keep: a source failure aborts the refresh and the previous
// generation stays live. Per-record embedding failures only drop the
// offending record.
func (c *Cache) Refresh(ctx context.Context) (RefreshStats, error) {
	records, err := c.source.Fetch(ctx)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ObserveRefresh(false, 0, 0)
		}
		return RefreshStats{}, err
	}

	stats := RefreshStats{Attempted: len(records)}
	indexed := make([]IndexedRecord, 0, len(records))
	dims := 0
	for _, rec := range records {
		vector, err := c.embedder.Embed(ctx, rec.Question)
		if err != nil {
			stats.Skipped++
			c.logger.Warn("embedding failed, skipping record", "question", rec.Question, "error", err)
			continue
		}
		if len(vector) == 0 || (dims != 0 && len(vector) != dims) {
			stats.Skipped++
			c.logger.Warn("embedding dimension mismatch, skipping record", "question", rec.Question, "got", len(vector), "want", dims)
			continue
		}
		dims = len(vector)
		indexed = append(indexed, IndexedRecord{
			Record:             rec,
			NormalizedQuestion: Normalize(rec.Question),
			Embedding:          vector,
		})
	}
	stats.Indexed = len(indexed)

	c.current.Store(&Snapshot{Records: indexed, GeneratedAt: c.now()})
	if c.metrics != nil {
		c.metrics.ObserveRefresh(true, stats.Indexed, stats.Skipped)
	}
	c.logger.Info("index refreshed", "attempted", stats.Attempted, "indexed", stats.Indexed, "skipped", stats.Skipped)
	return stats, nil
}
