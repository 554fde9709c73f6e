package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/faq-webhook/internal/domain/faq"
	apperrors "github.com/yanqian/faq-webhook/pkg/errors"
)

// Source reads the FAQ corpus from a Postgres table instead of the
// published sheet. Same contract: malformed rows are dropped, fetch
// failures surface as source-unavailable.
type Source struct {
	pool  *pgxpool.Pool
	table string
}

// NewSource constructs the table-backed corpus source.
func NewSource(pool *pgxpool.Pool, table string) *Source {
	if strings.TrimSpace(table) == "" {
		table = "faq_entries"
	}
	return &Source{pool: pool, table: table}
}

// Fetch implements faq.Source. Ordering by id keeps index order, and
// therefore tie-breaking, stable across generations.
func (s *Source) Fetch(ctx context.Context) ([]faq.Record, error) {
	query := `
		SELECT question, answer, COALESCE(tags, '')
		FROM ` + pgx.Identifier{s.table}.Sanitize() + `
		ORDER BY id
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSourceUnavailable, "corpus query failed", err)
	}
	defer rows.Close()

	var records []faq.Record
	for rows.Next() {
		var rec faq.Record
		if err := rows.Scan(&rec.Question, &rec.Answer, &rec.Tags); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeSourceUnavailable, "scan corpus row", err)
		}
		rec.Question = strings.TrimSpace(rec.Question)
		rec.Answer = strings.TrimSpace(rec.Answer)
		if rec.Question == "" || rec.Answer == "" {
			continue
		}
		rec.Tags = strings.TrimSpace(rec.Tags)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSourceUnavailable, "read corpus rows", err)
	}
	return records, nil
}

var _ faq.Source = (*Source)(nil)
