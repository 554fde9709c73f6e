package sheet

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yanqian/faq-webhook/internal/domain/faq"
	apperrors "github.com/yanqian/faq-webhook/pkg/errors"
)

// Column header aliases accepted for each field, in priority order. The
// sheet is maintained by hand and the headers have drifted between
// languages, so matching is case-insensitive and per row the first
// non-empty aliased cell wins.
var (
	questionAliases = []string{"question", "質問", "しつもん", "q"}
	answerAliases   = []string{"answer", "回答", "かいとう", "a"}
	tagAliases      = []string{"tags", "tag", "タグ", "カテゴリ", "category"}
)

// Client fetches the FAQ corpus from a published spreadsheet CSV export.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient builds a corpus client. Every fetch is bounded by timeout.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url: strings.TrimSpace(url),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch downloads and parses the corpus. Rows without a resolvable question
// or answer are dropped silently; fetch and header failures are reported as
// source-unavailable so the index keeps its previous generation.
func (c *Client) Fetch(ctx context.Context) ([]faq.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSourceUnavailable, "build corpus request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSourceUnavailable, "corpus request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, apperrors.Wrap(apperrors.CodeSourceUnavailable, "corpus request error: "+resp.Status, errors.New(string(body)))
	}

	return parseCSV(resp.Body)
}

func parseCSV(r io.Reader) ([]faq.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSourceUnavailable, "read corpus header", err)
	}

	questionCols := matchColumns(header, questionAliases)
	answerCols := matchColumns(header, answerAliases)
	tagCols := matchColumns(header, tagAliases)
	if len(questionCols) == 0 || len(answerCols) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeSourceUnavailable, "corpus header missing question or answer column", nil)
	}

	var records []faq.Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeSourceUnavailable, "read corpus row", err)
		}

		question := firstNonEmpty(row, questionCols)
		answer := firstNonEmpty(row, answerCols)
		if question == "" || answer == "" {
			continue
		}
		records = append(records, faq.Record{
			Question: question,
			Answer:   answer,
			Tags:     firstNonEmpty(row, tagCols),
		})
	}
	return records, nil
}

// matchColumns returns the header indexes matching any alias, in alias
// priority order.
func matchColumns(header []string, aliases []string) []int {
	var cols []int
	for _, alias := range aliases {
		for i, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), alias) {
				cols = append(cols, i)
			}
		}
	}
	return cols
}

func firstNonEmpty(row []string, cols []int) string {
	for _, col := range cols {
		if col >= len(row) {
			continue
		}
		if value := strings.TrimSpace(row[col]); value != "" {
			return value
		}
	}
	return ""
}

var _ faq.Source = (*Client)(nil)
