package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	apperrors "github.com/yanqian/faq-webhook/pkg/errors"
)

// Embedding inputs beyond the model's context window are truncated rather
// than rejected; FAQ questions virtually never get this long.
const maxEmbeddingTokens = 8191

// Embedder adapts the API client to the faq.Embedder contract, bounding
// input length with the model's tokenizer. A nil encoding (unknown model)
// falls back to cl100k_base.
type Embedder struct {
	client   *Client
	model    string
	encoding *tiktoken.Tiktoken
	logger   *slog.Logger
}

// NewEmbedder constructs an embedder for the given embedding model.
func NewEmbedder(client *Client, model string, logger *slog.Logger) *Embedder {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			encoding = nil
		}
	}
	return &Embedder{
		client:   client,
		model:    strings.TrimSpace(model),
		encoding: encoding,
		logger:   logger.With("component", "openai.embedder"),
	}
}

// Embed requests an embedding for a single text. Any non-success outcome is
// reported as an embedding error so callers can pick their degradation path.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	input := e.truncate(strings.TrimSpace(text))
	if input == "" {
		return nil, apperrors.Wrap(apperrors.CodeEmbeddingError, "embedding input empty", nil)
	}

	resp, err := e.client.CreateEmbedding(ctx, EmbeddingRequest{
		Model: e.model,
		Input: input,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeEmbeddingError, "embedding request failed", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeEmbeddingError, "embedding response empty", errors.New("no vector in response"))
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	copy(vector, resp.Data[0].Embedding)
	return vector, nil
}

func (e *Embedder) truncate(text string) string {
	if e.encoding == nil || text == "" {
		return text
	}
	tokens := e.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxEmbeddingTokens {
		return text
	}
	e.logger.Warn("embedding input truncated", "tokens", len(tokens), "limit", maxEmbeddingTokens)
	return e.encoding.Decode(tokens[:maxEmbeddingTokens])
}
