package faq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/faq-webhook/internal/infra/llm/openai"
	apperrors "github.com/yanqian/faq-webhook/pkg/errors"
)

// Service answers user messages: FAQ resolution first, generative fallback
// when no record clears a threshold.
type Service interface {
	Answer(ctx context.Context, req Request) (Response, error)
	Trending(ctx context.Context) ([]TrendingQuery, error)
}

// ChatClient is the slice of the LLM client the fallback path needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Request encapsulates one user question.
type Request struct {
	Question string `json:"question"`
}

// Response is returned to the transport layer.
type Response struct {
	Question        string          `json:"question"`
	Answer          string          `json:"answer"`
	Source          string          `json:"source"`
	MatchedQuestion string          `json:"matchedQuestion,omitempty"`
	Method          Method          `json:"method,omitempty"`
	Score           float64         `json:"score,omitempty"`
	Recommendations []TrendingQuery `json:"recommendations,omitempty"`
}

type service struct {
	cfg      Config
	resolver *Resolver
	store    Store
	client   ChatClient
	logger   *slog.Logger
}

// NewService wires up the FAQ domain.
func NewService(cfg Config, resolver *Resolver, store Store, client ChatClient, logger *slog.Logger) Service {
	return &service{
		cfg:      cfg,
		resolver: resolver,
		store:    store,
		client:   client,
		logger:   logger.With("component", "faq.service"),
	}
}

func (s *service) Answer(ctx context.Context, req Request) (Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "question cannot be empty", nil)
	}

	normalized := Normalize(question)

	resp := Response{Question: question}
	if match, ok := s.resolver.Resolve(ctx, question); ok {
		resp.Answer = match.Answer
		resp.Source = "faq"
		resp.MatchedQuestion = match.Question
		resp.Method = match.Method
		resp.Score = match.Score
	} else {
		answer, source, err := s.fallbackAnswer(ctx, normalized, question)
		if err != nil {
			return Response{}, err
		}
		resp.Answer = answer
		resp.Source = source
	}

	if err := s.store.IncrementQuery(ctx, normalized, question); err != nil {
		s.logger.Warn("trending increment failed", "error", err)
	}
	if recs, err := s.store.TopQueries(ctx, s.cfg.TopRecommendations); err != nil {
		s.logger.Warn("trending fetch failed", "error", err)
	} else {
		resp.Recommendations = recs
	}

	return resp, nil
}

func (s *service) Trending(ctx context.Context) ([]TrendingQuery, error) {
	recs, err := s.store.TopQueries(ctx, s.cfg.TopRecommendations)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFAQError, "failed to load trending queries", err)
	}
	return recs, nil
}

// fallbackAnswer consults the answer cache before asking the LLM. Cache
// write failures are non-fatal.
func (s *service) fallbackAnswer(ctx context.Context, key, question string) (string, string, error) {
	cached, ok, err := s.store.GetAnswer(ctx, key)
	if err != nil {
		s.logger.Warn("answer cache lookup failed", "error", err)
	} else if ok {
		return cached.Answer, "cache", nil
	}

	answer, err := s.askLLM(ctx, question)
	if err != nil {
		return "", "", err
	}

	record := AnswerRecord{
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now(),
	}
	if err := s.store.SaveAnswer(ctx, key, record, s.cfg.AnswerCacheTTL); err != nil {
		s.logger.Warn("answer cache save failed", "error", err)
	}
	return answer, "llm", nil
}

func (s *service) askLLM(ctx context.Context, question string) (string, error) {
	prompt := strings.TrimSpace(s.cfg.FallbackPrompt)
	if prompt == "" {
		prompt = "You are a helpful assistant."
	}
	messages := []openai.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: fmt.Sprintf("Question: %s\nAnswer concisely in 3 sentences or less.", question)},
	}
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeLLMError, "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.Wrap(apperrors.CodeLLMError, "chat completion returned no choices", errors.New("empty choices"))
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", apperrors.Wrap(apperrors.CodeLLMError, "chat completion response empty", nil)
	}
	return answer, nil
}
