package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/faq-webhook/internal/domain/faq"
	"github.com/yanqian/faq-webhook/internal/infra/config"
	corpuspg "github.com/yanqian/faq-webhook/internal/infra/corpus/postgres"
	"github.com/yanqian/faq-webhook/internal/infra/corpus/sheet"
	"github.com/yanqian/faq-webhook/internal/infra/faqstore"
	"github.com/yanqian/faq-webhook/internal/infra/llm/openai"
	"github.com/yanqian/faq-webhook/internal/infra/messenger/line"
	httpiface "github.com/yanqian/faq-webhook/internal/interface/http"
	"github.com/yanqian/faq-webhook/pkg/metrics"
)

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
}

// New assembles the full dependency graph from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	m := metrics.New()

	llmClient, err := openai.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
	if err != nil {
		return nil, err
	}
	embedder := openai.NewEmbedder(llmClient, cfg.LLM.EmbeddingModel, logger)

	messenger, err := line.NewClient(cfg.Line.ChannelSecret, cfg.Line.ChannelToken, cfg.Line.APIBaseURL)
	if err != nil {
		return nil, err
	}

	source := provideSource(cfg, logger)
	cache := faq.NewCache(source, embedder, cfg.FAQ.RefreshInterval, logger, m)

	faqCfg := faq.Config{
		SemanticThreshold:  cfg.FAQ.SemanticThreshold,
		LexicalThreshold:   cfg.FAQ.LexicalThreshold,
		RefreshInterval:    cfg.FAQ.RefreshInterval,
		KeywordRules:       provideKeywordRules(cfg),
		Model:              cfg.LLM.Model,
		Temperature:        cfg.LLM.Temperature,
		FallbackPrompt:     cfg.FAQ.FallbackPrompt,
		AnswerCacheTTL:     cfg.FAQ.AnswerCacheTTL,
		TopRecommendations: cfg.FAQ.TopRecommendations,
	}
	resolver := faq.NewResolver(faqCfg, cache, embedder, logger, m)
	service := faq.NewService(faqCfg, resolver, provideStore(cfg, logger), llmClient, logger)

	handler := httpiface.NewHandler(service, logger)
	webhook := httpiface.NewWebhookHandler(service, messenger, logger)
	server := httpiface.NewRouter(cfg, handler, webhook, m, logger)

	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server}, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func provideKeywordRules(cfg *config.Config) []faq.KeywordRule {
	rules := make([]faq.KeywordRule, 0, len(cfg.FAQ.KeywordRules))
	for _, rule := range cfg.FAQ.KeywordRules {
		rules = append(rules, faq.KeywordRule{Term: rule.Term, MinScore: rule.MinScore})
	}
	return rules
}

func provideSource(cfg *config.Config, logger *slog.Logger) faq.Source {
	fallback := sheet.NewClient(cfg.Corpus.SheetURL, cfg.Corpus.FetchTimeout)
	dsn := strings.TrimSpace(cfg.Corpus.Postgres.DSN)
	if dsn == "" {
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using sheet source", "error", err)
		return fallback
	}
	if cfg.Corpus.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Corpus.Postgres.MaxConns
	}
	if cfg.Corpus.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Corpus.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using sheet source", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using sheet source", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("postgres corpus source enabled", "table", cfg.Corpus.Postgres.Table)
	return corpuspg.NewSource(pool, cfg.Corpus.Postgres.Table)
}

func provideStore(cfg *config.Config, logger *slog.Logger) faq.Store {
	if cfg.FAQ.Valkey.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return faqstore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return faqstore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
		} else {
			logger.Info("valkey store enabled", "addr", cfg.FAQ.Valkey.Addr)
			return faqstore.NewValkeyStore(client, "faq")
		}
	}
	return faqstore.NewMemoryStore()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.FAQ.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.FAQ.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.FAQ.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}
