package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP   HTTPConfig   `yaml:"http"`
	LLM    LLMConfig    `yaml:"llm"`
	Corpus CorpusConfig `yaml:"corpus"`
	FAQ    FAQConfig    `yaml:"faq"`
	Line   LineConfig   `yaml:"line"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// LLMConfig contains OpenAI-compatible API settings.
type LLMConfig struct {
	APIKey         string        `yaml:"apiKey"`
	BaseURL        string        `yaml:"baseUrl"`
	Model          string        `yaml:"model"`
	EmbeddingModel string        `yaml:"embeddingModel"`
	Temperature    float32       `yaml:"temperature"`
	Timeout        time.Duration `yaml:"timeout"`
}

// CorpusConfig locates the FAQ corpus source.
type CorpusConfig struct {
	SheetURL     string         `yaml:"sheetUrl"`
	FetchTimeout time.Duration  `yaml:"fetchTimeout"`
	Postgres     PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains DSN and pooling settings for the table-backed
// corpus source. When DSN is empty the HTTP sheet source is used.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	Table    string `yaml:"table"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// KeywordRule forces a lexical score floor when both query and candidate
// contain the normalized term.
type KeywordRule struct {
	Term     string  `yaml:"term"`
	MinScore float64 `yaml:"minScore"`
}

// FAQConfig controls the resolution engine and the generative fallback.
type FAQConfig struct {
	SemanticThreshold  float64       `yaml:"semanticThreshold"`
	LexicalThreshold   float64       `yaml:"lexicalThreshold"`
	RefreshInterval    time.Duration `yaml:"refreshInterval"`
	KeywordRules       []KeywordRule `yaml:"keywordRules"`
	FallbackPrompt     string        `yaml:"fallbackPrompt"`
	AnswerCacheTTL     time.Duration `yaml:"answerCacheTtl"`
	TopRecommendations int           `yaml:"topRecommendations"`
	Valkey             ValkeyConfig  `yaml:"valkey"`
}

// ValkeyConfig contains connection information for the answer/trending store.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LineConfig contains the chat-platform webhook credentials.
type LineConfig struct {
	ChannelSecret string `yaml:"channelSecret"`
	ChannelToken  string `yaml:"channelToken"`
	APIBaseURL    string `yaml:"apiBaseUrl"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = parsed
		}
	}
	if v := os.Getenv("CORPUS_SHEET_URL"); v != "" {
		cfg.Corpus.SheetURL = v
	}
	if v := os.Getenv("CORPUS_FETCH_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Corpus.FetchTimeout = parsed
		}
	}
	if v := os.Getenv("CORPUS_POSTGRES_DSN"); v != "" {
		cfg.Corpus.Postgres.DSN = v
	}
	if v := os.Getenv("CORPUS_POSTGRES_TABLE"); v != "" {
		cfg.Corpus.Postgres.Table = v
	}
	if v := os.Getenv("FAQ_SEMANTIC_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.FAQ.SemanticThreshold = parsed
		}
	}
	if v := os.Getenv("FAQ_LEXICAL_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.FAQ.LexicalThreshold = parsed
		}
	}
	if v := os.Getenv("FAQ_REFRESH_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.FAQ.RefreshInterval = parsed
		}
	}
	if v := os.Getenv("FAQ_FALLBACK_PROMPT"); v != "" {
		cfg.FAQ.FallbackPrompt = v
	}
	if v := os.Getenv("FAQ_ANSWER_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.FAQ.AnswerCacheTTL = parsed
		}
	}
	if v := os.Getenv("FAQ_RECOMMENDATIONS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.TopRecommendations = parsed
		}
	}
	if v := os.Getenv("FAQ_VALKEY_ENABLED"); v != "" {
		cfg.FAQ.Valkey.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("FAQ_VALKEY_ADDR"); v != "" {
		cfg.FAQ.Valkey.Addr = v
	}
	if v := os.Getenv("LINE_CHANNEL_SECRET"); v != "" {
		cfg.Line.ChannelSecret = v
	}
	if v := os.Getenv("LINE_CHANNEL_TOKEN"); v != "" {
		cfg.Line.ChannelToken = v
	}
	if v := os.Getenv("LINE_API_BASE_URL"); v != "" {
		cfg.Line.APIBaseURL = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.2,
			Timeout:        30 * time.Second,
		},
		Corpus: CorpusConfig{
			FetchTimeout: 10 * time.Second,
			Postgres: PostgresConfig{
				Table:    "faq_entries",
				MaxConns: 4,
			},
		},
		FAQ: FAQConfig{
			SemanticThreshold: 0.7,
			LexicalThreshold:  0.5,
			RefreshInterval:   10 * time.Minute,
			KeywordRules: []KeywordRule{
				{Term: "営業時間", MinScore: 0.6},
				{Term: "定休日", MinScore: 0.6},
			},
			FallbackPrompt:     "You are a store assistant. Answer the customer's question politely and concisely in the language of the question.",
			AnswerCacheTTL:     6 * time.Hour,
			TopRecommendations: 10,
		},
		Line: LineConfig{
			APIBaseURL: "https://api.line.me",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.LLM.EmbeddingModel) == "" {
		return errors.New("llm.embeddingModel cannot be empty")
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("llm.timeout must be positive")
	}
	if strings.TrimSpace(c.Corpus.SheetURL) == "" && strings.TrimSpace(c.Corpus.Postgres.DSN) == "" {
		return errors.New("corpus.sheetUrl or corpus.postgres.dsn must be set")
	}
	if c.Corpus.FetchTimeout <= 0 {
		return errors.New("corpus.fetchTimeout must be positive")
	}
	if c.FAQ.SemanticThreshold < 0 || c.FAQ.SemanticThreshold > 1 {
		return errors.New("faq.semanticThreshold must be within [0,1]")
	}
	if c.FAQ.LexicalThreshold < 0 || c.FAQ.LexicalThreshold > 1 {
		return errors.New("faq.lexicalThreshold must be within [0,1]")
	}
	if c.FAQ.RefreshInterval <= 0 {
		return errors.New("faq.refreshInterval must be positive")
	}
	for _, rule := range c.FAQ.KeywordRules {
		if strings.TrimSpace(rule.Term) == "" {
			return errors.New("faq.keywordRules entries need a term")
		}
		if rule.MinScore < 0 || rule.MinScore > 1 {
			return errors.New("faq.keywordRules minScore must be within [0,1]")
		}
	}
	if c.FAQ.AnswerCacheTTL < 0 {
		return errors.New("faq.answerCacheTtl cannot be negative")
	}
	if c.FAQ.TopRecommendations < 0 {
		return errors.New("faq.topRecommendations cannot be negative")
	}
	if c.FAQ.Valkey.Enabled && strings.TrimSpace(c.FAQ.Valkey.Addr) == "" {
		return errors.New("faq.valkey.addr cannot be empty when valkey is enabled")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	return nil
}
