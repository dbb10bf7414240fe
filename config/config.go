package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries every tunable the pipeline uses. It is built once in main
// and injected; packages never read the environment themselves.
type Config struct {
	AppEnv   string
	LogLevel string
	HTTPPort int

	PostgresDSN    string
	ValkeyAddr     string
	ValkeyPassword string
	ValkeyTLS      bool

	OpenAIAPIKey   string
	ChatModel      string
	EmbeddingModel string

	NewsAPIKey         string
	YouTubeAPIKey      string
	SportsDBKey        string
	RedditClientID     string
	RedditClientSecret string

	// VectorBackend selects the embedding store: "pgvector" or "opensearch".
	VectorBackend      string
	OpenSearchEndpoint string
	OpenSearchPassword string

	AWSRegion      string
	DynamoEndpoint string
	PerfLogTable   string

	SoftDailyLimitUSD float64
	HardDailyLimitUSD float64

	// Dedup and ranking constants are hand-tuned; they are surfaced here so
	// they can be re-tuned empirically without touching pipeline code.
	DedupThreshold    float64
	DedupNeighborhood int
	DedupBatchSize    int
	DedupConcurrency  int
	PreferenceBoost   float64
	BreakingBoost     float64

	FreshnessWindow time.Duration
	AdapterTimeout  time.Duration
	DigestTopK      int
	DigestTTL       time.Duration

	EmbedTTLDiscussion time.Duration
	EmbedTTLNews       time.Duration
	EmbedTTLHighlight  time.Duration
}

// Load builds a Config from the environment, applying defaults for anything
// unset. Only structurally invalid values produce an error; missing provider
// keys are tolerated so the corresponding adapter can fail in isolation.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		ValkeyAddr:     getEnv("VALKEY_INIT_ADDRESS", "localhost:6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),
		ValkeyTLS:      os.Getenv("VALKEY_TLS") == "true",

		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		ChatModel:      getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),

		NewsAPIKey:         os.Getenv("NEWS_API_KEY"),
		YouTubeAPIKey:      os.Getenv("YOUTUBE_API_KEY"),
		SportsDBKey:        getEnv("SPORTSDB_API_KEY", "3"),
		RedditClientID:     os.Getenv("REDDIT_CLIENT_ID"),
		RedditClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),

		VectorBackend:      getEnv("VECTOR_BACKEND", "pgvector"),
		OpenSearchEndpoint: os.Getenv("OPENSEARCH_ENDPOINT"),
		OpenSearchPassword: os.Getenv("OPENSEARCH_PASSWORD"),

		AWSRegion:      getEnv("AWS_REGION", "us-west-2"),
		DynamoEndpoint: os.Getenv("AWS_ENDPOINT"),
		PerfLogTable:   getEnv("PERF_LOG_TABLE", "rag_performance_logs"),
	}

	var err error
	if cfg.HTTPPort, err = getEnvInt("HTTP_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.SoftDailyLimitUSD, err = getEnvFloat("SOFT_DAILY_LIMIT_USD", 5.0); err != nil {
		return nil, err
	}
	if cfg.HardDailyLimitUSD, err = getEnvFloat("HARD_DAILY_LIMIT_USD", 10.0); err != nil {
		return nil, err
	}
	if cfg.DedupThreshold, err = getEnvFloat("DEDUP_THRESHOLD", 0.85); err != nil {
		return nil, err
	}
	if cfg.DedupNeighborhood, err = getEnvInt("DEDUP_NEIGHBORHOOD", 4); err != nil {
		return nil, err
	}
	if cfg.DedupBatchSize, err = getEnvInt("DEDUP_BATCH_SIZE", 5); err != nil {
		return nil, err
	}
	if cfg.DedupConcurrency, err = getEnvInt("DEDUP_CONCURRENCY", 3); err != nil {
		return nil, err
	}
	if cfg.PreferenceBoost, err = getEnvFloat("RANK_PREFERENCE_BOOST", 0.2); err != nil {
		return nil, err
	}
	if cfg.BreakingBoost, err = getEnvFloat("RANK_BREAKING_BOOST", 0.25); err != nil {
		return nil, err
	}
	if cfg.DigestTopK, err = getEnvInt("DIGEST_TOP_K", 7); err != nil {
		return nil, err
	}
	if cfg.FreshnessWindow, err = getEnvDuration("FRESHNESS_WINDOW", 14*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.AdapterTimeout, err = getEnvDuration("ADAPTER_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.DigestTTL, err = getEnvDuration("DIGEST_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.EmbedTTLDiscussion, err = getEnvDuration("EMBED_TTL_DISCUSSION", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.EmbedTTLNews, err = getEnvDuration("EMBED_TTL_NEWS", 72*time.Hour); err != nil {
		return nil, err
	}
	if cfg.EmbedTTLHighlight, err = getEnvDuration("EMBED_TTL_HIGHLIGHT", 168*time.Hour); err != nil {
		return nil, err
	}

	if cfg.SoftDailyLimitUSD > cfg.HardDailyLimitUSD {
		return nil, fmt.Errorf("SOFT_DAILY_LIMIT_USD (%v) exceeds HARD_DAILY_LIMIT_USD (%v)",
			cfg.SoftDailyLimitUSD, cfg.HardDailyLimitUSD)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}
