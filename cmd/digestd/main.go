package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spacesedan/sportsdigest/config"
	"github.com/spacesedan/sportsdigest/internal/adapters"
	"github.com/spacesedan/sportsdigest/internal/budget"
	"github.com/spacesedan/sportsdigest/internal/cache"
	"github.com/spacesedan/sportsdigest/internal/clients"
	"github.com/spacesedan/sportsdigest/internal/dedup"
	"github.com/spacesedan/sportsdigest/internal/digest"
	"github.com/spacesedan/sportsdigest/internal/embedding"
	"github.com/spacesedan/sportsdigest/internal/logging"
	"github.com/spacesedan/sportsdigest/internal/pipeline"
	"github.com/spacesedan/sportsdigest/internal/profile"
	"github.com/spacesedan/sportsdigest/internal/ranking"
	"github.com/spacesedan/sportsdigest/internal/server"
	"github.com/spacesedan/sportsdigest/internal/vectorstore"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("[Main] Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := clients.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		slog.Error("[Main] Failed to connect to Postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	valkeyClient, err := clients.NewValkeyClient(cfg.ValkeyAddr, cfg.ValkeyPassword, cfg.ValkeyTLS)
	if err != nil {
		slog.Error("[Main] Failed to connect to Valkey", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer valkeyClient.Close()

	openaiClient, err := clients.NewOpenAIClient(cfg.OpenAIAPIKey)
	if err != nil {
		slog.Error("[Main] Failed to initialize OpenAI client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ledger := budget.NewPgLedger(pool, cfg.HardDailyLimitUSD)
	guard := budget.NewGuard(ledger, cfg.SoftDailyLimitUSD, cfg.HardDailyLimitUSD)

	embedder := embedding.NewOpenAIEmbedder(openaiClient.Client, cfg.EmbeddingModel, ledger)

	scorer := dedup.NewLLMScorer(openaiClient.Client, cfg.ChatModel, ledger)
	engine := dedup.NewEngine(scorer, cfg.DedupThreshold,
		cfg.DedupNeighborhood, cfg.DedupBatchSize, cfg.DedupConcurrency)

	ranker := ranking.NewRanker(cfg.PreferenceBoost, cfg.BreakingBoost, cfg.FreshnessWindow)

	var store vectorstore.Store
	switch cfg.VectorBackend {
	case "opensearch":
		osClient, err := clients.NewOpenSearchClient(ctx, cfg.AppEnv, cfg.OpenSearchEndpoint, cfg.OpenSearchPassword)
		if err != nil {
			slog.Error("[Main] Failed to initialize OpenSearch", slog.String("error", err.Error()))
			os.Exit(1)
		}
		store = vectorstore.NewOSStore(osClient.Client)
	default:
		store = vectorstore.NewPgStore(pool)
	}
	slog.Info("[Main] Vector backend selected", slog.String("backend", cfg.VectorBackend))

	var perf pipeline.PerfLogger
	if dynamoClient, err := clients.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint); err != nil {
		slog.Warn("[Main] DynamoDB unavailable, performance logging disabled",
			slog.String("error", err.Error()))
	} else {
		perf = pipeline.NewDynamoPerfLogger(dynamoClient, cfg.PerfLogTable)
	}

	sources := buildAdapters(cfg, ledger)
	digestCache := cache.NewDigestCache(valkeyClient, cfg.DigestTTL)
	generator := digest.NewGenerator(openaiClient.Client, cfg.ChatModel, ledger)
	profiles := profile.NewPgStore(pool)

	orchestrator := pipeline.NewOrchestrator(
		pipeline.Config{
			TopK:               cfg.DigestTopK,
			DigestTTL:          cfg.DigestTTL,
			FreshnessWindow:    cfg.FreshnessWindow,
			AdapterTimeout:     cfg.AdapterTimeout,
			EmbedTTLDiscussion: cfg.EmbedTTLDiscussion,
			EmbedTTLNews:       cfg.EmbedTTLNews,
			EmbedTTLHighlight:  cfg.EmbedTTLHighlight,
		},
		sources, guard, engine, ranker, embedder, store,
		digestCache, generator, profiles, perf,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           server.New(orchestrator).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("[Main] Digest service listening", slog.Int("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("[Main] HTTP server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("[Main] Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("[Main] Graceful shutdown failed", slog.String("error", err.Error()))
	}
}

// buildAdapters wires every provider with a configured credential. Missing
// keys just drop that source; the pipeline runs with whatever remains.
func buildAdapters(cfg *config.Config, ledger budget.Ledger) []adapters.SourceAdapter {
	sources := []adapters.SourceAdapter{
		adapters.NewESPNAdapter(clients.NewESPNClient(), ledger),
		adapters.NewSportsDBAdapter(clients.NewSportsDBClient(cfg.SportsDBKey), ledger),
	}

	if cfg.NewsAPIKey != "" {
		sources = append(sources, adapters.NewNewsAPIAdapter(clients.NewNewsAPIClient(cfg.NewsAPIKey), ledger))
	} else {
		slog.Warn("[Main] NEWS_API_KEY unset, NewsAPI adapter disabled")
	}

	if cfg.RedditClientID != "" && cfg.RedditClientSecret != "" {
		sources = append(sources, adapters.NewRedditAdapter(
			clients.NewRedditClient(cfg.RedditClientID, cfg.RedditClientSecret), ledger))
	} else {
		slog.Warn("[Main] Reddit credentials unset, Reddit adapter disabled")
	}

	if cfg.YouTubeAPIKey != "" {
		sources = append(sources, adapters.NewYouTubeAdapter(clients.NewYouTubeClient(cfg.YouTubeAPIKey), ledger))
	} else {
		slog.Warn("[Main] YOUTUBE_API_KEY unset, YouTube adapter disabled")
	}

	return sources
}
