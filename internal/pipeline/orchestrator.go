package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spacesedan/sportsdigest/internal/adapters"
	"github.com/spacesedan/sportsdigest/internal/budget"
	"github.com/spacesedan/sportsdigest/internal/cache"
	"github.com/spacesedan/sportsdigest/internal/digest"
	"github.com/spacesedan/sportsdigest/internal/models"
	"github.com/spacesedan/sportsdigest/internal/vectorstore"
)

const defaultHistoryLimit = 50

// Config carries the orchestrator's tunables, injected from the process
// configuration in cmd/digestd.
type Config struct {
	TopK            int
	DigestTTL       time.Duration
	FreshnessWindow time.Duration
	AdapterTimeout  time.Duration
	HistoryLimit    int

	EmbedTTLDiscussion time.Duration
	EmbedTTLNews       time.Duration
	EmbedTTLHighlight  time.Duration
}

func (c Config) embedTTL(ct models.ContentType) time.Duration {
	switch ct {
	case models.ContentTypeDiscussion:
		return c.EmbedTTLDiscussion
	case models.ContentTypeHighlight:
		return c.EmbedTTLHighlight
	default:
		return c.EmbedTTLNews
	}
}

// Narrow views of the collaborators, sized to what the orchestrator calls.

type BudgetChecker interface {
	Check(ctx context.Context) (budget.Status, error)
}

type Deduper interface {
	Deduplicate(ctx context.Context, items []models.ContentItem) ([]models.ContentItem, []models.DuplicateCluster)
}

type Ranker interface {
	Rank(items []models.ContentItem, history []models.Interaction) []models.ContentItem
}

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type DigestCache interface {
	Get(ctx context.Context, userID string) (models.CachedDigest, error)
	GetStale(ctx context.Context, userID string) (models.CachedDigest, error)
	Put(ctx context.Context, digest models.CachedDigest) error
	MarkSeen(ctx context.Context, hashes []string) error
	FilterUnseen(ctx context.Context, hashes []string) []string
}

type Generator interface {
	Generate(ctx context.Context, userID string, teams []string, items []models.ContentItem) (string, error)
}

type ProfileStore interface {
	FavoriteTeams(ctx context.Context, userID string) (models.TeamSet, error)
	InteractionHistory(ctx context.Context, userID string, limit int) ([]models.Interaction, error)
}

type PerfLogger interface {
	Log(ctx context.Context, entry PerfEntry)
}

// Orchestrator drives one digest request through the pipeline stages:
// cache check, budget check, fan-out fetch, dedup, rank, vector upsert and
// retrieval, generation, cache write. Every failure edge lands on a cached,
// budget-limited, or placeholder response; Run never returns an error.
type Orchestrator struct {
	cfg       Config
	adapters  []adapters.SourceAdapter
	budget    BudgetChecker
	dedup     Deduper
	ranker    Ranker
	embedder  Embedder
	store     vectorstore.Store
	cache     DigestCache
	generator Generator
	profiles  ProfileStore
	perf      PerfLogger
	now       func() time.Time
}

func NewOrchestrator(
	cfg Config,
	sources []adapters.SourceAdapter,
	guard BudgetChecker,
	dedup Deduper,
	ranker Ranker,
	embedder Embedder,
	store vectorstore.Store,
	digests DigestCache,
	generator Generator,
	profiles ProfileStore,
	perf PerfLogger,
) *Orchestrator {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	return &Orchestrator{
		cfg:       cfg,
		adapters:  sources,
		budget:    guard,
		dedup:     dedup,
		ranker:    ranker,
		embedder:  embedder,
		store:     store,
		cache:     digests,
		generator: generator,
		profiles:  profiles,
		perf:      perf,
		now:       time.Now,
	}
}

// SetClock overrides the orchestrator's time source. Test hook.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// Run executes the full request flow and always produces a response.
func (o *Orchestrator) Run(ctx context.Context, req models.DigestRequest) models.DigestResponse {
	start := o.now()
	resp := o.run(ctx, req)
	o.logPerf(ctx, req, resp, o.now().Sub(start))
	return resp
}

func (o *Orchestrator) run(ctx context.Context, req models.DigestRequest) models.DigestResponse {
	// Stage: cache check.
	if !req.ForceRefresh {
		if cached, err := o.cache.Get(ctx, req.UserID); err == nil {
			slog.Info("[Orchestrator] Serving cached digest", slog.String("user_id", req.UserID))
			return models.DigestResponse{
				Summary:     cached.Content,
				Cached:      true,
				SourcesUsed: cached.SourceSnapshot,
				QualityTag:  models.QualityCached,
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("[Orchestrator] Cache read failed, continuing as miss",
				slog.String("user_id", req.UserID),
				slog.String("error", err.Error()))
		}
	}

	// Stage: budget check. A guard error means spend is unknown; treat it as
	// the soft limit so no paid call happens on missing information.
	status, err := o.budget.Check(ctx)
	if err != nil {
		slog.Warn("[Orchestrator] Budget check failed, degrading to soft limit",
			slog.String("error", err.Error()))
		status = budget.StatusSoftLimit
	}

	teams, history := o.loadProfile(ctx, req.UserID)

	if status == budget.StatusHardLimit {
		slog.Warn("[Orchestrator] Hard budget limit reached, bypassing paid stages",
			slog.String("user_id", req.UserID))
		return o.budgetLimited(ctx, req.UserID, teams)
	}

	// Stage: fetch.
	items, sourcesUsed := o.fetchAll(ctx, teams)

	// Stage: dedup (free — it degrades to pass-through when scoring is paid
	// and unavailable).
	items, clusters := o.dedup.Deduplicate(ctx, items)
	if len(clusters) > 0 {
		slog.Info("[Orchestrator] Collapsed duplicate items",
			slog.Int("clusters", len(clusters)))
	}

	// Stage: rank.
	ranked := o.ranker.Rank(items, history)

	topK := o.cfg.TopK
	if req.MaxArticles > 0 && req.MaxArticles < topK {
		topK = req.MaxArticles
	}

	if status == budget.StatusSoftLimit {
		slog.Warn("[Orchestrator] Soft budget limit reached, skipping paid generation",
			slog.String("user_id", req.UserID))
		return o.budgetLimited(ctx, req.UserID, teams)
	}

	// Stage: vector upsert + retrieval top-up. Best effort on both sides.
	ranked = o.syncVectors(ctx, ranked, teams, topK)

	if len(ranked) == 0 {
		slog.Warn("[Orchestrator] No items survived fetch and retrieval",
			slog.String("user_id", req.UserID))
		return o.degraded(ctx, req.UserID, teams)
	}
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	// Stage: generate.
	summary, err := o.generator.Generate(ctx, req.UserID, teams, ranked)
	if err != nil {
		slog.Error("[Orchestrator] Digest generation failed",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()))
		return o.degraded(ctx, req.UserID, teams)
	}

	// Stage: cache write. Losing the write costs a regeneration, nothing more.
	now := o.now().UTC()
	if err := o.cache.Put(ctx, models.CachedDigest{
		UserID:         req.UserID,
		Content:        summary,
		SourceSnapshot: sourcesUsed,
		CreatedAt:      now,
		ExpiresAt:      now.Add(o.cfg.DigestTTL),
	}); err != nil {
		slog.Warn("[Orchestrator] Failed to cache digest",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()))
	}

	return models.DigestResponse{
		Summary:     summary,
		Cached:      false,
		SourcesUsed: sourcesUsed,
		QualityTag:  models.QualityFresh,
	}
}

func (o *Orchestrator) loadProfile(ctx context.Context, userID string) (models.TeamSet, []models.Interaction) {
	teams, err := o.profiles.FavoriteTeams(ctx, userID)
	if err != nil {
		slog.Warn("[Orchestrator] Failed to load favorite teams",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	history, err := o.profiles.InteractionHistory(ctx, userID, o.cfg.HistoryLimit)
	if err != nil {
		slog.Warn("[Orchestrator] Failed to load interaction history",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}
	return teams, history
}

// fetchAll fans out over every adapter with a per-adapter timeout and waits
// for all of them. Failing adapters are logged and contribute nothing.
func (o *Orchestrator) fetchAll(ctx context.Context, teams models.TeamSet) ([]models.ContentItem, []string) {
	var (
		mu      sync.Mutex
		items   []models.ContentItem
		sources []string
	)

	g := &errgroup.Group{}
	for _, adapter := range o.adapters {
		adapter := adapter
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, o.cfg.AdapterTimeout)
			defer cancel()

			fetched, err := adapter.Fetch(fetchCtx, teams)
			if err != nil {
				slog.Warn("[Orchestrator] Adapter fetch failed",
					slog.String("adapter", adapter.Name()),
					slog.String("error", err.Error()))
				return nil
			}
			if len(fetched) == 0 {
				return nil
			}

			mu.Lock()
			items = append(items, fetched...)
			sources = append(sources, adapter.Name())
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	slog.Info("[Orchestrator] Fetch complete",
		slog.Int("items", len(items)),
		slog.Int("sources", len(sources)))
	return items, sources
}

// syncVectors embeds and upserts any not-yet-seen items, then tops the
// ranked list up from the vector store when fetch came back thin. Both
// halves are best effort; the input survives any failure.
func (o *Orchestrator) syncVectors(ctx context.Context, ranked []models.ContentItem, teams models.TeamSet, topK int) []models.ContentItem {
	byHash := make(map[string]models.ContentItem, len(ranked))
	hashes := make([]string, 0, len(ranked))
	for _, item := range ranked {
		byHash[item.ContentHash] = item
		hashes = append(hashes, item.ContentHash)
	}

	unseen := o.cache.FilterUnseen(ctx, hashes)
	if len(unseen) > 0 {
		o.upsertEmbeddings(ctx, byHash, unseen)
	}

	if len(ranked) >= topK || o.store == nil {
		return ranked
	}

	// Thin fetch: retrieve previously ingested items similar to the user's
	// teams to fill out the digest.
	query, err := o.embedder.EmbedBatch(ctx, []string{strings.Join(teams, " ")})
	if err != nil || len(query) == 0 {
		if err != nil {
			slog.Warn("[Orchestrator] Failed to embed retrieval query",
				slog.String("error", err.Error()))
		}
		return ranked
	}

	cutoff := o.now().UTC().Add(-o.cfg.FreshnessWindow)
	records, err := o.store.Query(ctx, query[0], topK, cutoff)
	if err != nil {
		slog.Warn("[Orchestrator] Vector retrieval failed",
			slog.String("error", err.Error()))
		return ranked
	}

	for _, rec := range records {
		if _, ok := byHash[rec.ContentHash]; ok {
			continue
		}
		byHash[rec.ContentHash] = rec.Item
		ranked = append(ranked, rec.Item)
		if len(ranked) >= topK {
			break
		}
	}
	return ranked
}

func (o *Orchestrator) upsertEmbeddings(ctx context.Context, byHash map[string]models.ContentItem, unseen []string) {
	texts := make([]string, len(unseen))
	for i, hash := range unseen {
		item := byHash[hash]
		texts[i] = item.Title + " " + item.Summary
	}

	vectors, err := o.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vectors) != len(unseen) {
		if err != nil {
			slog.Warn("[Orchestrator] Failed to embed new items",
				slog.String("error", err.Error()))
		}
		return
	}

	now := o.now().UTC()
	records := make([]models.EmbeddingRecord, len(unseen))
	for i, hash := range unseen {
		item := byHash[hash]
		records[i] = models.EmbeddingRecord{
			ContentHash: hash,
			Embedding:   vectors[i],
			Item:        item,
			ExpiresAt:   now.Add(o.cfg.embedTTL(item.ContentType)),
		}
	}

	if err := o.store.Upsert(ctx, records); err != nil {
		slog.Warn("[Orchestrator] Failed to upsert embeddings",
			slog.String("error", err.Error()))
		return
	}
	if err := o.cache.MarkSeen(ctx, unseen); err != nil {
		slog.Warn("[Orchestrator] Failed to mark embedded hashes",
			slog.String("error", err.Error()))
	}
}

// budgetLimited serves the most recent digest regardless of TTL, falling
// back to a placeholder when the user has never had one generated.
func (o *Orchestrator) budgetLimited(ctx context.Context, userID string, teams models.TeamSet) models.DigestResponse {
	if stale, err := o.cache.GetStale(ctx, userID); err == nil {
		return models.DigestResponse{
			Summary:     stale.Content,
			Cached:      true,
			SourcesUsed: stale.SourceSnapshot,
			QualityTag:  models.QualityBudgetLimited,
		}
	}
	return models.DigestResponse{
		Summary:    digest.Placeholder(teams),
		QualityTag: models.QualityBudgetLimited,
	}
}

// degraded is the terminal escape for non-budget failures: stale-if-error,
// then placeholder.
func (o *Orchestrator) degraded(ctx context.Context, userID string, teams models.TeamSet) models.DigestResponse {
	if stale, err := o.cache.GetStale(ctx, userID); err == nil {
		return models.DigestResponse{
			Summary:     stale.Content,
			Cached:      true,
			SourcesUsed: stale.SourceSnapshot,
			QualityTag:  models.QualityDegraded,
		}
	}
	return models.DigestResponse{
		Summary:    digest.Placeholder(teams),
		QualityTag: models.QualityDegraded,
	}
}

func (o *Orchestrator) logPerf(ctx context.Context, req models.DigestRequest, resp models.DigestResponse, elapsed time.Duration) {
	if o.perf == nil {
		return
	}
	o.perf.Log(ctx, PerfEntry{
		Operation:      "digest_request",
		UserID:         req.UserID,
		ResponseTimeMS: elapsed.Milliseconds(),
		SourcesUsed:    resp.SourcesUsed,
		Success:        resp.QualityTag == models.QualityFresh || resp.QualityTag == models.QualityCached,
		QualityTag:     string(resp.QualityTag),
		Timestamp:      o.now().UTC(),
	})
}
