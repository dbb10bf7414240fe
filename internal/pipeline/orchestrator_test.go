package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spacesedan/sportsdigest/internal/adapters"
	"github.com/spacesedan/sportsdigest/internal/budget"
	"github.com/spacesedan/sportsdigest/internal/cache"
	"github.com/spacesedan/sportsdigest/internal/models"
)

type fakeAdapter struct {
	name  string
	items []models.ContentItem
	err   error
}

func (a *fakeAdapter) Name() string { return a.name }
func (a *fakeAdapter) Fetch(_ context.Context, _ models.TeamSet) ([]models.ContentItem, error) {
	return a.items, a.err
}

type fakeBudget struct {
	status budget.Status
	err    error
}

func (b *fakeBudget) Check(_ context.Context) (budget.Status, error) { return b.status, b.err }

type passthroughDedup struct{}

func (passthroughDedup) Deduplicate(_ context.Context, items []models.ContentItem) ([]models.ContentItem, []models.DuplicateCluster) {
	return items, nil
}

type passthroughRanker struct{}

func (passthroughRanker) Rank(items []models.ContentItem, _ []models.Interaction) []models.ContentItem {
	return items
}

type fakeEmbedder struct {
	err error
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

type fakeStore struct {
	upserted []models.EmbeddingRecord
	results  []models.EmbeddingRecord
}

func (s *fakeStore) Upsert(_ context.Context, records []models.EmbeddingRecord) error {
	s.upserted = append(s.upserted, records...)
	return nil
}

func (s *fakeStore) Query(_ context.Context, _ []float32, topK int, _ time.Time) ([]models.EmbeddingRecord, error) {
	if len(s.results) > topK {
		return s.results[:topK], nil
	}
	return s.results, nil
}

type fakeCache struct {
	live  map[string]models.CachedDigest
	stale map[string]models.CachedDigest
	puts  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		live:  make(map[string]models.CachedDigest),
		stale: make(map[string]models.CachedDigest),
	}
}

func (c *fakeCache) Get(_ context.Context, userID string) (models.CachedDigest, error) {
	if d, ok := c.live[userID]; ok {
		return d, nil
	}
	return models.CachedDigest{}, cache.ErrMiss
}

func (c *fakeCache) GetStale(_ context.Context, userID string) (models.CachedDigest, error) {
	if d, ok := c.stale[userID]; ok {
		return d, nil
	}
	return models.CachedDigest{}, cache.ErrMiss
}

func (c *fakeCache) Put(_ context.Context, d models.CachedDigest) error {
	c.puts++
	c.live[d.UserID] = d
	c.stale[d.UserID] = d
	return nil
}

func (c *fakeCache) MarkSeen(_ context.Context, _ []string) error { return nil }

func (c *fakeCache) FilterUnseen(_ context.Context, hashes []string) []string { return hashes }

type fakeGenerator struct {
	summary string
	err     error
	calls   int
}

func (g *fakeGenerator) Generate(_ context.Context, _ string, _ []string, _ []models.ContentItem) (string, error) {
	g.calls++
	return g.summary, g.err
}

type fakeProfiles struct {
	teams   models.TeamSet
	history []models.Interaction
}

func (p *fakeProfiles) FavoriteTeams(_ context.Context, _ string) (models.TeamSet, error) {
	return p.teams, nil
}

func (p *fakeProfiles) InteractionHistory(_ context.Context, _ string, _ int) ([]models.Interaction, error) {
	return p.history, nil
}

func testConfig() Config {
	return Config{
		TopK:               7,
		DigestTTL:          time.Hour,
		FreshnessWindow:    14 * 24 * time.Hour,
		AdapterTimeout:     time.Second,
		EmbedTTLDiscussion: 24 * time.Hour,
		EmbedTTLNews:       72 * time.Hour,
		EmbedTTLHighlight:  168 * time.Hour,
	}
}

func fiveAdapters() []adapters.SourceAdapter {
	names := []string{"espn", "newsapi", "reddit", "youtube", "sportsdb"}
	out := make([]adapters.SourceAdapter, len(names))
	for i, name := range names {
		out[i] = &fakeAdapter{
			name: name,
			items: []models.ContentItem{{
				ID:                  name + "-1",
				Title:               "Cowboys news from " + name,
				Summary:             "details",
				SourceName:          name,
				SourceAdapter:       name,
				ContentType:         models.ContentTypeNews,
				ContentHash:         "hash-" + name,
				EngagementPotential: 0.5,
				PublishedAt:         time.Now().UTC(),
			}},
		}
	}
	return out
}

type orchestratorFixture struct {
	adapters  []adapters.SourceAdapter
	budget    *fakeBudget
	store     *fakeStore
	cache     *fakeCache
	generator *fakeGenerator
}

func newOrchestrator(f orchestratorFixture) *Orchestrator {
	return NewOrchestrator(
		testConfig(),
		f.adapters,
		f.budget,
		passthroughDedup{},
		passthroughRanker{},
		&fakeEmbedder{},
		f.store,
		f.cache,
		f.generator,
		&fakeProfiles{teams: models.TeamSet{"Cowboys"}},
		nil,
	)
}

func TestRunFreshPath(t *testing.T) {
	f := orchestratorFixture{
		adapters:  fiveAdapters(),
		budget:    &fakeBudget{status: budget.StatusOK},
		store:     &fakeStore{},
		cache:     newFakeCache(),
		generator: &fakeGenerator{summary: "Your Cowboys digest."},
	}
	o := newOrchestrator(f)

	resp := o.Run(context.Background(), models.DigestRequest{UserID: "user-1"})

	if resp.QualityTag != models.QualityFresh {
		t.Fatalf("got tag %s, want fresh", resp.QualityTag)
	}
	if resp.Summary == "" || resp.Cached {
		t.Errorf("got summary %q cached=%v, want non-empty and not cached", resp.Summary, resp.Cached)
	}
	if n := len(resp.SourcesUsed); n < 1 || n > 5 {
		t.Errorf("got %d sources used, want 1..5", n)
	}
	if f.cache.puts != 1 {
		t.Errorf("got %d cache writes, want 1", f.cache.puts)
	}
	if len(f.store.upserted) != 5 {
		t.Errorf("got %d upserted embeddings, want 5", len(f.store.upserted))
	}
}

func TestRunIdempotentCaching(t *testing.T) {
	f := orchestratorFixture{
		adapters:  fiveAdapters(),
		budget:    &fakeBudget{status: budget.StatusOK},
		store:     &fakeStore{},
		cache:     newFakeCache(),
		generator: &fakeGenerator{summary: "Your Cowboys digest."},
	}
	o := newOrchestrator(f)

	first := o.Run(context.Background(), models.DigestRequest{UserID: "user-1"})
	second := o.Run(context.Background(), models.DigestRequest{UserID: "user-1"})

	if second.Summary != first.Summary {
		t.Errorf("summaries differ: %q vs %q", first.Summary, second.Summary)
	}
	if !second.Cached || second.QualityTag != models.QualityCached {
		t.Errorf("got cached=%v tag=%s, want cached=true tag=cached", second.Cached, second.QualityTag)
	}
	if f.generator.calls != 1 {
		t.Errorf("got %d generation calls, want 1", f.generator.calls)
	}
}

func TestRunForceRefreshBypassesCache(t *testing.T) {
	f := orchestratorFixture{
		adapters:  fiveAdapters(),
		budget:    &fakeBudget{status: budget.StatusOK},
		store:     &fakeStore{},
		cache:     newFakeCache(),
		generator: &fakeGenerator{summary: "Regenerated digest."},
	}
	f.cache.live["user-1"] = models.CachedDigest{UserID: "user-1", Content: "old digest"}
	o := newOrchestrator(f)

	resp := o.Run(context.Background(), models.DigestRequest{UserID: "user-1", ForceRefresh: true})

	if resp.QualityTag != models.QualityFresh || resp.Summary != "Regenerated digest." {
		t.Errorf("got tag=%s summary=%q, want a fresh regeneration", resp.QualityTag, resp.Summary)
	}
}

func TestRunTotalAdapterFailure(t *testing.T) {
	var failing []adapters.SourceAdapter
	for _, name := range []string{"espn", "newsapi", "reddit", "youtube", "sportsdb"} {
		failing = append(failing, &fakeAdapter{name: name, err: fmt.Errorf("%s unavailable", name)})
	}

	f := orchestratorFixture{
		adapters:  failing,
		budget:    &fakeBudget{status: budget.StatusOK},
		store:     &fakeStore{}, // empty vector store
		cache:     newFakeCache(),
		generator: &fakeGenerator{summary: "should not be called"},
	}
	o := newOrchestrator(f)

	resp := o.Run(context.Background(), models.DigestRequest{UserID: "user-1"})

	if resp.QualityTag != models.QualityDegraded {
		t.Fatalf("got tag %s, want degraded", resp.QualityTag)
	}
	if resp.Summary == "" {
		t.Error("degraded response has empty placeholder summary")
	}
	if f.generator.calls != 0 {
		t.Errorf("generator called %d times on the degraded path", f.generator.calls)
	}
}

func TestRunAdapterFailureFallsBackToRetrieval(t *testing.T) {
	var failing []adapters.SourceAdapter
	for _, name := range []string{"espn", "newsapi"} {
		failing = append(failing, &fakeAdapter{name: name, err: fmt.Errorf("down")})
	}

	stored := models.EmbeddingRecord{
		ContentHash: "stored-hash",
		Item: models.ContentItem{
			ID:          "stored-1",
			Title:       "Cowboys win streak continues",
			ContentHash: "stored-hash",
			PublishedAt: time.Now().UTC(),
		},
	}
	f := orchestratorFixture{
		adapters:  failing,
		budget:    &fakeBudget{status: budget.StatusOK},
		store:     &fakeStore{results: []models.EmbeddingRecord{stored}},
		cache:     newFakeCache(),
		generator: &fakeGenerator{summary: "Digest from retrieved items."},
	}
	o := newOrchestrator(f)

	resp := o.Run(context.Background(), models.DigestRequest{UserID: "user-1"})

	if resp.QualityTag != models.QualityFresh {
		t.Fatalf("got tag %s, want fresh from retrieved items", resp.QualityTag)
	}
	if resp.Summary != "Digest from retrieved items." {
		t.Errorf("got summary %q", resp.Summary)
	}
}

func TestRunHardBudgetLimitServesStale(t *testing.T) {
	f := orchestratorFixture{
		adapters:  fiveAdapters(),
		budget:    &fakeBudget{status: budget.StatusHardLimit},
		store:     &fakeStore{},
		cache:     newFakeCache(),
		generator: &fakeGenerator{summary: "should not be called"},
	}
	// A digest generated two hours ago: live TTL lapsed, stale copy remains.
	f.cache.stale["user-1"] = models.CachedDigest{
		UserID:         "user-1",
		Content:        "Two hour old digest",
		SourceSnapshot: []string{"espn"},
		CreatedAt:      time.Now().Add(-2 * time.Hour),
		ExpiresAt:      time.Now().Add(-time.Hour),
	}
	o := newOrchestrator(f)

	resp := o.Run(context.Background(), models.DigestRequest{UserID: "user-1"})

	if resp.QualityTag != models.QualityBudgetLimited {
		t.Fatalf("got tag %s, want budget-limited", resp.QualityTag)
	}
	if resp.Summary != "Two hour old digest" || !resp.Cached {
		t.Errorf("got summary %q cached=%v, want the stale digest", resp.Summary, resp.Cached)
	}
	if f.generator.calls != 0 {
		t.Errorf("generator called %d times under hard limit", f.generator.calls)
	}
}

func TestRunHardBudgetLimitWithoutStale(t *testing.T) {
	f := orchestratorFixture{
		adapters:  fiveAdapters(),
		budget:    &fakeBudget{status: budget.StatusHardLimit},
		store:     &fakeStore{},
		cache:     newFakeCache(),
		generator: &fakeGenerator{summary: "should not be called"},
	}
	o := newOrchestrator(f)

	resp := o.Run(context.Background(), models.DigestRequest{UserID: "user-1"})

	if resp.QualityTag != models.QualityBudgetLimited || resp.Summary == "" {
		t.Errorf("got tag=%s summary=%q, want budget-limited placeholder", resp.QualityTag, resp.Summary)
	}
}

func TestRunSoftBudgetLimitSkipsGeneration(t *testing.T) {
	f := orchestratorFixture{
		adapters:  fiveAdapters(),
		budget:    &fakeBudget{status: budget.StatusSoftLimit},
		store:     &fakeStore{},
		cache:     newFakeCache(),
		generator: &fakeGenerator{summary: "should not be called"},
	}
	f.cache.stale["user-1"] = models.CachedDigest{UserID: "user-1", Content: "Yesterday's digest"}
	o := newOrchestrator(f)

	resp := o.Run(context.Background(), models.DigestRequest{UserID: "user-1"})

	if resp.QualityTag != models.QualityBudgetLimited || resp.Summary != "Yesterday's digest" {
		t.Errorf("got tag=%s summary=%q, want stale budget-limited digest", resp.QualityTag, resp.Summary)
	}
	if f.generator.calls != 0 {
		t.Errorf("generator called %d times under soft limit", f.generator.calls)
	}
	if len(f.store.upserted) != 0 {
		t.Errorf("embeddings upserted under soft limit: %d", len(f.store.upserted))
	}
}

func TestRunGenerationFailureServesStale(t *testing.T) {
	f := orchestratorFixture{
		adapters:  fiveAdapters(),
		budget:    &fakeBudget{status: budget.StatusOK},
		store:     &fakeStore{},
		cache:     newFakeCache(),
		generator: &fakeGenerator{err: fmt.Errorf("model unavailable")},
	}
	f.cache.stale["user-1"] = models.CachedDigest{UserID: "user-1", Content: "Last good digest"}
	o := newOrchestrator(f)

	resp := o.Run(context.Background(), models.DigestRequest{UserID: "user-1"})

	if resp.QualityTag != models.QualityDegraded || resp.Summary != "Last good digest" || !resp.Cached {
		t.Errorf("got tag=%s summary=%q cached=%v, want stale degraded digest",
			resp.QualityTag, resp.Summary, resp.Cached)
	}
}

func TestRunBudgetCheckErrorDegradesToSoftLimit(t *testing.T) {
	f := orchestratorFixture{
		adapters:  fiveAdapters(),
		budget:    &fakeBudget{err: fmt.Errorf("ledger unreachable")},
		store:     &fakeStore{},
		cache:     newFakeCache(),
		generator: &fakeGenerator{summary: "should not be called"},
	}
	o := newOrchestrator(f)

	resp := o.Run(context.Background(), models.DigestRequest{UserID: "user-1"})

	if resp.QualityTag != models.QualityBudgetLimited {
		t.Errorf("got tag %s, want budget-limited when spend is unknown", resp.QualityTag)
	}
	if f.generator.calls != 0 {
		t.Errorf("generator called %d times with unknown spend", f.generator.calls)
	}
}

func TestRunMaxArticlesCapsDigestSize(t *testing.T) {
	var captured []models.ContentItem
	gen := &capturingGenerator{summary: "capped digest", captured: &captured}

	f := orchestratorFixture{
		adapters: fiveAdapters(),
		budget:   &fakeBudget{status: budget.StatusOK},
		store:    &fakeStore{},
		cache:    newFakeCache(),
	}
	o := NewOrchestrator(
		testConfig(),
		f.adapters,
		f.budget,
		passthroughDedup{},
		passthroughRanker{},
		&fakeEmbedder{},
		f.store,
		f.cache,
		gen,
		&fakeProfiles{teams: models.TeamSet{"Cowboys"}},
		nil,
	)

	resp := o.Run(context.Background(), models.DigestRequest{UserID: "user-1", MaxArticles: 2})

	if resp.QualityTag != models.QualityFresh {
		t.Fatalf("got tag %s, want fresh", resp.QualityTag)
	}
	if len(captured) != 2 {
		t.Errorf("generator received %d items, want 2", len(captured))
	}
}

type capturingGenerator struct {
	summary  string
	captured *[]models.ContentItem
}

func (g *capturingGenerator) Generate(_ context.Context, _ string, _ []string, items []models.ContentItem) (string, error) {
	*g.captured = append((*g.captured)[:0], items...)
	return g.summary, nil
}
