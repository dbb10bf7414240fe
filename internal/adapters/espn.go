package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/sportsdigest/internal/budget"
	"github.com/spacesedan/sportsdigest/internal/clients"
	"github.com/spacesedan/sportsdigest/internal/models"
)

const (
	espnAdapterName     = "espn"
	espnEngagementPrior = 0.6
)

// espnLeagues are the public news feeds the adapter scans. League feeds are
// not team-scoped, so items are filtered against the affinity hints.
var espnLeagues = []struct {
	Sport  string
	League string
}{
	{"football", "nfl"},
	{"basketball", "nba"},
	{"baseball", "mlb"},
}

type ESPNAdapter struct {
	client *clients.ESPNClient
	ledger budget.Ledger
}

func NewESPNAdapter(client *clients.ESPNClient, ledger budget.Ledger) *ESPNAdapter {
	return &ESPNAdapter{client: client, ledger: ledger}
}

func (a *ESPNAdapter) Name() string { return espnAdapterName }

func (a *ESPNAdapter) Fetch(ctx context.Context, hints models.TeamSet) ([]models.ContentItem, error) {
	var items []models.ContentItem
	var lastErr error
	calls := 0

	for _, lg := range espnLeagues {
		resp, err := a.client.News(ctx, lg.Sport, lg.League)
		calls++
		if err != nil {
			slog.Warn("[ESPNAdapter] League feed failed",
				slog.String("league", lg.League),
				slog.String("error", err.Error()))
			lastErr = err
			continue
		}

		for _, article := range resp.Articles {
			item, ok := a.normalize(article, hints)
			if !ok {
				continue
			}
			items = append(items, item)
		}
	}

	recordCost(ctx, a.ledger, models.CostRecord{
		API:           espnAdapterName,
		OperationType: "provider_fetch",
		TokensOrUnits: calls,
		CostEstimate:  0,
	})

	if len(items) == 0 && lastErr != nil {
		return nil, fmt.Errorf("[ESPNAdapter] all league feeds failed: %w", lastErr)
	}
	return items, nil
}

func (a *ESPNAdapter) normalize(article models.ESPNArticle, hints models.TeamSet) (models.ContentItem, bool) {
	if article.Headline == "" {
		return models.ContentItem{}, false
	}

	teams := matchTeams(article.Headline+" "+article.Description, hints)
	if len(hints) > 0 && len(teams) == 0 {
		return models.ContentItem{}, false
	}

	publishedAt, err := time.Parse(time.RFC3339, article.Published)
	if err != nil {
		publishedAt = time.Now().UTC()
	}

	hash := ContentHash(article.Headline, article.Description)
	return models.ContentItem{
		ID:                  itemID(hash),
		Title:               article.Headline,
		Summary:             article.Description,
		SourceURL:           article.Links.Web.Href,
		SourceName:          "ESPN",
		SourceAdapter:       espnAdapterName,
		PublishedAt:         publishedAt,
		ContentType:         models.ContentTypeNews,
		EngagementPotential: espnEngagementPrior,
		Teams:               teams,
		ContentHash:         hash,
	}, true
}
