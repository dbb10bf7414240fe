package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spacesedan/sportsdigest/internal/budget"
	"github.com/spacesedan/sportsdigest/internal/clients"
	"github.com/spacesedan/sportsdigest/internal/models"
)

const (
	newsAPIAdapterName     = "newsapi"
	newsAPIEngagementPrior = 0.55
	newsAPICostPerRequest  = 0.001
	newsAPILookback        = 7 * 24 * time.Hour
)

type NewsAPIAdapter struct {
	client *clients.NewsAPIClient
	ledger budget.Ledger
}

func NewNewsAPIAdapter(client *clients.NewsAPIClient, ledger budget.Ledger) *NewsAPIAdapter {
	return &NewsAPIAdapter{client: client, ledger: ledger}
}

func (a *NewsAPIAdapter) Name() string { return newsAPIAdapterName }

func (a *NewsAPIAdapter) Fetch(ctx context.Context, hints models.TeamSet) ([]models.ContentItem, error) {
	query := buildNewsQuery(hints)
	from := time.Now().UTC().Add(-newsAPILookback)

	resp, err := a.client.Everything(ctx, query, from)
	if err != nil {
		return nil, fmt.Errorf("[NewsAPIAdapter] fetch failed: %w", err)
	}

	recordCost(ctx, a.ledger, models.CostRecord{
		API:           newsAPIAdapterName,
		OperationType: "provider_fetch",
		TokensOrUnits: 1,
		CostEstimate:  newsAPICostPerRequest,
	})

	items := make([]models.ContentItem, 0, len(resp.Articles))
	for _, article := range resp.Articles {
		if article.Title == "" {
			continue
		}

		publishedAt, err := time.Parse(time.RFC3339, article.PublishedAt)
		if err != nil {
			publishedAt = time.Now().UTC()
		}

		hash := ContentHash(article.Title, article.Description)
		items = append(items, models.ContentItem{
			ID:                  itemID(hash),
			Title:               article.Title,
			Summary:             article.Description,
			SourceURL:           article.URL,
			SourceName:          article.Source.Name,
			SourceAdapter:       newsAPIAdapterName,
			PublishedAt:         publishedAt,
			ContentType:         models.ContentTypeNews,
			EngagementPotential: newsAPIEngagementPrior,
			Teams:               matchTeams(article.Title+" "+article.Description, hints),
			ContentHash:         hash,
		})
	}
	return items, nil
}

func buildNewsQuery(hints models.TeamSet) string {
	if len(hints) == 0 {
		return "sports"
	}
	quoted := make([]string, len(hints))
	for i, team := range hints {
		quoted[i] = `"` + team + `"`
	}
	return strings.Join(quoted, " OR ")
}
