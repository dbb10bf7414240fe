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
	youtubeAdapterName     = "youtube"
	youtubeEngagementPrior = 0.7
	// Each search call burns 100 quota units; the estimate prices a unit so
	// highlight fetches count against the daily budget.
	youtubeQuotaPerSearch  = 100
	youtubeCostPerSearch   = 0.002
	youtubeMaxTeamSearches = 2
)

type YouTubeAdapter struct {
	client *clients.YouTubeClient
	ledger budget.Ledger
}

func NewYouTubeAdapter(client *clients.YouTubeClient, ledger budget.Ledger) *YouTubeAdapter {
	return &YouTubeAdapter{client: client, ledger: ledger}
}

func (a *YouTubeAdapter) Name() string { return youtubeAdapterName }

func (a *YouTubeAdapter) Fetch(ctx context.Context, hints models.TeamSet) ([]models.ContentItem, error) {
	queries := highlightQueries(hints)

	var items []models.ContentItem
	var lastErr error

	for _, query := range queries {
		resp, err := a.client.Search(ctx, query)
		if err != nil {
			slog.Warn("[YouTubeAdapter] Search failed",
				slog.String("query", query),
				slog.String("error", err.Error()))
			lastErr = err
			continue
		}

		recordCost(ctx, a.ledger, models.CostRecord{
			API:           youtubeAdapterName,
			OperationType: "provider_fetch",
			TokensOrUnits: youtubeQuotaPerSearch,
			CostEstimate:  youtubeCostPerSearch,
		})

		for _, video := range resp.Items {
			if video.ID.VideoID == "" || video.Snippet.Title == "" {
				continue
			}

			publishedAt, err := time.Parse(time.RFC3339, video.Snippet.PublishedAt)
			if err != nil {
				publishedAt = time.Now().UTC()
			}

			hash := ContentHash(video.Snippet.Title, video.Snippet.Description)
			items = append(items, models.ContentItem{
				ID:                  itemID(hash),
				Title:               video.Snippet.Title,
				Summary:             video.Snippet.Description,
				SourceURL:           "https://www.youtube.com/watch?v=" + video.ID.VideoID,
				SourceName:          video.Snippet.ChannelTitle,
				SourceAdapter:       youtubeAdapterName,
				PublishedAt:         publishedAt,
				ContentType:         models.ContentTypeHighlight,
				EngagementPotential: youtubeEngagementPrior,
				Teams:               matchTeams(video.Snippet.Title+" "+video.Snippet.Description, hints),
				ContentHash:         hash,
			})
		}
	}

	if len(items) == 0 && lastErr != nil {
		return nil, fmt.Errorf("[YouTubeAdapter] all searches failed: %w", lastErr)
	}
	return items, nil
}

func highlightQueries(hints models.TeamSet) []string {
	if len(hints) == 0 {
		return []string{"sports highlights"}
	}
	n := len(hints)
	if n > youtubeMaxTeamSearches {
		n = youtubeMaxTeamSearches
	}
	queries := make([]string, 0, n)
	for _, team := range hints[:n] {
		queries = append(queries, team+" highlights")
	}
	return queries
}
