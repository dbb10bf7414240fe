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
	redditAdapterName     = "reddit"
	redditEngagementPrior = 0.5
	redditSubreddit       = "sports"
	redditMaxTeamQueries  = 3
)

type RedditAdapter struct {
	client *clients.RedditClient
	ledger budget.Ledger
}

func NewRedditAdapter(client *clients.RedditClient, ledger budget.Ledger) *RedditAdapter {
	return &RedditAdapter{client: client, ledger: ledger}
}

func (a *RedditAdapter) Name() string { return redditAdapterName }

func (a *RedditAdapter) Fetch(ctx context.Context, hints models.TeamSet) ([]models.ContentItem, error) {
	queries := teamQueries(hints)

	var items []models.ContentItem
	var lastErr error
	calls := 0

	for _, query := range queries {
		resp, err := a.client.SearchSubreddit(ctx, redditSubreddit, query)
		calls++
		if err != nil {
			slog.Warn("[RedditAdapter] Subreddit search failed",
				slog.String("query", query),
				slog.String("error", err.Error()))
			lastErr = err
			continue
		}

		for _, child := range resp.Data.Children {
			post := child.Data
			if post.Title == "" {
				continue
			}

			hash := ContentHash(post.Title, post.Selftext)
			items = append(items, models.ContentItem{
				ID:                  itemID(hash),
				Title:               post.Title,
				Summary:             summarize(post.Selftext),
				SourceURL:           "https://www.reddit.com" + post.Permalink,
				SourceName:          "r/" + post.Subreddit,
				SourceAdapter:       redditAdapterName,
				PublishedAt:         time.Unix(int64(post.CreatedUTC), 0).UTC(),
				ContentType:         models.ContentTypeDiscussion,
				EngagementPotential: redditEngagementPrior,
				Teams:               matchTeams(post.Title+" "+post.Selftext, hints),
				ContentHash:         hash,
			})
		}
	}

	recordCost(ctx, a.ledger, models.CostRecord{
		API:           redditAdapterName,
		OperationType: "provider_fetch",
		TokensOrUnits: calls,
		CostEstimate:  0,
	})

	if len(items) == 0 && lastErr != nil {
		return nil, fmt.Errorf("[RedditAdapter] all searches failed: %w", lastErr)
	}
	return items, nil
}

func teamQueries(hints models.TeamSet) []string {
	if len(hints) == 0 {
		return []string{"sports"}
	}
	n := len(hints)
	if n > redditMaxTeamQueries {
		n = redditMaxTeamQueries
	}
	return append([]string(nil), hints[:n]...)
}

// summarize truncates long self-text so summaries stay digest-sized.
func summarize(text string) string {
	const maxLen = 280
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
