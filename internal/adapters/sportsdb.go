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
	sportsDBAdapterName     = "sportsdb"
	sportsDBEngagementPrior = 0.45
)

type SportsDBAdapter struct {
	client *clients.SportsDBClient
	ledger budget.Ledger
}

func NewSportsDBAdapter(client *clients.SportsDBClient, ledger budget.Ledger) *SportsDBAdapter {
	return &SportsDBAdapter{client: client, ledger: ledger}
}

func (a *SportsDBAdapter) Name() string { return sportsDBAdapterName }

func (a *SportsDBAdapter) Fetch(ctx context.Context, hints models.TeamSet) ([]models.ContentItem, error) {
	if len(hints) == 0 {
		return nil, nil
	}

	var items []models.ContentItem
	var lastErr error
	calls := 0

	for _, team := range hints {
		teamsResp, err := a.client.SearchTeam(ctx, team)
		calls++
		if err != nil {
			slog.Warn("[SportsDBAdapter] Team lookup failed",
				slog.String("team", team),
				slog.String("error", err.Error()))
			lastErr = err
			continue
		}
		if len(teamsResp.Teams) == 0 {
			continue
		}

		eventsResp, err := a.client.LastEvents(ctx, teamsResp.Teams[0].IDTeam)
		calls++
		if err != nil {
			slog.Warn("[SportsDBAdapter] Event lookup failed",
				slog.String("team", team),
				slog.String("error", err.Error()))
			lastErr = err
			continue
		}

		for _, event := range eventsResp.Results {
			item, ok := normalizeEvent(event, team)
			if !ok {
				continue
			}
			items = append(items, item)
		}
	}

	recordCost(ctx, a.ledger, models.CostRecord{
		API:           sportsDBAdapterName,
		OperationType: "provider_fetch",
		TokensOrUnits: calls,
		CostEstimate:  0,
	})

	if len(items) == 0 && lastErr != nil {
		return nil, fmt.Errorf("[SportsDBAdapter] all lookups failed: %w", lastErr)
	}
	return items, nil
}

func normalizeEvent(event models.SportsDBEvent, team string) (models.ContentItem, bool) {
	if event.Event == "" {
		return models.ContentItem{}, false
	}

	title := event.Event
	summary := fmt.Sprintf("Final: %s %s - %s %s (%s)",
		event.HomeTeam, event.HomeScore, event.AwayScore, event.AwayTeam, event.League)

	publishedAt, err := time.Parse(time.RFC3339, event.Timestamp)
	if err != nil {
		if publishedAt, err = time.Parse("2006-01-02", event.DateEvent); err != nil {
			publishedAt = time.Now().UTC()
		}
	}

	hash := ContentHash(title, summary)
	return models.ContentItem{
		ID:                  itemID(hash),
		Title:               title,
		Summary:             summary,
		SourceURL:           "https://www.thesportsdb.com/event/" + event.IDEvent,
		SourceName:          "TheSportsDB",
		SourceAdapter:       sportsDBAdapterName,
		PublishedAt:         publishedAt,
		ContentType:         models.ContentTypeStat,
		EngagementPotential: sportsDBEngagementPrior,
		Teams:               []string{team},
		ContentHash:         hash,
	}, true
}
