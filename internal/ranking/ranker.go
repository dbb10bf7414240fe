package ranking

import (
	"sort"
	"strings"
	"time"

	"github.com/spacesedan/sportsdigest/internal/models"
)

// breakingKeywords mark titles that should surface even when engagement
// priors are modest. Matched case-insensitively as substrings.
var breakingKeywords = []string{"breaking", "trade", "signs", "injury"}

const historyCap = 10

// Ranker orders deduplicated items for a user. Scoring is pure arithmetic
// over the item and the interaction history; given identical inputs the
// output order is identical.
type Ranker struct {
	preferenceBoost float64
	breakingBoost   float64
	freshnessWindow time.Duration
	now             func() time.Time
}

func NewRanker(preferenceBoost, breakingBoost float64, freshnessWindow time.Duration) *Ranker {
	return &Ranker{
		preferenceBoost: preferenceBoost,
		breakingBoost:   breakingBoost,
		freshnessWindow: freshnessWindow,
		now:             time.Now,
	}
}

// SetClock overrides the ranker's time source. Test hook.
func (r *Ranker) SetClock(now func() time.Time) { r.now = now }

type scored struct {
	item  models.ContentItem
	score float64
}

// Rank drops items older than the freshness window and returns the rest
// sorted by descending score. Ties break on publishedAt descending, then
// content hash ascending so equal inputs always produce equal output.
func (r *Ranker) Rank(items []models.ContentItem, history []models.Interaction) []models.ContentItem {
	now := r.now().UTC()
	cutoff := now.Add(-r.freshnessWindow)

	typeCounts := make(map[models.ContentType]int)
	for _, h := range history {
		typeCounts[h.ContentType]++
	}

	ranked := make([]scored, 0, len(items))
	for _, item := range items {
		if item.PublishedAt.Before(cutoff) {
			continue
		}
		ranked = append(ranked, scored{
			item:  item,
			score: r.score(item, typeCounts, now),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if !ranked[i].item.PublishedAt.Equal(ranked[j].item.PublishedAt) {
			return ranked[i].item.PublishedAt.After(ranked[j].item.PublishedAt)
		}
		return ranked[i].item.ContentHash < ranked[j].item.ContentHash
	})

	out := make([]models.ContentItem, len(ranked))
	for i, s := range ranked {
		out[i] = s.item
	}
	return out
}

func (r *Ranker) score(item models.ContentItem, typeCounts map[models.ContentType]int, now time.Time) float64 {
	score := item.EngagementPotential

	matches := typeCounts[item.ContentType]
	if matches > historyCap {
		matches = historyCap
	}
	score += r.preferenceBoost * float64(matches) / historyCap

	score += freshnessBoost(now.Sub(item.PublishedAt))

	if hasBreakingKeyword(item.Title) {
		score += r.breakingBoost
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

func freshnessBoost(age time.Duration) float64 {
	switch {
	case age < time.Hour:
		return 0.4
	case age < 6*time.Hour:
		return 0.3
	case age < 24*time.Hour:
		return 0.2
	case age < 72*time.Hour:
		return 0.15
	case age < 168*time.Hour:
		return 0.1
	default:
		return 0
	}
}

func hasBreakingKeyword(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range breakingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
