package models

import "time"

type QualityTag string

const (
	QualityFresh         QualityTag = "fresh"
	QualityCached        QualityTag = "cached"
	QualityBudgetLimited QualityTag = "budget-limited"
	QualityDegraded      QualityTag = "degraded"
)

type DigestRequest struct {
	UserID       string `json:"userId"`
	MaxArticles  int    `json:"maxArticles,omitempty"`
	ForceRefresh bool   `json:"forceRefresh,omitempty"`
}

type DigestResponse struct {
	Summary     string     `json:"summary"`
	Cached      bool       `json:"cached"`
	SourcesUsed []string   `json:"sourcesUsed"`
	QualityTag  QualityTag `json:"qualityTag"`
}

// CachedDigest is the persisted output of a successful generation. One live
// row per user; a non-expiring stale copy backs the stale-if-error path.
type CachedDigest struct {
	UserID         string    `json:"user_id"`
	Content        string    `json:"content"`
	SourceSnapshot []string  `json:"source_snapshot"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func (d CachedDigest) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}
