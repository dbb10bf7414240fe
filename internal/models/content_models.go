package models

import "time"

type ContentType string

const (
	ContentTypeNews       ContentType = "news"
	ContentTypeHighlight  ContentType = "highlight"
	ContentTypeDiscussion ContentType = "discussion"
	ContentTypeStat       ContentType = "stat"
)

// TeamSet holds the team names a user follows. Matching is case-insensitive
// substring matching against item text; membership is by exact name.
type TeamSet []string

func (ts TeamSet) Contains(team string) bool {
	for _, t := range ts {
		if t == team {
			return true
		}
	}
	return false
}

// ContentItem is the normalized unit of retrievable content. Every adapter
// returns this shape; nothing loosely typed crosses the adapter boundary.
type ContentItem struct {
	ID                  string      `json:"id"`
	Title               string      `json:"title"`
	Summary             string      `json:"summary"`
	SourceURL           string      `json:"source_url"`
	SourceName          string      `json:"source_name"`
	SourceAdapter       string      `json:"source_adapter"`
	PublishedAt         time.Time   `json:"published_at"`
	ContentType         ContentType `json:"content_type"`
	EngagementPotential float64     `json:"engagement_potential"`
	Teams               []string    `json:"teams"`
	// ContentHash is sha256 over the normalized title+summary. It is the
	// dedup join key and the idempotency key for embedding upserts.
	ContentHash string `json:"content_hash"`
}

// DuplicateCluster groups items judged to describe the same story. Primary is
// the member with the highest engagement potential; the rest are retained for
// audit only.
type DuplicateCluster struct {
	Primary         ContentItem   `json:"primary"`
	Duplicates      []ContentItem `json:"duplicates"`
	SimilarityScore float64       `json:"similarity_score"`
}

// Interaction is one entry of a user's recent interaction history,
// most-recent-first, owned by the profile store.
type Interaction struct {
	ContentType ContentType `json:"content_type"`
	Action      string      `json:"action"`
}
