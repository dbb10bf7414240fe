package models

import "time"

// EmbeddingRecord is the persisted, vector-searchable projection of a
// ContentItem. Written once per unique content hash; overwritten on hash
// collision (idempotent upsert). Faster-moving source types expire sooner.
type EmbeddingRecord struct {
	ContentHash string      `json:"content_hash"`
	Embedding   []float32   `json:"embedding"`
	Item        ContentItem `json:"metadata"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

func (r EmbeddingRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
