package vectorstore

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/spacesedan/sportsdigest/internal/models"
)

// Store persists content embeddings and answers similarity queries. Which
// backend serves a deployment is a wiring decision in cmd/digestd; the
// pipeline only sees this interface.
type Store interface {
	Upsert(ctx context.Context, records []models.EmbeddingRecord) error
	Query(ctx context.Context, vector []float32, topK int, dateCutoff time.Time) ([]models.EmbeddingRecord, error)
}

// formatVector renders a pgvector/OpenSearch-compatible literal: [0.1,0.2,...].
func formatVector(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// filterByDate keeps records published at or after the cutoff, in place of a
// backend-side date filter.
func filterByDate(records []models.EmbeddingRecord, cutoff time.Time) []models.EmbeddingRecord {
	if cutoff.IsZero() {
		return records
	}
	out := records[:0:0]
	for _, r := range records {
		if !r.Item.PublishedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}
