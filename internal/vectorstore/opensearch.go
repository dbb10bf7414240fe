package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github.com/spacesedan/sportsdigest/internal/models"
)

const embeddingIndex = "content_embeddings"

type osDoer interface {
	Do(ctx context.Context, req opensearch.Request, dataPointer interface{}) (*opensearch.Response, error)
}

// OSStore keeps embeddings in an OpenSearch k-NN index. The index must be
// created with knn enabled and an embedding field of type knn_vector.
type OSStore struct {
	client osDoer
	index  string
}

func NewOSStore(client osDoer) *OSStore {
	return &OSStore{client: client, index: embeddingIndex}
}

type osDocument struct {
	Embedding   []float32          `json:"embedding"`
	Item        models.ContentItem `json:"item"`
	PublishedAt time.Time          `json:"published_at"`
	ExpiresAt   time.Time          `json:"expires_at"`
}

func (s *OSStore) Upsert(ctx context.Context, records []models.EmbeddingRecord) error {
	for _, r := range records {
		payload, err := json.Marshal(osDocument{
			Embedding:   r.Embedding,
			Item:        r.Item,
			PublishedAt: r.Item.PublishedAt,
			ExpiresAt:   r.ExpiresAt,
		})
		if err != nil {
			return fmt.Errorf("marshaling document %s: %w", r.ContentHash, err)
		}

		req := opensearchapi.IndexReq{
			Index:      s.index,
			DocumentID: r.ContentHash,
			Body:       bytes.NewReader(payload),
		}

		res, err := s.client.Do(ctx, req, nil)
		if err != nil {
			return fmt.Errorf("indexing document %s: %w", r.ContentHash, err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("indexing document %s: %s", r.ContentHash, res.Status())
		}
	}
	return nil
}

type osSearchResult struct {
	Hits struct {
		Hits []struct {
			ID     string     `json:"_id"`
			Source osDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Query runs a k-NN search filtered to unexpired documents newer than the
// cutoff. A backend failure yields an empty result so retrieval stays a
// best-effort stage.
func (s *OSStore) Query(ctx context.Context, vector []float32, topK int, dateCutoff time.Time) ([]models.EmbeddingRecord, error) {
	body := map[string]any{
		"size": topK,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{
						"knn": map[string]any{
							"embedding": map[string]any{
								"vector": vector,
								"k":      topK,
							},
						},
					},
				},
				"filter": []any{
					map[string]any{"range": map[string]any{"published_at": map[string]any{"gte": dateCutoff.Format(time.RFC3339)}}},
					map[string]any{"range": map[string]any{"expires_at": map[string]any{"gt": "now"}}},
				},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling knn query: %w", err)
	}

	req := opensearchapi.SearchReq{
		Indices: []string{s.index},
		Body:    bytes.NewReader(payload),
	}

	var result osSearchResult
	res, err := s.client.Do(ctx, req, &result)
	if err != nil {
		slog.Warn("[OSVectorStore] Similarity search failed, returning no matches",
			slog.String("error", err.Error()))
		return nil, nil
	}
	defer res.Body.Close()
	if res.IsError() {
		slog.Warn("[OSVectorStore] Similarity search returned error status",
			slog.String("status", res.Status()))
		return nil, nil
	}

	records := make([]models.EmbeddingRecord, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		records = append(records, models.EmbeddingRecord{
			ContentHash: hit.ID,
			Embedding:   hit.Source.Embedding,
			Item:        hit.Source.Item,
			ExpiresAt:   hit.Source.ExpiresAt,
		})
	}
	return records, nil
}
