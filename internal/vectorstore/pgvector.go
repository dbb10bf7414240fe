package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spacesedan/sportsdigest/internal/models"
)

// PgStore keeps embeddings in Postgres with the pgvector extension.
//
// Schema:
//
//	CREATE TABLE content_embeddings (
//	    content_hash TEXT PRIMARY KEY,
//	    embedding    vector NOT NULL,
//	    item         JSONB NOT NULL,
//	    published_at TIMESTAMPTZ NOT NULL,
//	    expires_at   TIMESTAMPTZ NOT NULL
//	);
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const pgUpsertSQL = `
	INSERT INTO content_embeddings (content_hash, embedding, item, published_at, expires_at)
	VALUES ($1, $2::vector, $3, $4, $5)
	ON CONFLICT (content_hash)
	DO UPDATE SET embedding = EXCLUDED.embedding,
	              item = EXCLUDED.item,
	              published_at = EXCLUDED.published_at,
	              expires_at = EXCLUDED.expires_at`

func (s *PgStore) Upsert(ctx context.Context, records []models.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		item, err := json.Marshal(r.Item)
		if err != nil {
			return fmt.Errorf("marshaling item %s: %w", r.ContentHash, err)
		}
		batch.Queue(pgUpsertSQL, r.ContentHash, formatVector(r.Embedding), item, r.Item.PublishedAt, r.ExpiresAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting embeddings: %w", err)
		}
	}
	return nil
}

const pgFilteredQuerySQL = `
	SELECT content_hash, item, expires_at
	FROM content_embeddings
	WHERE published_at >= $2 AND expires_at > now()
	ORDER BY embedding <=> $1::vector
	LIMIT $3`

const pgUnfilteredQuerySQL = `
	SELECT content_hash, item, expires_at
	FROM content_embeddings
	WHERE expires_at > now()
	ORDER BY embedding <=> $1::vector
	LIMIT $2`

// Query runs a date-filtered similarity search. If the filtered query fails
// or finds nothing it retries unfiltered and applies the date cutoff in
// process; a dead backend yields an empty result, never an error.
func (s *PgStore) Query(ctx context.Context, vector []float32, topK int, dateCutoff time.Time) ([]models.EmbeddingRecord, error) {
	literal := formatVector(vector)

	records, err := s.query(ctx, pgFilteredQuerySQL, literal, dateCutoff, topK)
	if err == nil && len(records) > 0 {
		return records, nil
	}
	if err != nil {
		slog.Warn("[PgVectorStore] Filtered similarity query failed, retrying unfiltered",
			slog.String("error", err.Error()))
	}

	// Over-fetch so the in-process date filter still has topK candidates.
	records, err = s.query(ctx, pgUnfilteredQuerySQL, literal, topK*3)
	if err != nil {
		slog.Warn("[PgVectorStore] Unfiltered similarity query failed, returning no matches",
			slog.String("error", err.Error()))
		return nil, nil
	}

	records = filterByDate(records, dateCutoff)
	if len(records) > topK {
		records = records[:topK]
	}
	return records, nil
}

func (s *PgStore) query(ctx context.Context, sql string, args ...any) ([]models.EmbeddingRecord, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.EmbeddingRecord
	for rows.Next() {
		var (
			rec  models.EmbeddingRecord
			item []byte
		)
		if err := rows.Scan(&rec.ContentHash, &item, &rec.ExpiresAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(item, &rec.Item); err != nil {
			return nil, fmt.Errorf("unmarshaling item %s: %w", rec.ContentHash, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
