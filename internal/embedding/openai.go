package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/spacesedan/sportsdigest/internal/budget"
	"github.com/spacesedan/sportsdigest/internal/models"
	"github.com/spacesedan/sportsdigest/internal/utils"
)

const (
	embeddingCostPer1KTokens = 0.00002
	embeddingBatchSize       = 64
	embeddingConcurrency     = 4
)

type embeddingClient interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

type OpenAIEmbedder struct {
	client embeddingClient
	model  string
	ledger budget.Ledger
}

func NewOpenAIEmbedder(client embeddingClient, model string, ledger budget.Ledger) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client, model: model, ledger: ledger}
}

// EmbedBatch embeds texts in provider-sized batches with bounded
// concurrency, preserving input order. Returns nil for empty input.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	batches := utils.Chunk(texts, embeddingBatchSize)

	var mu sync.Mutex
	totalTokens := 0

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(embeddingConcurrency)

	offset := 0
	for _, batch := range batches {
		batch, start := batch, offset
		offset += len(batch)

		g.Go(func() error {
			resp, err := e.client.CreateEmbeddings(gCtx, openai.EmbeddingRequest{
				Input: batch,
				Model: openai.EmbeddingModel(e.model),
			})
			if err != nil {
				return fmt.Errorf("embedding batch at %d: %w", start, err)
			}
			if len(resp.Data) != len(batch) {
				return fmt.Errorf("embedding batch at %d: got %d vectors for %d texts",
					start, len(resp.Data), len(batch))
			}
			for i, d := range resp.Data {
				results[start+i] = d.Embedding
			}
			mu.Lock()
			totalTokens += resp.Usage.TotalTokens
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if e.ledger != nil && totalTokens > 0 {
		if err := e.ledger.Record(ctx, models.CostRecord{
			API:           "openai",
			OperationType: "embedding",
			TokensOrUnits: totalTokens,
			CostEstimate:  float64(totalTokens) / 1000 * embeddingCostPer1KTokens,
		}); err != nil {
			slog.Warn("[Embedder] Failed to record embedding cost", slog.String("error", err.Error()))
		}
	}

	return results, nil
}
