package embedding

import "context"

// Embedder turns texts into fixed-dimension vectors. Implementations are
// billed per call and must record their own cost.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
