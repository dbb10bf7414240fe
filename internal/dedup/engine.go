package dedup

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/spacesedan/sportsdigest/internal/models"
	"github.com/spacesedan/sportsdigest/internal/utils"
)

// Engine clusters near-duplicate items from different adapters. It is a
// quality enhancement, not a correctness requirement: any scoring failure
// degrades to "no duplicates found" for the affected batch.
type Engine struct {
	scorer       SimilarityScorer
	threshold    float64
	neighborhood int
	batchSize    int
	concurrency  int
}

func NewEngine(scorer SimilarityScorer, threshold float64, neighborhood, batchSize, concurrency int) *Engine {
	if neighborhood <= 0 {
		neighborhood = 4
	}
	if batchSize <= 0 {
		batchSize = 5
	}
	if concurrency <= 0 {
		concurrency = 3
	}
	return &Engine{
		scorer:       scorer,
		threshold:    threshold,
		neighborhood: neighborhood,
		batchSize:    batchSize,
		concurrency:  concurrency,
	}
}

// Deduplicate returns the surviving items in input order (cluster primaries
// replace their cluster at the position of its first member) plus the
// clusters for audit. Items in no qualifying pair pass through unchanged.
func (e *Engine) Deduplicate(ctx context.Context, items []models.ContentItem) ([]models.ContentItem, []models.DuplicateCluster) {
	if len(items) < 2 {
		return items, nil
	}

	uf := newUnionFind(len(items))
	pairScore := make(map[[2]int]float64)

	// Identical content hashes are duplicates by construction; union them
	// without spending a scoring call.
	seenHash := make(map[string]int, len(items))
	for i, item := range items {
		if first, ok := seenHash[item.ContentHash]; ok {
			uf.union(first, i)
			pairScore[[2]int{first, i}] = 1.0
		} else {
			seenHash[item.ContentHash] = i
		}
	}

	qualified := e.scoreSemanticPairs(ctx, items, seenHash)
	for _, ps := range qualified {
		uf.union(ps.I, ps.J)
		pairScore[[2]int{ps.I, ps.J}] = ps.Score
	}

	return buildClusters(items, uf, pairScore)
}

// scoreSemanticPairs builds the bounded-neighborhood candidate pairs and
// scores them in batches with bounded concurrency. Only hash-unique items
// participate; exact copies were already unioned.
func (e *Engine) scoreSemanticPairs(ctx context.Context, items []models.ContentItem, seenHash map[string]int) []PairScore {
	var pairs []Pair
	for i := 0; i < len(items); i++ {
		if seenHash[items[i].ContentHash] != i {
			continue
		}
		for j := i + 1; j <= i+e.neighborhood && j < len(items); j++ {
			if seenHash[items[j].ContentHash] != j {
				continue
			}
			pairs = append(pairs, Pair{I: i, J: j, A: items[i], B: items[j]})
		}
	}
	if len(pairs) == 0 {
		return nil
	}

	batches := utils.Chunk(pairs, e.batchSize)

	var mu sync.Mutex
	var qualified []PairScore

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			scores, err := e.scorer.ScorePairs(gCtx, batch)
			if err != nil {
				// Fail open: the batch contributes no clusters.
				slog.Warn("[DedupEngine] Similarity batch failed, treating as no duplicates",
					slog.Int("pairs", len(batch)),
					slog.String("error", err.Error()))
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, s := range scores {
				if s.Score >= e.threshold {
					qualified = append(qualified, s)
				}
			}
			return nil
		})
	}
	g.Wait()

	return qualified
}

func buildClusters(items []models.ContentItem, uf *unionFind, pairScore map[[2]int]float64) ([]models.ContentItem, []models.DuplicateCluster) {
	memberships := make(map[int][]int)
	for i := range items {
		root := uf.find(i)
		memberships[root] = append(memberships[root], i)
	}

	clusterScore := make(map[int]float64)
	for pair, score := range pairScore {
		root := uf.find(pair[0])
		if score > clusterScore[root] {
			clusterScore[root] = score
		}
	}

	var out []models.ContentItem
	var clusters []models.DuplicateCluster
	emitted := make(map[int]bool)

	for i, item := range items {
		root := uf.find(i)
		if emitted[root] {
			continue
		}
		emitted[root] = true

		member := memberships[root]
		if len(member) == 1 {
			out = append(out, item)
			continue
		}

		primaryIdx := member[0]
		for _, idx := range member[1:] {
			if items[idx].EngagementPotential > items[primaryIdx].EngagementPotential {
				primaryIdx = idx
			}
		}

		duplicates := make([]models.ContentItem, 0, len(member)-1)
		for _, idx := range member {
			if idx != primaryIdx {
				duplicates = append(duplicates, items[idx])
			}
		}

		out = append(out, items[primaryIdx])
		clusters = append(clusters, models.DuplicateCluster{
			Primary:         items[primaryIdx],
			Duplicates:      duplicates,
			SimilarityScore: clusterScore[root],
		})
	}

	return out, clusters
}
