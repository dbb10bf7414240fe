package dedup

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spacesedan/sportsdigest/internal/models"
)

type mockScorer struct {
	calls   atomic.Int32
	scoreFn func(pairs []Pair) ([]PairScore, error)
}

func (m *mockScorer) ScorePairs(_ context.Context, pairs []Pair) ([]PairScore, error) {
	m.calls.Add(1)
	if m.scoreFn != nil {
		return m.scoreFn(pairs)
	}
	return nil, nil
}

func makeItems(n int) []models.ContentItem {
	items := make([]models.ContentItem, n)
	for i := range items {
		items[i] = models.ContentItem{
			ID:                  fmt.Sprintf("item-%d", i),
			Title:               fmt.Sprintf("story %d", i),
			Summary:             fmt.Sprintf("summary %d", i),
			ContentHash:         fmt.Sprintf("hash-%d", i),
			EngagementPotential: 0.5,
			PublishedAt:         time.Now().UTC(),
		}
	}
	return items
}

func TestDeduplicateFailOpen(t *testing.T) {
	scorer := &mockScorer{
		scoreFn: func(pairs []Pair) ([]PairScore, error) {
			return nil, fmt.Errorf("scoring service down")
		},
	}
	engine := NewEngine(scorer, 0.85, 4, 5, 2)

	items := makeItems(10)
	out, clusters := engine.Deduplicate(context.Background(), items)

	if len(out) != len(items) {
		t.Fatalf("got %d items, want all %d passed through", len(out), len(items))
	}
	if len(clusters) != 0 {
		t.Errorf("got %d clusters, want 0", len(clusters))
	}
	if scorer.calls.Load() == 0 {
		t.Error("scorer was never invoked")
	}
}

func TestDeduplicateClustersAboveThreshold(t *testing.T) {
	scorer := &mockScorer{
		scoreFn: func(pairs []Pair) ([]PairScore, error) {
			var scores []PairScore
			for _, p := range pairs {
				score := 0.1
				// Items 0 and 1 are the same story.
				if p.I == 0 && p.J == 1 {
					score = 0.92
				}
				scores = append(scores, PairScore{I: p.I, J: p.J, Score: score, Reason: "test"})
			}
			return scores, nil
		},
	}
	engine := NewEngine(scorer, 0.85, 4, 5, 2)

	items := makeItems(5)
	items[1].EngagementPotential = 0.9 // should win primary

	out, clusters := engine.Deduplicate(context.Background(), items)

	if len(out) != 4 {
		t.Fatalf("got %d items, want 4", len(out))
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	c := clusters[0]
	if c.Primary.ID != "item-1" {
		t.Errorf("got primary %s, want item-1 (highest engagement)", c.Primary.ID)
	}
	if len(c.Duplicates) != 1 || c.Duplicates[0].ID != "item-0" {
		t.Errorf("got duplicates %v, want [item-0]", c.Duplicates)
	}
	if c.SimilarityScore < 0.85 {
		t.Errorf("got similarity %v, want >= threshold", c.SimilarityScore)
	}
	// The primary takes the cluster's position in input order.
	if out[0].ID != "item-1" {
		t.Errorf("got first item %s, want item-1", out[0].ID)
	}
}

func TestDeduplicatePartitionInvariant(t *testing.T) {
	scorer := &mockScorer{
		scoreFn: func(pairs []Pair) ([]PairScore, error) {
			var scores []PairScore
			for _, p := range pairs {
				score := 0.0
				if p.J == p.I+1 {
					score = 0.9 // chain neighbors into clusters
				}
				scores = append(scores, PairScore{I: p.I, J: p.J, Score: score})
			}
			return scores, nil
		},
	}
	engine := NewEngine(scorer, 0.85, 4, 3, 2)

	items := makeItems(12)
	out, clusters := engine.Deduplicate(context.Background(), items)

	seen := make(map[string]int)
	for _, item := range out {
		seen[item.ID]++
	}
	for _, c := range clusters {
		for _, d := range c.Duplicates {
			seen[d.ID]++
		}
	}

	if len(seen) != len(items) {
		t.Fatalf("partition covers %d items, want %d", len(seen), len(items))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("item %s appears %d times across output+duplicates, want exactly once", id, n)
		}
	}
}

func TestDeduplicateCollapsesIdenticalHashes(t *testing.T) {
	scorer := &mockScorer{}
	engine := NewEngine(scorer, 0.85, 4, 5, 2)

	items := makeItems(3)
	items[2].ContentHash = items[0].ContentHash

	out, clusters := engine.Deduplicate(context.Background(), items)

	if len(out) != 2 {
		t.Fatalf("got %d items, want 2", len(out))
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	if clusters[0].SimilarityScore != 1.0 {
		t.Errorf("got similarity %v, want 1.0 for exact hash match", clusters[0].SimilarityScore)
	}
}

func TestDeduplicateSingleItem(t *testing.T) {
	engine := NewEngine(&mockScorer{}, 0.85, 4, 5, 2)
	items := makeItems(1)
	out, clusters := engine.Deduplicate(context.Background(), items)
	if len(out) != 1 || len(clusters) != 0 {
		t.Errorf("got %d items %d clusters, want 1 and 0", len(out), len(clusters))
	}
}

func TestParsePairScores(t *testing.T) {
	pairs := []Pair{{I: 0, J: 1}, {I: 1, J: 2}}

	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{
			"plain object",
			`{"scores":[{"pair":0,"score":0.9,"reason":"same"},{"pair":1,"score":0.2,"reason":"different"}]}`,
			2, false,
		},
		{
			"fenced markdown",
			"```json\n{\"scores\":[{\"pair\":0,\"score\":0.9,\"reason\":\"same\"}]}\n```",
			1, false,
		},
		{
			"conversational filler",
			"Here are the scores: {\"scores\":[{\"pair\":1,\"score\":0.5}]}",
			1, false,
		},
		{
			"out-of-range pair index dropped",
			`{"scores":[{"pair":7,"score":0.9}]}`,
			0, false,
		},
		{
			"out-of-range score dropped",
			`{"scores":[{"pair":0,"score":1.7}]}`,
			0, false,
		},
		{"no JSON", "I cannot help with that", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePairScores(tt.raw, pairs)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d scores, want %d", len(got), tt.want)
			}
		})
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors: got %v, want ~1", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 1}); got > 0.001 {
		t.Errorf("orthogonal vectors: got %v, want ~0", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 0}); got != 0 {
		t.Errorf("zero vector: got %v, want 0", got)
	}
	if got := cosine([]float32{1}, []float32{1, 0}); got != 0 {
		t.Errorf("length mismatch: got %v, want 0", got)
	}
}
