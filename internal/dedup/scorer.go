package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spacesedan/sportsdigest/internal/budget"
	"github.com/spacesedan/sportsdigest/internal/embedding"
	"github.com/spacesedan/sportsdigest/internal/models"
)

// Pair is a candidate duplicate pair; I and J index the engine's input list.
type Pair struct {
	I, J int
	A, B models.ContentItem
}

type PairScore struct {
	I, J   int
	Score  float64
	Reason string
}

// SimilarityScorer judges how likely each pair describes the same story.
// The engine treats a scorer failure as "no duplicates found" for that batch.
type SimilarityScorer interface {
	ScorePairs(ctx context.Context, pairs []Pair) ([]PairScore, error)
}

const chatCostPer1KTokens = 0.0006

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMScorer scores pairs with a chat-completion similarity prompt.
type LLMScorer struct {
	client chatClient
	model  string
	ledger budget.Ledger
}

func NewLLMScorer(client chatClient, model string, ledger budget.Ledger) *LLMScorer {
	return &LLMScorer{client: client, model: model, ledger: ledger}
}

const similaritySystemPrompt = `You judge whether two sports content items describe the same underlying story or event.

You will receive a JSON array of pairs. For each pair return a similarity score between 0.0 and 1.0 and a short reason. Two items about the same game, trade, injury, or announcement score high even when phrased differently; items about the same team but different events score low.

Respond only with a valid JSON object, no additional text:
{"scores": [{"pair": 0, "score": 0.93, "reason": "same trade announcement"}]}

The "pair" field must echo the pair's index from the input.`

func (s *LLMScorer) ScorePairs(ctx context.Context, pairs []Pair) ([]PairScore, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	type pairPayload struct {
		Pair   int    `json:"pair"`
		TitleA string `json:"title_a"`
		TextA  string `json:"text_a"`
		TitleB string `json:"title_b"`
		TextB  string `json:"text_b"`
	}
	payload := make([]pairPayload, len(pairs))
	for i, p := range pairs {
		payload[i] = pairPayload{
			Pair:   i,
			TitleA: p.A.Title,
			TextA:  p.A.Summary,
			TitleB: p.B.Title,
			TextB:  p.B.Summary,
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling pairs: %w", err)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: similaritySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(body)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("similarity completion: %w", err)
	}

	if s.ledger != nil {
		if err := s.ledger.Record(ctx, models.CostRecord{
			API:           "openai",
			OperationType: "dedup_scoring",
			TokensOrUnits: resp.Usage.TotalTokens,
			CostEstimate:  float64(resp.Usage.TotalTokens) / 1000 * chatCostPer1KTokens,
		}); err != nil {
			slog.Warn("[DedupEngine] Failed to record scoring cost", slog.String("error", err.Error()))
		}
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("similarity completion returned no choices")
	}

	return parsePairScores(resp.Choices[0].Message.Content, pairs)
}

func parsePairScores(raw string, pairs []Pair) ([]PairScore, error) {
	cleaned := cleanJSONResponse(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("no JSON object in similarity response")
	}

	var parsed struct {
		Scores []struct {
			Pair   int     `json:"pair"`
			Score  float64 `json:"score"`
			Reason string  `json:"reason"`
		} `json:"scores"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling similarity scores: %w", err)
	}

	scores := make([]PairScore, 0, len(parsed.Scores))
	for _, s := range parsed.Scores {
		if s.Pair < 0 || s.Pair >= len(pairs) {
			slog.Warn("[DedupEngine] Score references unknown pair", slog.Int("pair", s.Pair))
			continue
		}
		if s.Score < 0 || s.Score > 1 {
			continue
		}
		scores = append(scores, PairScore{
			I:      pairs[s.Pair].I,
			J:      pairs[s.Pair].J,
			Score:  s.Score,
			Reason: s.Reason,
		})
	}
	return scores, nil
}

// cleanJSONResponse strips markdown code fences and surrounding filler,
// returning the outermost JSON object or "" when none is present.
func cleanJSONResponse(response string) string {
	cleaned := strings.TrimSpace(response)

	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "\n")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimPrefix(cleaned, "\n")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end <= start {
		return ""
	}
	return cleaned[start : end+1]
}

// CosineScorer is the embedding-based alternative strategy: pairs are scored
// by cosine similarity of their embedded title+summary text.
type CosineScorer struct {
	embedder embedding.Embedder
}

func NewCosineScorer(embedder embedding.Embedder) *CosineScorer {
	return &CosineScorer{embedder: embedder}
}

func (s *CosineScorer) ScorePairs(ctx context.Context, pairs []Pair) ([]PairScore, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	texts := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		texts = append(texts, p.A.Title+" "+p.A.Summary, p.B.Title+" "+p.B.Summary)
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding pair texts: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	scores := make([]PairScore, 0, len(pairs))
	for i, p := range pairs {
		scores = append(scores, PairScore{
			I:      p.I,
			J:      p.J,
			Score:  cosine(vectors[2*i], vectors[2*i+1]),
			Reason: "embedding cosine similarity",
		})
	}
	return scores, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
