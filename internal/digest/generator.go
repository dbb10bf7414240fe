package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spacesedan/sportsdigest/internal/budget"
	"github.com/spacesedan/sportsdigest/internal/models"
)

const (
	generationRetryAttempts  = 3
	generationMaxTokens      = 600
	generationCostPer1KToken = 0.0015
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator turns the top ranked items into a short natural-language digest.
type Generator struct {
	client chatClient
	model  string
	ledger budget.Ledger
}

func NewGenerator(client chatClient, model string, ledger budget.Ledger) *Generator {
	return &Generator{client: client, model: model, ledger: ledger}
}

const digestSystemPrompt = `You are a sports editor writing a short personalized digest for one fan.

You will receive the fan's favorite teams and a JSON list of ranked content items. Write a flowing digest of 2-4 paragraphs covering the most important items first. Mention sources naturally ("per ESPN", "fans on Reddit noticed"). Do not invent facts beyond the provided items. Plain text only, no markdown, no headings.`

type promptItem struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Source      string `json:"source"`
	Type        string `json:"type"`
	PublishedAt string `json:"published_at"`
}

func buildUserPrompt(teams []string, items []models.ContentItem) (string, error) {
	payload := make([]promptItem, len(items))
	for i, item := range items {
		payload[i] = promptItem{
			Title:       item.Title,
			Summary:     item.Summary,
			Source:      item.SourceName,
			Type:        string(item.ContentType),
			PublishedAt: item.PublishedAt.UTC().Format(time.RFC3339),
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling digest items: %w", err)
	}

	return fmt.Sprintf("Favorite teams: %s\n\nRanked items:\n%s",
		strings.Join(teams, ", "), string(body)), nil
}

// Generate produces the digest text for the given ranked items. Cost is
// recorded against the user after the call completes.
func (g *Generator) Generate(ctx context.Context, userID string, teams []string, items []models.ContentItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("no items to summarize")
	}

	prompt, err := buildUserPrompt(teams, items)
	if err != nil {
		return "", err
	}

	var (
		resp          openai.ChatCompletionResponse
		completionErr error
	)
	for i := 0; i < generationRetryAttempts; i++ {
		start := time.Now()
		resp, completionErr = g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     g.model,
			MaxTokens: generationMaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: digestSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if completionErr == nil {
			break
		}
		slog.Warn("[DigestGenerator] Completion failed, retrying...",
			slog.String("error", completionErr.Error()),
			slog.Int("attempt", i+1),
			slog.Duration("elapsed", time.Since(start)))
	}
	if completionErr != nil {
		return "", fmt.Errorf("digest completion after %d attempts: %w", generationRetryAttempts, completionErr)
	}

	if g.ledger != nil {
		if err := g.ledger.Record(ctx, models.CostRecord{
			API:           "openai",
			OperationType: "digest_generation",
			TokensOrUnits: resp.Usage.TotalTokens,
			CostEstimate:  float64(resp.Usage.TotalTokens) / 1000 * generationCostPer1KToken,
			UserID:        userID,
		}); err != nil {
			slog.Warn("[DigestGenerator] Failed to record generation cost",
				slog.String("error", err.Error()))
		}
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("digest completion returned no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("digest completion returned empty content")
	}
	return content, nil
}

// Placeholder is the terminal fallback when no digest can be generated and
// nothing cached exists.
func Placeholder(teams []string) string {
	if len(teams) == 0 {
		return "We couldn't put together your sports digest right now. Please check back in a little while."
	}
	return fmt.Sprintf("We couldn't put together a fresh digest for %s right now. Please check back in a little while.",
		strings.Join(teams, ", "))
}
