package digest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spacesedan/sportsdigest/internal/budget"
	"github.com/spacesedan/sportsdigest/internal/models"
)

type mockChatClient struct {
	failures int
	calls    int
	content  string
}

func (m *mockChatClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.calls++
	if m.calls <= m.failures {
		return openai.ChatCompletionResponse{}, fmt.Errorf("transient upstream error")
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: m.content}},
		},
		Usage: openai.Usage{TotalTokens: 500},
	}, nil
}

func testItems() []models.ContentItem {
	return []models.ContentItem{
		{
			Title:       "Cowboys clinch playoff spot",
			Summary:     "A late field goal sealed it.",
			SourceName:  "ESPN",
			ContentType: models.ContentTypeNews,
			PublishedAt: time.Now().UTC(),
		},
	}
}

func TestGenerateRecordsCost(t *testing.T) {
	ledger := budget.NewMemoryLedger(10)
	client := &mockChatClient{content: "Your Cowboys digest."}
	g := NewGenerator(client, "gpt-4o-mini", ledger)

	got, err := g.Generate(context.Background(), "user-1", []string{"Cowboys"}, testItems())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Your Cowboys digest." {
		t.Errorf("got %q", got)
	}

	records := ledger.Records()
	if len(records) != 1 {
		t.Fatalf("got %d cost records, want 1", len(records))
	}
	r := records[0]
	if r.OperationType != "digest_generation" || r.UserID != "user-1" || r.TokensOrUnits != 500 {
		t.Errorf("unexpected cost record: %+v", r)
	}
	if r.CostEstimate <= 0 {
		t.Errorf("got cost %v, want > 0", r.CostEstimate)
	}
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	client := &mockChatClient{failures: 2, content: "Eventually fine."}
	g := NewGenerator(client, "gpt-4o-mini", nil)

	got, err := g.Generate(context.Background(), "user-1", []string{"Cowboys"}, testItems())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Eventually fine." || client.calls != 3 {
		t.Errorf("got %q after %d calls", got, client.calls)
	}
}

func TestGenerateExhaustsRetries(t *testing.T) {
	client := &mockChatClient{failures: 10}
	g := NewGenerator(client, "gpt-4o-mini", nil)

	if _, err := g.Generate(context.Background(), "user-1", nil, testItems()); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if client.calls != generationRetryAttempts {
		t.Errorf("got %d calls, want %d", client.calls, generationRetryAttempts)
	}
}

func TestGenerateRejectsEmptyInput(t *testing.T) {
	g := NewGenerator(&mockChatClient{content: "x"}, "gpt-4o-mini", nil)
	if _, err := g.Generate(context.Background(), "user-1", nil, nil); err == nil {
		t.Fatal("expected error for empty item list")
	}
}

func TestBuildUserPrompt(t *testing.T) {
	prompt, err := buildUserPrompt([]string{"Cowboys", "Mavericks"}, testItems())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Cowboys, Mavericks", "Cowboys clinch playoff spot", "ESPN"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestPlaceholder(t *testing.T) {
	if got := Placeholder([]string{"Cowboys"}); !strings.Contains(got, "Cowboys") {
		t.Errorf("placeholder does not mention the team: %q", got)
	}
	if got := Placeholder(nil); got == "" {
		t.Error("placeholder for no teams is empty")
	}
}
