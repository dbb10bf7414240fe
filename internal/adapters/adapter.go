package adapters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/spacesedan/sportsdigest/internal/budget"
	"github.com/spacesedan/sportsdigest/internal/models"
)

// SourceAdapter translates one provider's native response shape into
// ContentItems. Adapters fail in isolation: the orchestrator fans out over
// all of them and a failing adapter just contributes zero items.
type SourceAdapter interface {
	Name() string
	Fetch(ctx context.Context, hints models.TeamSet) ([]models.ContentItem, error)
}

// NormalizeForHash lower-cases, strips punctuation and collapses whitespace
// so trivially reformatted copies of the same story hash identically.
func NormalizeForHash(title, summary string) string {
	var b strings.Builder
	b.Grow(len(title) + len(summary) + 1)

	lastSpace := true
	for _, r := range strings.ToLower(title + " " + summary) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// ContentHash is the dedup join key and embedding idempotency key.
func ContentHash(title, summary string) string {
	sum := sha256.Sum256([]byte(NormalizeForHash(title, summary)))
	return hex.EncodeToString(sum[:])
}

// itemID derives the stable item identifier from the content hash.
func itemID(hash string) string {
	return hash[:16]
}

// matchTeams returns the hint teams mentioned in the item text,
// case-insensitive substring match.
func matchTeams(text string, hints models.TeamSet) []string {
	lower := strings.ToLower(text)
	var teams []string
	for _, team := range hints {
		if strings.Contains(lower, strings.ToLower(team)) {
			teams = append(teams, team)
		}
	}
	return teams
}

// recordCost appends the adapter's CostRecord. Failures are logged and
// swallowed: losing a usage row must never fail a fetch that succeeded.
func recordCost(ctx context.Context, ledger budget.Ledger, rec models.CostRecord) {
	if ledger == nil {
		return
	}
	rec.Timestamp = time.Now().UTC()
	if err := ledger.Record(ctx, rec); err != nil {
		slog.Warn("[SourceAdapter] Failed to record cost",
			slog.String("api", rec.API),
			slog.String("error", err.Error()))
	}
}
