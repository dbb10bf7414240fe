package adapters

import (
	"testing"

	"github.com/spacesedan/sportsdigest/internal/models"
)

func TestNormalizeForHash(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		summary string
		want    string
	}{
		{
			"lowercases and strips punctuation",
			"Cowboys Sign QB!",
			"A big move, per sources.",
			"cowboys sign qb a big move per sources",
		},
		{
			"collapses whitespace",
			"Breaking:   trade",
			"  details  to follow ",
			"breaking trade details to follow",
		},
		{
			"empty summary",
			"Title only",
			"",
			"title only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeForHash(tt.title, tt.summary); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentHashIgnoresFormatting(t *testing.T) {
	a := ContentHash("Cowboys Sign QB!", "A big move, per sources.")
	b := ContentHash("cowboys sign QB", "a BIG move per sources")
	if a != b {
		t.Errorf("reformatted copies should hash identically: %s vs %s", a, b)
	}

	c := ContentHash("Cowboys cut QB", "a big move per sources")
	if a == c {
		t.Error("different stories must not collide")
	}
}

func TestMatchTeams(t *testing.T) {
	hints := models.TeamSet{"Cowboys", "Lakers"}

	got := matchTeams("The cowboys edged out a win; Lakers rested starters", hints)
	if len(got) != 2 {
		t.Fatalf("got %v, want both teams", got)
	}

	got = matchTeams("Yankees walk off", hints)
	if len(got) != 0 {
		t.Errorf("got %v, want no matches", got)
	}
}

func TestNormalizeEvent(t *testing.T) {
	event := models.SportsDBEvent{
		IDEvent:   "602129",
		Event:     "Cowboys vs Eagles",
		League:    "NFL",
		HomeTeam:  "Cowboys",
		AwayTeam:  "Eagles",
		HomeScore: "24",
		AwayScore: "17",
		DateEvent: "2026-08-30",
	}

	item, ok := normalizeEvent(event, "Cowboys")
	if !ok {
		t.Fatal("expected event to normalize")
	}
	if item.ContentType != models.ContentTypeStat {
		t.Errorf("got content type %q, want stat", item.ContentType)
	}
	if item.ContentHash == "" || item.ID == "" {
		t.Error("expected hash-derived identifiers")
	}
	if len(item.Teams) != 1 || item.Teams[0] != "Cowboys" {
		t.Errorf("got teams %v, want [Cowboys]", item.Teams)
	}

	if _, ok := normalizeEvent(models.SportsDBEvent{}, "Cowboys"); ok {
		t.Error("empty event should be dropped")
	}
}
