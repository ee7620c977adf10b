package ranker

import (
	"fmt"
	"testing"

	"dramastream/models"
)

func item(id, title, origTitle, overview string, vote float64) models.CategorizedItem {
	return models.CategorizedItem{
		ContentItem: models.ContentItem{
			ID:            id,
			Title:         title,
			OriginalTitle: origTitle,
			Overview:      overview,
			VoteAverage:   vote,
		},
	}
}

func ids(items []models.CategorizedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestRankExactTitleMatchWins(t *testing.T) {
	items := []models.CategorizedItem{
		item("round-six", "Round Six", "오징어 게임", "Also known as Squid Game internationally.", 9.0),
		item("squid-game", "Squid Game", "오징어 게임", "A deadly survival competition.", 8.0),
	}

	got := ids(Rank(items, "Squid Game"))
	if got[0] != "squid-game" {
		t.Fatalf("expected exact title match first, got %v", got)
	}
}

func TestRankEmptyQueryKeepsOrder(t *testing.T) {
	items := []models.CategorizedItem{
		item("a", "Alpha", "", "", 1),
		item("b", "Beta", "", "", 9),
	}
	got := ids(Rank(items, "   "))
	if got[0] != "a" || got[1] != "b" {
		t.Fatalf("empty query must not reorder, got %v", got)
	}
}

func TestRankIsStableForEqualScores(t *testing.T) {
	var items []models.CategorizedItem
	for i := 0; i < 5; i++ {
		items = append(items, item(fmt.Sprintf("twin-%d", i), "Twin Drama", "", "", 5.0))
	}
	got := ids(Rank(items, "twin"))
	for i := 0; i < 5; i++ {
		if got[i] != fmt.Sprintf("twin-%d", i) {
			t.Fatalf("stable sort violated at %d: %v", i, got)
		}
	}
}

func TestRankShortTermsAreIgnored(t *testing.T) {
	items := []models.CategorizedItem{
		item("of-mist", "Of Mist", "", "", 5.0),
		item("mist", "Mist Valley", "", "", 5.0),
	}
	// "of" is below the term length floor, so mist-valley cannot win on a
	// spurious "of" hit; the full-phrase match still decides it.
	got := ids(Rank(items, "of mist"))
	if got[0] != "of-mist" {
		t.Fatalf("expected phrase match first, got %v", got)
	}
}

func TestRankNativeTitleBonus(t *testing.T) {
	items := []models.CategorizedItem{
		item("western", "The Glory Remake", "", "A remake of the glory.", 7.0),
		item("native", "The Glory", "더 글로리", "A bullied woman plots revenge.", 7.0),
	}
	got := ids(Rank(items, "The Glory"))
	if got[0] != "native" {
		t.Fatalf("expected native-script item boosted, got %v", got)
	}
}

func TestRankTransliteratedQueryMatches(t *testing.T) {
	items := []models.CategorizedItem{
		item("other", "Something Else", "", "", 9.5),
		item("cafe", "Café Minamdang", "", "", 2.0),
	}
	got := ids(Rank(items, "cafe minamdang"))
	if got[0] != "cafe" {
		t.Fatalf("expected folded match to beat vote score, got %v", got)
	}
}
