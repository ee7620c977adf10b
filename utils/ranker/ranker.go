package ranker

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/mozillazg/go-unidecode"

	"dramastream/models"
)

// Scoring weights. Tuned for catalog search where a handful of strong
// signals beat fuzzy text scoring.
const (
	voteWeight        = 2.0
	recencyBonus      = 15.0
	recencyWindow     = 3 // years
	exactMatchBonus   = 50.0
	titleTermBonus    = 20.0
	origTermBonus     = 15.0
	overviewTermBonus = 5.0
	cjkBonus          = 30.0
	minTermLen        = 3
)

// Rank orders items by relevance against a free-text query. The sort is
// stable, so equal scores keep their input order, and the internal score is
// never exposed to callers.
func Rank(items []models.CategorizedItem, query string) []models.CategorizedItem {
	query = strings.TrimSpace(query)
	if query == "" || len(items) == 0 {
		return items
	}

	foldedQuery := fold(query)
	terms := queryTerms(foldedQuery)

	type scored struct {
		item  models.CategorizedItem
		score float64
	}
	ranked := make([]scored, len(items))
	for i, item := range items {
		ranked[i] = scored{item: item, score: score(item.ContentItem, foldedQuery, terms)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]models.CategorizedItem, len(ranked))
	for i, s := range ranked {
		out[i] = s.item
	}
	return out
}

func score(item models.ContentItem, foldedQuery string, terms []string) float64 {
	total := voteWeight * item.VoteAverage

	if year := releaseYear(item.ReleaseDate); year > 0 && time.Now().Year()-year <= recencyWindow {
		total += recencyBonus
	}

	title := fold(item.Title)
	original := fold(item.OriginalTitle)
	overview := fold(item.Overview)

	if strings.Contains(title, foldedQuery) {
		total += exactMatchBonus
	}

	for _, term := range terms {
		if strings.Contains(title, term) {
			total += titleTermBonus
		}
		if original != "" && strings.Contains(original, term) {
			total += origTermBonus
		}
		if overview != "" && strings.Contains(overview, term) {
			total += overviewTermBonus
		}
	}

	if hasCJK(item.OriginalTitle) {
		total += cjkBonus
	}

	return total
}

// fold lowercases and ASCII-folds text so accented or transliterated titles
// still match plain-ASCII queries.
func fold(s string) string {
	return strings.ToLower(unidecode.Unidecode(s))
}

func queryTerms(folded string) []string {
	fields := strings.Fields(folded)
	terms := fields[:0]
	for _, f := range fields {
		if len(f) >= minTermLen {
			terms = append(terms, f)
		}
	}
	return terms
}

func releaseYear(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

func hasCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hangul, r) ||
			unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) ||
			unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
