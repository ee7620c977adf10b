package taxonomy

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"dramastream/models"
)

// CollectionFilter is a predicate over an item's computed categories.
// Scalar Genre/Theme fields are required matches; the plural list forms use
// any-of semantics. Keywords match against title and overview.
type CollectionFilter struct {
	Type     string
	Origin   string
	Genre    string   // must be present
	Genres   []string // at least one present
	Theme    string   // must be present
	Themes   []string // at least one present
	Keywords []string // any keyword in title or overview
}

// Collection is a named, filter-defined grouping of items.
type Collection struct {
	ID     string
	Name   string
	Filter CollectionFilter
}

// Catalog is the fixed set of curated collections evaluated for every item.
var Catalog = []Collection{
	{ID: "korean-romance", Name: "Korean Romance", Filter: CollectionFilter{Origin: "kr", Genre: "romance"}},
	{ID: "korean-thrillers", Name: "Korean Thrillers", Filter: CollectionFilter{Origin: "kr", Genres: []string{"thriller", "mystery", "crime"}}},
	{ID: "c-drama-historical", Name: "Chinese Historical", Filter: CollectionFilter{Origin: "cn", Genre: "historical"}},
	{ID: "anime-isekai", Name: "Isekai Worlds", Filter: CollectionFilter{Type: "anime", Theme: "isekai"}},
	{ID: "anime-action", Name: "Action Anime", Filter: CollectionFilter{Type: "anime", Genres: []string{"action", "adventure"}}},
	{ID: "k-variety", Name: "K-Variety", Filter: CollectionFilter{Type: "kshow", Origin: "kr"}},
	{ID: "thai-romance", Name: "Thai Romance", Filter: CollectionFilter{Origin: "th", Genre: "romance"}},
	{ID: "medical-dramas", Name: "Medical Dramas", Filter: CollectionFilter{Type: "drama", Theme: "medical"}},
	{ID: "revenge-stories", Name: "Revenge Stories", Filter: CollectionFilter{Themes: []string{"revenge"}}},
	{ID: "time-benders", Name: "Time Benders", Filter: CollectionFilter{Themes: []string{"time-travel", "isekai"}}},
	{ID: "royal-court", Name: "Palace Intrigue", Filter: CollectionFilter{Theme: "palace", Genres: []string{"historical", "romance", "drama"}}},
	{ID: "undead-survival", Name: "Outbreak & Survival", Filter: CollectionFilter{Themes: []string{"zombie", "survival"}}},
}

// topGenreCount caps how many per-genre collections a batch generates.
const topGenreCount = 5

// Matches evaluates the filter against an item's categories and text.
func (f CollectionFilter) Matches(item models.ContentItem, cats models.Categories) bool {
	if f.Type != "" && cats.Type != f.Type {
		return false
	}
	if f.Origin != "" && cats.Origin != f.Origin {
		return false
	}
	if f.Genre != "" && !contains(cats.Genres, f.Genre) {
		return false
	}
	if len(f.Genres) > 0 && !containsAny(cats.Genres, f.Genres) {
		return false
	}
	if f.Theme != "" && !contains(cats.Themes, f.Theme) {
		return false
	}
	if len(f.Themes) > 0 && !containsAny(cats.Themes, f.Themes) {
		return false
	}
	if len(f.Keywords) > 0 {
		text := strings.ToLower(item.Title + " " + item.Overview)
		hit := false
		for _, kw := range f.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func staticCollections(item models.ContentItem, cats models.Categories) []string {
	var ids []string
	for _, c := range Catalog {
		if c.Filter.Matches(item, cats) {
			ids = append(ids, c.ID)
		}
	}
	if ids == nil {
		ids = []string{}
	}
	return ids
}

// assignGeneratedCollections adds the two generated families to a batch:
// one collection per origin present, one per top-N genre by frequency.
func assignGeneratedCollections(items []models.CategorizedItem) {
	genreFreq := map[string]int{}
	for _, it := range items {
		for _, g := range it.Categories.Genres {
			genreFreq[g]++
		}
	}
	topGenres := topByCount(genreFreq, topGenreCount)

	for i := range items {
		cats := &items[i].Categories
		if cats.Origin != "" && cats.Origin != "other" {
			cats.Collections = append(cats.Collections, "origin-"+cats.Origin)
		}
		for _, g := range cats.Genres {
			if contains(topGenres, g) {
				cats.Collections = append(cats.Collections, "genre-"+g)
			}
		}
	}
}

// CollectionName resolves a collection ID (curated or generated) to its
// display name.
func CollectionName(id string) string {
	for _, c := range Catalog {
		if c.ID == id {
			return c.Name
		}
	}
	titler := cases.Title(language.English)
	if origin, ok := strings.CutPrefix(id, "origin-"); ok {
		if o, found := originByID(origin); found {
			return o.Name + " Picks"
		}
		return titler.String(origin) + " Picks"
	}
	if genre, ok := strings.CutPrefix(id, "genre-"); ok {
		if g, found := genreByID(genre); found {
			return g.Name
		}
		return titler.String(strings.ReplaceAll(genre, "-", " "))
	}
	return titler.String(strings.ReplaceAll(id, "-", " "))
}

// GroupByCollection buckets a classified batch into collection views,
// ordered by curated catalog first, then generated collections by size.
func GroupByCollection(items []models.CategorizedItem) []models.CollectionView {
	buckets := map[string][]models.CategorizedItem{}
	for _, it := range items {
		for _, id := range it.Categories.Collections {
			buckets[id] = append(buckets[id], it)
		}
	}

	var views []models.CollectionView
	seen := map[string]bool{}
	for _, c := range Catalog {
		if members := buckets[c.ID]; len(members) > 0 {
			views = append(views, models.CollectionView{ID: c.ID, Name: c.Name, Items: members})
			seen[c.ID] = true
		}
	}

	var generated []string
	for id := range buckets {
		if !seen[id] {
			generated = append(generated, id)
		}
	}
	sort.Slice(generated, func(i, j int) bool {
		if len(buckets[generated[i]]) != len(buckets[generated[j]]) {
			return len(buckets[generated[i]]) > len(buckets[generated[j]])
		}
		return generated[i] < generated[j]
	})
	for _, id := range generated {
		views = append(views, models.CollectionView{ID: id, Name: CollectionName(id), Items: buckets[id]})
	}
	return views
}

func contains(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

func containsAny(list, wanted []string) bool {
	for _, w := range wanted {
		if contains(list, w) {
			return true
		}
	}
	return false
}

func topByCount(freq map[string]int, n int) []string {
	ids := make([]string, 0, len(freq))
	for id := range freq {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if freq[ids[i]] != freq[ids[j]] {
			return freq[ids[i]] > freq[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}
