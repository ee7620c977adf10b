package taxonomy

import (
	"sort"
	"strings"
	"unicode"

	"dramastream/models"
)

// Options passes per-batch hints that are not part of the item itself.
type Options struct {
	// SourceSpecialty is the origin ID a source is known to specialize in
	// ("kr" for a site that only carries Korean dramas). Empty means no hint.
	SourceSpecialty string
}

// Classify assigns type, origin, genres, themes and static collection
// membership to one item. It is a pure function of the item, the options
// and the static tables: the same input always yields the same categories.
func Classify(item models.ContentItem, opts Options) models.CategorizedItem {
	cats := models.Categories{
		Type:   detectType(item),
		Genres: []string{},
		Themes: []string{},
	}
	cats.Origin = detectOrigin(item, opts)
	cats.Genres = detectGenres(item, cats.Type)
	cats.Themes = detectThemes(item)
	cats.Collections = staticCollections(item, cats)

	return models.CategorizedItem{ContentItem: item, Categories: cats}
}

// ClassifyBatch classifies every item and then adds the generated
// collections (one per origin present, one per top-N genre) computed from
// this batch.
func ClassifyBatch(items []models.ContentItem, opts Options) []models.CategorizedItem {
	out := make([]models.CategorizedItem, 0, len(items))
	for _, item := range items {
		out = append(out, Classify(item, opts))
	}
	assignGeneratedCollections(out)
	return out
}

func detectType(item models.ContentItem) string {
	t := strings.ToLower(strings.TrimSpace(item.Type))
	for _, ct := range ContentTypes {
		if t == ct.ID {
			return ct.ID
		}
	}
	// Alias spellings sources actually use.
	switch t {
	case "tv", "series", "show", "tvshow":
		return "drama"
	case "film", "films":
		return "movie"
	case "variety", "tv show", "reality":
		return "kshow"
	case "docu", "docuseries":
		return "documentary"
	}
	if item.Episodes == 0 && item.Type == "" && item.Status == "" {
		// No episode data at all usually means a film listing.
		return "movie"
	}
	return "drama"
}

// detectOrigin runs the cascade: explicit country, source specialty, script
// ranges in the original title, alias scan over title+overview, genre field
// scan, then "other".
func detectOrigin(item models.ContentItem, opts Options) string {
	if id := matchOriginAlias(item.Country); id != "" {
		return id
	}
	if opts.SourceSpecialty != "" {
		if _, ok := originByID(opts.SourceSpecialty); ok {
			return opts.SourceSpecialty
		}
	}
	if id := originFromScript(item.OriginalTitle); id != "" {
		return id
	}
	text := strings.ToLower(item.Title + " " + item.Overview)
	if id := scanOriginAliases(text); id != "" {
		return id
	}
	if id := scanOriginAliases(strings.ToLower(strings.Join(item.Genres, " "))); id != "" {
		return id
	}
	return "other"
}

func matchOriginAlias(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	for _, o := range Origins {
		if value == o.ID || value == strings.ToLower(o.Name) {
			return o.ID
		}
		for _, a := range o.Aliases {
			if value == a {
				return o.ID
			}
		}
	}
	return ""
}

func scanOriginAliases(text string) string {
	if text == "" {
		return ""
	}
	for _, o := range Origins {
		for _, a := range o.Aliases {
			if strings.Contains(text, a) {
				return o.ID
			}
		}
	}
	return ""
}

// originFromScript tests Unicode blocks of the original title. Hangul is
// decisive for Korean; Kana for Japanese; Han alone (no Kana) for Chinese.
func originFromScript(title string) string {
	var hangul, kana, han bool
	for _, r := range title {
		switch {
		case unicode.Is(unicode.Hangul, r):
			hangul = true
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			kana = true
		case unicode.Is(unicode.Han, r):
			han = true
		}
	}
	switch {
	case hangul:
		return "kr"
	case kana:
		return "jp"
	case han:
		return "cn"
	}
	return ""
}

// detectGenres unions three passes: reconciling the item's own genre
// strings against names and aliases, content-type keyword rules, and a
// generic keyword scan for genres not yet matched.
func detectGenres(item models.ContentItem, contentType string) []string {
	matched := map[string]bool{}

	for _, raw := range item.Genres {
		if id := matchGenre(raw); id != "" {
			matched[id] = true
		}
	}

	text := strings.ToLower(item.Title + " " + item.Overview)
	for _, rule := range TypeGenreRules[contentType] {
		if strings.Contains(text, rule.Keyword) {
			for _, id := range rule.Genres {
				matched[id] = true
			}
		}
	}

	for _, g := range Genres {
		if matched[g.ID] {
			continue
		}
		if strings.Contains(text, strings.ToLower(g.Name)) {
			matched[g.ID] = true
			continue
		}
		for _, a := range g.Aliases {
			if strings.Contains(text, a) {
				matched[g.ID] = true
				break
			}
		}
	}

	return sortGenres(matched)
}

func matchGenre(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	for _, g := range Genres {
		if raw == g.ID || raw == strings.ToLower(g.Name) {
			return g.ID
		}
		for _, a := range g.Aliases {
			if raw == a {
				return g.ID
			}
		}
	}
	return ""
}

// sortGenres orders matched genre IDs by table priority so ties always
// resolve the same way.
func sortGenres(matched map[string]bool) []string {
	ids := make([]string, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		gi, _ := genreByID(ids[i])
		gj, _ := genreByID(ids[j])
		return gi.Priority < gj.Priority
	})
	return ids
}

func detectThemes(item models.ContentItem) []string {
	text := strings.ToLower(item.Title + " " + item.Overview)
	var themes []string
	for _, th := range Themes {
		for _, kw := range th.Keywords {
			if strings.Contains(text, kw) {
				themes = append(themes, th.ID)
				break
			}
		}
	}
	if themes == nil {
		themes = []string{}
	}
	return themes
}

// Strip returns the plain item without categories, for re-classification.
func Strip(item models.CategorizedItem) models.ContentItem {
	return item.ContentItem
}
