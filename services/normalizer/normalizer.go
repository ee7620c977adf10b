package normalizer

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"dramastream/models"
)

// SourceFormat tags the field layout of a raw batch. The format is detected
// once per batch and passed explicitly, instead of being re-sniffed for
// every item.
type SourceFormat int

const (
	FormatGeneric SourceFormat = iota
	FormatKissKH
	FormatDramaDay
)

func (f SourceFormat) String() string {
	switch f {
	case FormatKissKH:
		return "kisskh"
	case FormatDramaDay:
		return "dramaday"
	default:
		return "generic"
	}
}

// DetectFormat inspects the batch for source-specific identifier fields.
// The format only decides which identifier field wins; the field mapping
// algorithm is the same for every format.
func DetectFormat(batch []models.RawItem) SourceFormat {
	for _, raw := range batch {
		if _, ok := raw["drama_id"]; ok {
			return FormatDramaDay
		}
		if _, ok := raw["thumbnail"]; ok {
			if _, ok := raw["episodesCount"]; ok {
				return FormatKissKH
			}
		}
	}
	return FormatGeneric
}

// Ordered fallback chains per canonical field.
var (
	titleKeys    = []string{"title", "name", "drama_name"}
	origTitleKeys = []string{"original_title", "originalTitle", "native_title", "alt_title"}
	posterKeys   = []string{"poster", "posterUrl", "cover_url", "poster_path", "thumbnail", "image", "img"}
	backdropKeys = []string{"backdrop", "backdrop_path", "cover", "banner"}
	overviewKeys = []string{"overview", "description", "synopsis", "plot", "summary"}
	dateKeys     = []string{"release_date", "releaseDate", "date", "air_date", "year"}
	voteKeys     = []string{"vote_average", "rating", "score", "rate"}
	genreKeys    = []string{"genres", "genre", "categories", "tags"}
	countryKeys  = []string{"country", "origin", "nation"}
	episodeKeys  = []string{"episodes", "episode_count", "episodesCount", "total_episodes", "eps"}
	statusKeys   = []string{"status", "state", "airing_status"}
	typeKeys     = []string{"type", "category", "content_type"}
)

// Normalize maps one raw record into the canonical schema. The second
// return value is false when the record is too malformed to keep (no title
// and no identifier); such items are skipped individually and never abort
// the batch.
func Normalize(raw models.RawItem, format SourceFormat) (models.ContentItem, bool) {
	item := models.ContentItem{Genres: []string{}}

	item.ID = pickID(raw, format)
	item.Title = pickString(raw, titleKeys)
	item.OriginalTitle = pickString(raw, origTitleKeys)
	item.PosterPath = pickString(raw, posterKeys)
	item.BackdropPath = pickString(raw, backdropKeys)
	item.Overview = pickString(raw, overviewKeys)
	item.ReleaseDate = pickString(raw, dateKeys)
	item.VoteAverage = clampVote(pickFloat(raw, voteKeys))
	item.Genres = pickStringList(raw, genreKeys)
	item.Country = pickString(raw, countryKeys)
	item.Episodes = pickInt(raw, episodeKeys)
	item.Status = pickString(raw, statusKeys)
	item.Type = strings.ToLower(pickString(raw, typeKeys))

	if item.Title == "" && item.ID == "" {
		return models.ContentItem{Genres: []string{}}, false
	}
	if item.ID == "" {
		item.ID = slugify(item.Title)
	}
	return item, true
}

// NormalizeBatch detects the batch format once and normalizes every item,
// dropping malformed records with a log line instead of failing the batch.
func NormalizeBatch(batch []models.RawItem, source string) []models.ContentItem {
	format := DetectFormat(batch)
	items := make([]models.ContentItem, 0, len(batch))
	skipped := 0
	for _, raw := range batch {
		item, ok := Normalize(raw, format)
		if !ok {
			skipped++
			continue
		}
		items = append(items, item)
	}
	if skipped > 0 {
		log.Printf("[normalizer] %s (%s format): skipped %d malformed of %d items", source, format, skipped, len(batch))
	}
	return items
}

func pickID(raw models.RawItem, format SourceFormat) string {
	switch format {
	case FormatDramaDay:
		if v := asString(raw["drama_id"]); v != "" {
			return v
		}
	case FormatKissKH:
		if v := asString(raw["id"]); v != "" {
			return v
		}
	}
	for _, k := range []string{"id", "slug", "_id"} {
		if v := asString(raw[k]); v != "" {
			return v
		}
	}
	return ""
}

func pickString(raw models.RawItem, keys []string) string {
	for _, k := range keys {
		if v := asString(raw[k]); v != "" {
			return v
		}
	}
	return ""
}

func pickFloat(raw models.RawItem, keys []string) float64 {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func pickInt(raw models.RawItem, keys []string) int {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case float64:
			if v >= 0 {
				return int(v)
			}
		case int:
			if v >= 0 {
				return v
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
				return n
			}
		}
	}
	return 0
}

func pickStringList(raw models.RawItem, keys []string) []string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case []string:
			if len(v) > 0 {
				return cleanList(v)
			}
		case []any:
			list := make([]string, 0, len(v))
			for _, e := range v {
				if s := asString(e); s != "" {
					list = append(list, s)
				}
			}
			if len(list) > 0 {
				return cleanList(list)
			}
		case string:
			if v != "" {
				return cleanList(strings.Split(v, ","))
			}
		}
	}
	return []string{}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		// JSON numbers decode as float64; identifiers are integral.
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return fmt.Sprintf("%v", s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return ""
	}
}

func clampVote(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var sb strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && sb.Len() > 0 {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
