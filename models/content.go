package models

// Canonical content structures shared by the aggregation pipeline.

// RawItem is an untyped bag of fields as scraped or decoded from one source.
// Field names vary by source (poster/posterUrl/cover_url and so on); the
// normalizer is responsible for mapping it into a ContentItem.
type RawItem map[string]any

// ContentItem is the canonical catalog record. Every field is always present
// after normalization: strings default to "", numbers to 0, Genres to an
// empty slice. Downstream consumers never need presence checks.
type ContentItem struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title"`
	PosterPath    string   `json:"poster_path"`
	BackdropPath  string   `json:"backdrop_path"`
	Overview      string   `json:"overview"`
	ReleaseDate   string   `json:"release_date"`
	VoteAverage   float64  `json:"vote_average"` // 0-10
	Genres        []string `json:"genres"`
	Country       string   `json:"country"`
	Episodes      int      `json:"episodes"`
	Status        string   `json:"status"`
	Type          string   `json:"type"` // drama | movie | anime | kshow | documentary
}

// CastMember represents an actor attached to a ContentDetail.
type CastMember struct {
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
}

// StreamingLink points at an external watch page for one episode or cut.
type StreamingLink struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Quality string `json:"quality"`
}

// ContentDetail extends ContentItem with the fields only available on a
// detail page.
type ContentDetail struct {
	ContentItem
	Cast           []CastMember    `json:"cast"`
	Similar        []ContentItem   `json:"similar"`
	StreamingLinks []StreamingLink `json:"streaming_links"`
	Trailer        string          `json:"trailer"`
	Network        string          `json:"network"`
	Duration       string          `json:"duration"`
}

// Categories holds the computed taxonomy assignment for one item. It is
// derived data: recomputing from the same ContentItem always yields the
// same result.
type Categories struct {
	Type        string   `json:"type"`
	Origin      string   `json:"origin"`
	Genres      []string `json:"genres"`
	Themes      []string `json:"themes"`
	Collections []string `json:"collections"`
}

// CategorizedItem is a ContentItem enriched by the taxonomy classifier.
type CategorizedItem struct {
	ContentItem
	Categories Categories `json:"categories"`
}

// CollectionView is a named grouping of items returned by the collections
// endpoint.
type CollectionView struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Items []CategorizedItem `json:"items"`
}
