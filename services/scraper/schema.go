package scraper

// ExtractionSchema is the set of CSS selectors used to pull structured
// fields out of one host's listing pages. Item, Title and friends are
// resolved relative to Container matches.
type ExtractionSchema struct {
	Container  string `json:"container"`
	Item       string `json:"item"`
	Title      string `json:"title"`
	Image      string `json:"image"`
	Link       string `json:"link"`
	Meta       string `json:"meta"`
	Pagination string `json:"pagination"`
}

// Empty reports whether the schema carries enough selectors to extract
// anything at all. An empty schema signals the caller to treat the fetch
// as a miss.
func (s ExtractionSchema) Empty() bool {
	return s.Container == "" || s.Item == ""
}

// knownSchemas are hand-authored selectors for well-understood hosts. They
// take precedence over anything the heuristic inference would produce.
var knownSchemas = map[string]ExtractionSchema{
	"kisskh.co": {
		Container:  ".film-list",
		Item:       ".item",
		Title:      ".title",
		Image:      "img",
		Link:       "a",
		Meta:       ".sub-title",
		Pagination: ".pagination a",
	},
	"dramaday.me": {
		Container:  ".post-list",
		Item:       "article",
		Title:      "h2 a",
		Image:      "img",
		Link:       "h2 a",
		Meta:       ".entry-meta",
		Pagination: ".nav-links a",
	},
	"myasiantv.ac": {
		Container:  "ul.items",
		Item:       "li",
		Title:      ".title a",
		Image:      "img",
		Link:       "a",
		Meta:       ".status",
		Pagination: ".pagination a",
	},
}

// KnownSchema returns the hand-authored schema for a host, if any.
func KnownSchema(host string) (ExtractionSchema, bool) {
	s, ok := knownSchemas[host]
	return s, ok
}
