package taxonomy

// Static classification vocabulary. Loaded once at init, read-only for the
// process lifetime; request handling never mutates these tables.

// ContentType is one of the catalog's top-level buckets.
type ContentType struct {
	ID       string
	Name     string
	Priority int
}

// Origin describes a production origin with its match aliases. Aliases are
// matched case-insensitively against country fields and free text.
type Origin struct {
	ID      string
	Name    string
	Aliases []string
}

// Genre carries aliases for reconciling source genre strings plus a
// priority used to order tie-broken results.
type Genre struct {
	ID       string
	Name     string
	Aliases  []string
	Priority int
}

// Theme is detected purely by keyword containment over title and overview.
type Theme struct {
	ID       string
	Name     string
	Keywords []string
}

var ContentTypes = []ContentType{
	{ID: "drama", Name: "Drama Series", Priority: 1},
	{ID: "movie", Name: "Movies", Priority: 2},
	{ID: "anime", Name: "Anime", Priority: 3},
	{ID: "kshow", Name: "Variety Shows", Priority: 4},
	{ID: "documentary", Name: "Documentaries", Priority: 5},
}

var Origins = []Origin{
	{ID: "kr", Name: "Korean", Aliases: []string{"korea", "korean", "south korea", "kdrama", "k-drama", "hangul"}},
	{ID: "jp", Name: "Japanese", Aliases: []string{"japan", "japanese", "jdrama", "j-drama", "nippon"}},
	{ID: "cn", Name: "Chinese", Aliases: []string{"china", "chinese", "cdrama", "c-drama", "mainland", "mandarin"}},
	{ID: "tw", Name: "Taiwanese", Aliases: []string{"taiwan", "taiwanese", "twdrama"}},
	{ID: "hk", Name: "Hong Kong", Aliases: []string{"hong kong", "hongkong", "cantonese"}},
	{ID: "th", Name: "Thai", Aliases: []string{"thailand", "thai", "lakorn"}},
	{ID: "ph", Name: "Filipino", Aliases: []string{"philippines", "filipino", "pinoy", "tagalog"}},
	{ID: "us", Name: "Western", Aliases: []string{"usa", "united states", "america", "american", "uk", "british"}},
	{ID: "other", Name: "International", Aliases: nil},
}

var Genres = []Genre{
	{ID: "romance", Name: "Romance", Aliases: []string{"romantic", "love", "melodrama"}, Priority: 1},
	{ID: "comedy", Name: "Comedy", Aliases: []string{"funny", "sitcom", "rom-com", "romcom"}, Priority: 2},
	{ID: "action", Name: "Action", Aliases: []string{"martial arts", "fight"}, Priority: 3},
	{ID: "thriller", Name: "Thriller", Aliases: []string{"suspense"}, Priority: 4},
	{ID: "mystery", Name: "Mystery", Aliases: []string{"detective", "whodunit"}, Priority: 5},
	{ID: "crime", Name: "Crime", Aliases: []string{"police", "law", "legal"}, Priority: 6},
	{ID: "fantasy", Name: "Fantasy", Aliases: []string{"magic", "mythical"}, Priority: 7},
	{ID: "sci-fi", Name: "Sci-Fi", Aliases: []string{"science fiction", "scifi", "sf"}, Priority: 8},
	{ID: "horror", Name: "Horror", Aliases: []string{"scary", "ghost"}, Priority: 9},
	{ID: "historical", Name: "Historical", Aliases: []string{"history", "period", "sageuk", "wuxia"}, Priority: 10},
	{ID: "adventure", Name: "Adventure", Aliases: nil, Priority: 11},
	{ID: "slice-of-life", Name: "Slice of Life", Aliases: []string{"slice of life", "daily life"}, Priority: 12},
	{ID: "family", Name: "Family", Aliases: []string{"kids", "children"}, Priority: 13},
	{ID: "documentary", Name: "Documentary", Aliases: []string{"docuseries"}, Priority: 14},
}

var Themes = []Theme{
	{ID: "revenge", Name: "Revenge", Keywords: []string{"revenge", "vengeance", "payback"}},
	{ID: "time-travel", Name: "Time Travel", Keywords: []string{"time travel", "time-travel", "back in time", "time slip"}},
	{ID: "isekai", Name: "Isekai", Keywords: []string{"isekai", "another world", "reincarnat", "transmigrat"}},
	{ID: "school", Name: "School", Keywords: []string{"school", "high school", "campus", "student"}},
	{ID: "workplace", Name: "Workplace", Keywords: []string{"office", "workplace", "ceo", "chaebol", "intern"}},
	{ID: "palace", Name: "Royal Court", Keywords: []string{"palace", "crown prince", "emperor", "empress", "dynasty", "royal"}},
	{ID: "medical", Name: "Medical", Keywords: []string{"hospital", "doctor", "surgeon", "medical"}},
	{ID: "zombie", Name: "Zombie", Keywords: []string{"zombie", "undead", "outbreak"}},
	{ID: "supernatural", Name: "Supernatural", Keywords: []string{"ghost", "spirit", "demon", "goblin", "grim reaper"}},
	{ID: "survival", Name: "Survival", Keywords: []string{"survival", "death game", "last one standing"}},
}

// TypeGenreRules adds content-type-specific keyword inference, e.g. anime
// with "isekai" in the text is fantasy adventure even when the source lists
// no genres at all.
var TypeGenreRules = map[string][]struct {
	Keyword string
	Genres  []string
}{
	"anime": {
		{Keyword: "isekai", Genres: []string{"fantasy", "adventure"}},
		{Keyword: "mecha", Genres: []string{"sci-fi", "action"}},
		{Keyword: "slice of life", Genres: []string{"slice-of-life"}},
	},
	"drama": {
		{Keyword: "sageuk", Genres: []string{"historical"}},
		{Keyword: "chaebol", Genres: []string{"romance"}},
	},
	"kshow": {
		{Keyword: "survival", Genres: []string{"comedy"}},
	},
}

func originByID(id string) (Origin, bool) {
	for _, o := range Origins {
		if o.ID == id {
			return o, true
		}
	}
	return Origin{}, false
}

func genreByID(id string) (Genre, bool) {
	for _, g := range Genres {
		if g.ID == id {
			return g, true
		}
	}
	return Genre{}, false
}
