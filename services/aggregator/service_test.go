package aggregator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"dramastream/config"
	"dramastream/services/scraper"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	respond func(url string) ([]byte, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string, kind scraper.ContentKind) ([]byte, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[hostOf(rawURL)]++
	f.mu.Unlock()
	return f.respond(rawURL)
}

func (f *fakeFetcher) hostCalls(host string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[host]
}

func jsonSource(name, host string, priority int) config.SourceConfig {
	return config.SourceConfig{
		Name:     name,
		BaseURL:  "https://" + host,
		Category: "drama",
		Priority: priority,
		Kind:     "json",
		DataPath: "data",
		Endpoints: map[string]string{
			"popular": "/api/list?page={page}",
			"search":  "/api/search?q={query}",
			"detail":  "/api/detail/{id}",
		},
		CacheTTLMinutes: 10,
	}
}

func newTestService(f *fakeFetcher, sources ...config.SourceConfig) *Service {
	opts := DefaultOptions()
	opts.SourceTimeout = time.Second
	return NewService(f, scraper.NewDetector(), NewMemoryCache(), sources, opts)
}

const listingJSON = `{"data":[
	{"id":1,"title":"Crash Landing on You","rating":8.7,"episodesCount":16,"thumbnail":"a.jpg"},
	{"id":2,"title":"Squid Game","rating":8.0,"episodesCount":9,"thumbnail":"b.jpg"},
	{"id":3,"title":"The Glory","rating":8.1,"episodesCount":16,"thumbnail":"c.jpg"}
]}`

func TestFallbackSkipsFailingSource(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(url string) ([]byte, error) {
		switch {
		case strings.Contains(url, "s1.example"):
			return nil, errors.New("connection refused")
		case strings.Contains(url, "s2.example"):
			return []byte(listingJSON), nil
		default:
			return []byte(listingJSON), nil
		}
	}}
	svc := newTestService(fetcher,
		jsonSource("s1", "s1.example", 1),
		jsonSource("s2", "s2.example", 2),
		jsonSource("s3", "s3.example", 3),
	)

	items := svc.GetPopular(context.Background(), "drama", 1, 0)
	if len(items) != 3 {
		t.Fatalf("expected 3 items from the second source, got %d", len(items))
	}
	if fetcher.hostCalls("s1.example") == 0 {
		t.Error("first source should have been tried")
	}
	if fetcher.hostCalls("s3.example") != 0 {
		t.Error("third source must not be contacted once the second succeeds")
	}
}

func TestAllSourcesExhaustedReturnsEmptyWithoutCaching(t *testing.T) {
	var healthy bool
	var mu sync.Mutex
	fetcher := &fakeFetcher{respond: func(url string) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		if !healthy {
			return nil, errors.New("origin down")
		}
		return []byte(listingJSON), nil
	}}
	svc := newTestService(fetcher, jsonSource("s1", "s1.example", 1))

	items := svc.GetPopular(context.Background(), "drama", 1, 0)
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil result, got %v", items)
	}

	// The failure must not be cached: once the source recovers, the next
	// call fetches fresh data.
	mu.Lock()
	healthy = true
	mu.Unlock()
	items = svc.GetPopular(context.Background(), "drama", 1, 0)
	if len(items) != 3 {
		t.Fatalf("expected recovery after source came back, got %d items", len(items))
	}
}

func TestPopularResultIsCached(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(url string) ([]byte, error) {
		return []byte(listingJSON), nil
	}}
	svc := newTestService(fetcher, jsonSource("s1", "s1.example", 1))

	svc.GetPopular(context.Background(), "drama", 1, 0)
	first := fetcher.hostCalls("s1.example")
	svc.GetPopular(context.Background(), "drama", 1, 0)

	if fetcher.hostCalls("s1.example") != first {
		t.Error("second call should be served from cache")
	}
}

func TestClearCachesForcesRefetch(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(url string) ([]byte, error) {
		return []byte(listingJSON), nil
	}}
	svc := newTestService(fetcher, jsonSource("s1", "s1.example", 1))

	svc.GetPopular(context.Background(), "drama", 1, 0)
	before := fetcher.hostCalls("s1.example")
	svc.ClearCaches()
	svc.GetPopular(context.Background(), "drama", 1, 0)

	if fetcher.hostCalls("s1.example") <= before {
		t.Error("expected a fresh fetch after cache clear")
	}
}

func TestSearchRanksExactMatchFirst(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(url string) ([]byte, error) {
		return []byte(`{"data":[
			{"id":"round-six","title":"Round Six","rating":9.0,"episodesCount":9},
			{"id":"squid-game","title":"Squid Game","rating":8.0,"episodesCount":9}
		]}`), nil
	}}
	svc := newTestService(fetcher, jsonSource("s1", "s1.example", 1))

	items := svc.Search(context.Background(), "Squid Game", "drama", 0)
	if len(items) != 2 {
		t.Fatalf("expected 2 results, got %d", len(items))
	}
	if items[0].ID != "squid-game" {
		t.Errorf("expected exact match first, got %s", items[0].ID)
	}
}

func TestSearchEmptyQueryReturnsNothing(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(url string) ([]byte, error) {
		t.Error("no fetch expected for an empty query")
		return nil, errors.New("unreachable")
	}}
	svc := newTestService(fetcher, jsonSource("s1", "s1.example", 1))

	if items := svc.Search(context.Background(), "  ", "drama", 0); len(items) != 0 {
		t.Errorf("expected no results, got %d", len(items))
	}
}

func TestGetByIDClassifiesDetailAndFindsSimilar(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(url string) ([]byte, error) {
		if strings.Contains(url, "/api/detail/") {
			return []byte(`{
				"id":"squid-game","title":"Squid Game","originalTitle":"오징어 게임",
				"rating":8.0,"episodesCount":9,
				"description":"A deadly survival game with a cash prize.",
				"genres":["Thriller"]
			}`), nil
		}
		return []byte(`{"data":[
			{"id":"squid-game","title":"Squid Game","rating":8.0,"episodesCount":9,"genres":["Thriller"]},
			{"id":"alice","title":"Alice in Borderland","rating":7.9,"episodesCount":8,"genres":["Thriller"]},
			{"id":"hometown","title":"Hometown Cha-Cha-Cha","rating":8.4,"episodesCount":16,"genres":["Romance"]}
		]}`), nil
	}}
	svc := newTestService(fetcher, jsonSource("s1", "s1.example", 1))

	detail, ok := svc.GetByID(context.Background(), "drama", "squid-game")
	if !ok {
		t.Fatal("expected detail to resolve")
	}
	if detail.Title != "Squid Game" {
		t.Errorf("title: got %q", detail.Title)
	}

	var ids []string
	for _, sim := range detail.Similar {
		ids = append(ids, sim.ID)
	}
	for _, id := range ids {
		if id == "squid-game" {
			t.Error("an item must not list itself as similar")
		}
		if id == "hometown" {
			t.Error("similar items should share a genre")
		}
	}
	if len(ids) == 0 {
		t.Error("expected at least one similar title")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(url string) ([]byte, error) {
		return nil, &scraper.StatusError{Code: 404, URL: url}
	}}
	svc := newTestService(fetcher, jsonSource("s1", "s1.example", 1))

	if _, ok := svc.GetByID(context.Background(), "drama", "nope"); ok {
		t.Error("expected miss when every source fails")
	}
}

func TestHTMLSourceFallsBackWhenDetectionFails(t *testing.T) {
	htmlSrc := config.SourceConfig{
		Name:     "h1",
		BaseURL:  "https://h1.example",
		Category: "drama",
		Priority: 1,
		Kind:     "html",
		Endpoints: map[string]string{
			"popular": "/list/{page}",
		},
	}
	fetcher := &fakeFetcher{respond: func(url string) ([]byte, error) {
		if strings.Contains(url, "h1.example") {
			// Markup with no repeated structure: detection must fail.
			return []byte("<html><body><p>nothing here</p></body></html>"), nil
		}
		return []byte(listingJSON), nil
	}}
	svc := newTestService(fetcher, htmlSrc, jsonSource("s2", "s2.example", 2))

	items := svc.GetPopular(context.Background(), "drama", 1, 0)
	if len(items) != 3 {
		t.Fatalf("expected fallback to the JSON source, got %d items", len(items))
	}
	if fetcher.hostCalls("s2.example") == 0 {
		t.Error("fallback source was never contacted")
	}
}

func TestHTMLSourceExtractsViaInferredSchema(t *testing.T) {
	page := `<html><body><div class="grid">
	  <div class="card"><a href="/drama/goblin"><img src="/img/goblin.jpg"></a><h3>Goblin</h3></div>
	  <div class="card"><a href="/drama/signal"><img src="/img/signal.jpg"></a><h3>Signal</h3></div>
	  <div class="card"><a href="/drama/misaeng"><img src="/img/misaeng.jpg"></a><h3>Misaeng</h3></div>
	</div></body></html>`
	htmlSrc := config.SourceConfig{
		Name:     "h1",
		BaseURL:  "https://h1.example",
		Category: "drama",
		Priority: 1,
		Kind:     "html",
		Endpoints: map[string]string{
			"popular": "/list/{page}",
		},
	}
	fetcher := &fakeFetcher{respond: func(url string) ([]byte, error) {
		return []byte(page), nil
	}}
	svc := newTestService(fetcher, htmlSrc)

	items := svc.GetPopular(context.Background(), "drama", 1, 0)
	if len(items) != 3 {
		t.Fatalf("expected 3 extracted items, got %d", len(items))
	}
	if items[0].Title != "Goblin" {
		t.Errorf("title: got %q", items[0].Title)
	}
	if items[0].ID != "goblin" {
		t.Errorf("id: got %q", items[0].ID)
	}
}
