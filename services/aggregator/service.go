package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"dramastream/config"
	"dramastream/models"
	"dramastream/services/normalizer"
	"dramastream/services/scraper"
	"dramastream/services/taxonomy"
	"dramastream/utils/ranker"
	"dramastream/utils/similarity"
)

// Fetcher is the slice of the stealth client the aggregator needs. Tests
// substitute a canned implementation.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, kind scraper.ContentKind) ([]byte, error)
}

// Options tunes the aggregator independently of the scraper pacing.
type Options struct {
	ResultTTL     time.Duration // fallback TTL when a source sets none
	SourceTimeout time.Duration // budget for one source attempt
	MaxConcurrent int           // bound for cross-category prefetch
}

func DefaultOptions() Options {
	return Options{
		ResultTTL:     30 * time.Minute,
		SourceTimeout: 20 * time.Second,
		MaxConcurrent: 4,
	}
}

// Service multiplexes prioritized sources per category behind a result
// cache. A source that errors, returns the wrong shape or yields nothing is
// skipped in favor of the next one; only a successful non-empty batch is
// cached. When every source fails the result is empty, never an error.
type Service struct {
	fetcher  Fetcher
	detector *scraper.Detector
	cache    Cache
	sources  map[string][]config.SourceConfig
	opts     Options
}

func NewService(fetcher Fetcher, detector *scraper.Detector, cache Cache, sources []config.SourceConfig, opts Options) *Service {
	return &Service{
		fetcher:  fetcher,
		detector: detector,
		cache:    cache,
		sources:  config.SourcesByCategory(sources),
		opts:     opts,
	}
}

// Categories lists the configured content categories in stable order.
func (s *Service) Categories() []string {
	cats := make([]string, 0, len(s.sources))
	for cat := range s.sources {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// GetPopular returns the classified popular listing for a category. Results
// come from the first source in priority order that produces a non-empty
// batch.
func (s *Service) GetPopular(ctx context.Context, category string, page, limit int) []models.CategorizedItem {
	if page < 1 {
		page = 1
	}
	key := cacheKey("popular", category, strconv.Itoa(page))
	if items, ok := s.cachedItems(key); ok {
		return clip(items, limit)
	}

	items, src := s.collect(ctx, category, "popular", map[string]string{"page": strconv.Itoa(page)})
	if len(items) == 0 {
		return []models.CategorizedItem{}
	}
	s.storeItems(key, items, src.TTL(int(s.opts.ResultTTL.Minutes())))
	return clip(items, limit)
}

// Search queries the category's sources and ranks the merged result against
// the query. An empty category searches every configured category.
func (s *Service) Search(ctx context.Context, query, category string, limit int) []models.CategorizedItem {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.CategorizedItem{}
	}

	categories := []string{category}
	if category == "" {
		categories = s.Categories()
	}

	var merged []models.CategorizedItem
	seen := map[string]bool{}
	for _, cat := range categories {
		key := cacheKey("search", cat, strings.ToLower(query))
		items, ok := s.cachedItems(key)
		if !ok {
			var src config.SourceConfig
			items, src = s.collect(ctx, cat, "search", map[string]string{"query": url.QueryEscape(query)})
			if len(items) > 0 {
				s.storeItems(key, items, src.TTL(int(s.opts.ResultTTL.Minutes())))
			}
		}
		for _, it := range items {
			dedupe := it.Categories.Type + "/" + it.ID
			if !seen[dedupe] {
				seen[dedupe] = true
				merged = append(merged, it)
			}
		}
	}

	ranked := ranker.Rank(merged, query)
	return clip(ranked, limit)
}

// GetByID fetches the detail view for one item. Similar titles are computed
// from the cached category listing, not fetched separately.
func (s *Service) GetByID(ctx context.Context, category, id string) (*models.ContentDetail, bool) {
	key := cacheKey("detail", category, id)
	if data, ok := s.cache.Get(key); ok {
		var detail models.ContentDetail
		if json.Unmarshal(data, &detail) == nil {
			return &detail, true
		}
	}

	for _, src := range s.sources[category] {
		detail, err := s.fetchDetail(ctx, src, category, id)
		if err != nil {
			log.Printf("[aggregator] %s detail %s/%s failed: %v", src.Name, category, id, err)
			continue
		}
		detail.Similar = s.similarTitles(ctx, category, detail.ContentItem)
		if data, err := json.Marshal(detail); err == nil {
			s.cache.Set(key, data, src.TTL(int(s.opts.ResultTTL.Minutes())))
		}
		return detail, true
	}
	return nil, false
}

// Collections groups a category's popular listing into curated and
// generated collection views.
func (s *Service) Collections(ctx context.Context, category string) []models.CollectionView {
	var items []models.CategorizedItem
	if category != "" {
		items = s.GetPopular(ctx, category, 1, 0)
	} else {
		for _, cat := range s.Categories() {
			items = append(items, s.GetPopular(ctx, cat, 1, 0)...)
		}
	}
	if len(items) == 0 {
		return []models.CollectionView{}
	}
	return taxonomy.GroupByCollection(items)
}

// WarmCategories prefetches page one of every category concurrently, bounded
// so we never open more parallel scrapes than configured.
func (s *Service) WarmCategories(ctx context.Context) {
	workers := s.opts.MaxConcurrent
	if workers < 1 {
		workers = 1
	}
	p := pool.New().WithMaxGoroutines(workers)
	for _, cat := range s.Categories() {
		p.Go(func() {
			n := len(s.GetPopular(ctx, cat, 1, 0))
			log.Printf("[aggregator] warmed %s: %d items", cat, n)
		})
	}
	p.Wait()
}

// ClearCaches drops cached results and learned extraction schemas.
func (s *Service) ClearCaches() {
	s.cache.Clear()
	s.detector.InvalidateAll()
	log.Printf("[aggregator] caches cleared")
}

// collect walks the category's sources in priority order and returns the
// first non-empty classified batch plus the source that produced it.
func (s *Service) collect(ctx context.Context, category, endpoint string, params map[string]string) ([]models.CategorizedItem, config.SourceConfig) {
	for _, src := range s.sources[category] {
		items, err := s.fetchListing(ctx, src, endpoint, params)
		if err != nil {
			log.Printf("[aggregator] %s %s failed, trying next source: %v", src.Name, endpoint, err)
			continue
		}
		if len(items) == 0 {
			log.Printf("[aggregator] %s %s returned no items, trying next source", src.Name, endpoint)
			continue
		}
		normalized := normalizer.NormalizeBatch(items, src.Name)
		if len(normalized) == 0 {
			continue
		}
		classified := taxonomy.ClassifyBatch(normalized, taxonomy.Options{SourceSpecialty: src.Specialty})
		return classified, src
	}
	log.Printf("[aggregator] all %s sources exhausted for %s", category, endpoint)
	return nil, config.SourceConfig{}
}

// fetchListing retrieves and extracts one listing page from one source.
func (s *Service) fetchListing(ctx context.Context, src config.SourceConfig, endpoint string, params map[string]string) ([]models.RawItem, error) {
	target, err := buildURL(src, endpoint, params)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.SourceTimeout)
	defer cancel()

	if src.Kind == "json" {
		body, err := s.fetcher.Fetch(ctx, target, scraper.KindJSON)
		if err != nil {
			return nil, err
		}
		return decodeItems(body, src.DataPath)
	}

	body, err := s.fetcher.Fetch(ctx, target, scraper.KindHTML)
	if err != nil {
		return nil, err
	}

	host := hostOf(src.BaseURL)
	schema, err := s.detector.Detect(body, host)
	if err != nil {
		return nil, err
	}
	items, err := scraper.Extract(body, schema, src.BaseURL)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		// A learned schema that stops matching is stale; drop it so the
		// next attempt re-detects instead of failing forever.
		s.detector.Invalidate(host)
	}
	return items, nil
}

func (s *Service) fetchDetail(ctx context.Context, src config.SourceConfig, category, id string) (*models.ContentDetail, error) {
	target, err := buildURL(src, "detail", map[string]string{"id": url.PathEscape(id)})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.SourceTimeout)
	defer cancel()

	var raw models.RawItem
	if src.Kind == "json" {
		body, err := s.fetcher.Fetch(ctx, target, scraper.KindJSON)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("decode detail: %w", err)
		}
	} else {
		body, err := s.fetcher.Fetch(ctx, target, scraper.KindHTML)
		if err != nil {
			return nil, err
		}
		raw = scraper.DetailFields(body, src.BaseURL)
	}
	if len(raw) == 0 {
		return nil, errors.New("empty detail page")
	}
	if _, ok := raw["id"]; !ok {
		raw["id"] = id
	}

	item, ok := normalizer.Normalize(raw, normalizer.DetectFormat([]models.RawItem{raw}))
	if !ok {
		return nil, errors.New("detail record malformed")
	}
	classified := taxonomy.Classify(item, taxonomy.Options{SourceSpecialty: src.Specialty})

	detail := &models.ContentDetail{
		ContentItem:    classified.ContentItem,
		Cast:           castFromRaw(raw),
		Similar:        []models.ContentItem{},
		StreamingLinks: linksFromRaw(raw),
	}
	if v, ok := raw["trailer"].(string); ok {
		detail.Trailer = v
	}
	if v, ok := raw["network"].(string); ok {
		detail.Network = v
	}
	if v, ok := raw["duration"].(string); ok {
		detail.Duration = v
	}
	return detail, nil
}

// castFromRaw reads the cast list JSON detail endpoints ship. Entries may be
// plain name strings or objects with name and role fields.
func castFromRaw(raw models.RawItem) []models.CastMember {
	cast := []models.CastMember{}
	list, ok := raw["cast"].([]any)
	if !ok {
		return cast
	}
	for _, entry := range list {
		switch v := entry.(type) {
		case string:
			if v != "" {
				cast = append(cast, models.CastMember{Name: v})
			}
		case map[string]any:
			member := models.CastMember{}
			if name, ok := v["name"].(string); ok {
				member.Name = name
			}
			if role, ok := v["character"].(string); ok {
				member.Character = role
			} else if role, ok := v["role"].(string); ok {
				member.Character = role
			}
			if img, ok := v["profile"].(string); ok {
				member.ProfilePath = img
			}
			if member.Name != "" {
				cast = append(cast, member)
			}
		}
	}
	return cast
}

// linksFromRaw reads episode or watch links from a JSON detail record.
func linksFromRaw(raw models.RawItem) []models.StreamingLink {
	links := []models.StreamingLink{}
	list, ok := raw["episodes"].([]any)
	if !ok {
		if list, ok = raw["links"].([]any); !ok {
			return links
		}
	}
	for _, entry := range list {
		v, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		link := models.StreamingLink{}
		if name, ok := v["name"].(string); ok {
			link.Name = name
		} else if n, ok := v["number"].(float64); ok {
			link.Name = fmt.Sprintf("Episode %d", int(n))
		}
		if u, ok := v["url"].(string); ok {
			link.URL = u
		} else if u, ok := v["link"].(string); ok {
			link.URL = u
		}
		if q, ok := v["quality"].(string); ok {
			link.Quality = q
		}
		if link.URL != "" || link.Name != "" {
			links = append(links, link)
		}
	}
	return links
}

// similarTitles selects up to eight cached category items sharing a genre
// with the subject, ordered by title similarity.
func (s *Service) similarTitles(ctx context.Context, category string, subject models.ContentItem) []models.ContentItem {
	listing := s.GetPopular(ctx, category, 1, 0)

	type scored struct {
		item  models.ContentItem
		score float64
	}
	var candidates []scored
	for _, it := range listing {
		if it.ID == subject.ID {
			continue
		}
		if !sharesGenre(subject.Genres, it.Genres) {
			continue
		}
		candidates = append(candidates, scored{
			item:  it.ContentItem,
			score: similarity.Similarity(subject.Title, it.Title),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	const maxSimilar = 8
	out := make([]models.ContentItem, 0, maxSimilar)
	for _, c := range candidates {
		out = append(out, c.item)
		if len(out) == maxSimilar {
			break
		}
	}
	return out
}

func sharesGenre(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, g := range a {
		for _, h := range b {
			if g == h {
				return true
			}
		}
	}
	return false
}

func (s *Service) cachedItems(key string) ([]models.CategorizedItem, bool) {
	data, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	var items []models.CategorizedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return items, true
}

func (s *Service) storeItems(key string, items []models.CategorizedItem, ttl time.Duration) {
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	s.cache.Set(key, data, ttl)
}

// buildURL expands an endpoint template's {page}, {query} and {id}
// placeholders against the source's base URL.
func buildURL(src config.SourceConfig, endpoint string, params map[string]string) (string, error) {
	tmpl, ok := src.Endpoints[endpoint]
	if !ok {
		return "", fmt.Errorf("source %s has no %s endpoint", src.Name, endpoint)
	}
	for k, v := range params {
		tmpl = strings.ReplaceAll(tmpl, "{"+k+"}", v)
	}
	return strings.TrimSuffix(src.BaseURL, "/") + tmpl, nil
}

// decodeItems unwraps a JSON listing body into raw items. Sources either
// return a top-level array or an object whose dataPath field holds one.
func decodeItems(body []byte, dataPath string) ([]models.RawItem, error) {
	var direct []models.RawItem
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	paths := []string{dataPath, "data", "results", "items", "list"}
	for _, p := range paths {
		if p == "" {
			continue
		}
		raw, ok := envelope[p]
		if !ok {
			continue
		}
		var items []models.RawItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode listing field %q: %w", p, err)
		}
		return items, nil
	}
	return nil, errors.New("listing response has no item array")
}

func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	return strings.ToLower(u.Host)
}

func clip(items []models.CategorizedItem, limit int) []models.CategorizedItem {
	if items == nil {
		return []models.CategorizedItem{}
	}
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
