package scraper

import (
	"bytes"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Candidate selector pools for heuristic inference. Generic on purpose:
// the detector never tries to replicate any specific site's DOM, it only
// recognizes grid-shaped listings.
var (
	gridCandidates = []string{
		".film-list", ".movie-list", ".drama-list", ".list-episode-item",
		".items", ".item-list", ".grid", ".listing", ".content-grid",
		"ul.list", ".row", "ul", ".videos",
	}
	titleCandidates = []string{
		"h1", "h2", "h3", ".title", ".name", ".film-title", ".video-title", "a[title]",
	}
	imageCandidates = []string{
		"img", ".poster img", ".cover img", ".thumb img", "picture img",
	}
	linkCandidates = []string{"a[href]", "a"}
	metaCandidates = []string{
		".meta", ".info", ".sub-title", ".details", ".status", ".ep", "span",
	}
)

const (
	minSimilarChildren = 3
	// A class must cover at least half the children to become the item
	// selector, otherwise the shared tag name is used.
	itemClassThreshold = 0.5
	sampleLimit        = 8
)

// Detector resolves the extraction schema for a host: hand-authored schemas
// first, then schemas learned earlier in this process, then heuristic
// inference over the supplied markup. Learned schemas live for the process
// lifetime and are dropped only by explicit invalidation.
type Detector struct {
	mu      sync.RWMutex
	learned map[string]ExtractionSchema
}

func NewDetector() *Detector {
	return &Detector{learned: make(map[string]ExtractionSchema)}
}

// Detect returns the extraction schema for the host. A detection failure
// yields an empty schema and ErrNoSchema; the caller treats that fetch as a
// miss rather than an abort.
func (d *Detector) Detect(markup []byte, host string) (ExtractionSchema, error) {
	host = strings.ToLower(host)

	if schema, ok := KnownSchema(host); ok {
		return schema, nil
	}

	d.mu.RLock()
	schema, ok := d.learned[host]
	d.mu.RUnlock()
	if ok {
		return schema, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return ExtractionSchema{}, fmt.Errorf("%w: parse: %v", ErrNoSchema, err)
	}

	schema = inferSchema(doc)
	if schema.Empty() {
		return ExtractionSchema{}, ErrNoSchema
	}

	d.mu.Lock()
	d.learned[host] = schema
	d.mu.Unlock()
	log.Printf("[detector] learned schema for %s: container=%q item=%q", host, schema.Container, schema.Item)

	return schema, nil
}

// Invalidate drops the learned schema for a host, forcing re-inference on
// the next page.
func (d *Detector) Invalidate(host string) {
	d.mu.Lock()
	delete(d.learned, strings.ToLower(host))
	d.mu.Unlock()
}

// InvalidateAll clears every learned schema.
func (d *Detector) InvalidateAll() {
	d.mu.Lock()
	d.learned = make(map[string]ExtractionSchema)
	d.mu.Unlock()
}

// inferSchema walks the generic grid candidates and accepts the first
// container whose children look like repeated content cards.
func inferSchema(doc *goquery.Document) ExtractionSchema {
	var schema ExtractionSchema

	for _, containerSel := range gridCandidates {
		doc.Find(containerSel).EachWithBreak(func(_ int, container *goquery.Selection) bool {
			item := electItemSelector(container)
			if item == "" {
				return true
			}
			items := container.Find(item)
			if items.Length() < minSimilarChildren {
				return true
			}

			schema = ExtractionSchema{
				Container:  containerSel,
				Item:       item,
				Title:      electSubSelector(items, titleCandidates),
				Image:      electSubSelector(items, imageCandidates),
				Link:       electSubSelector(items, linkCandidates),
				Meta:       electSubSelector(items, metaCandidates),
				Pagination: electPagination(doc),
			}
			return false
		})
		if !schema.Empty() {
			return schema
		}
	}
	return ExtractionSchema{}
}

// electItemSelector decides how the container's repeated children are
// addressed. Children qualify when at least minSimilarChildren of them share
// a class or a structural shape and contain an image or link.
type childGroup struct {
	count    int
	hasMedia int
}

func electItemSelector(container *goquery.Selection) string {
	classCounts := make(map[string]*childGroup)
	shapeCounts := make(map[string]*childGroup)
	tagCounts := make(map[string]*childGroup)
	total := 0

	container.Children().Each(func(_ int, child *goquery.Selection) {
		total++
		media := child.Find("img, a").Length() > 0

		bump := func(m map[string]*childGroup, key string) {
			g := m[key]
			if g == nil {
				g = &childGroup{}
				m[key] = g
			}
			g.count++
			if media {
				g.hasMedia++
			}
		}

		if class, ok := child.Attr("class"); ok {
			for _, c := range strings.Fields(class) {
				bump(classCounts, c)
			}
		}
		if len(child.Nodes) > 0 {
			bump(tagCounts, child.Nodes[0].Data)
			bump(shapeCounts, shapeSignature(child.Nodes[0]))
		}
	})

	if total == 0 {
		return ""
	}

	// Prefer the most frequent class shared by enough children.
	if class, g := topGroup(classCounts); g != nil &&
		g.count >= minSimilarChildren &&
		g.hasMedia >= minSimilarChildren &&
		float64(g.count) >= itemClassThreshold*float64(total) {
		return "." + class
	}

	// Fall back to a shared tag when the children repeat the same shape.
	if _, g := topGroup(shapeCounts); g != nil && g.count >= minSimilarChildren && g.hasMedia >= minSimilarChildren {
		if tag, tg := topGroup(tagCounts); tg != nil && tg.count >= minSimilarChildren {
			return tag
		}
	}
	return ""
}

func topGroup(m map[string]*childGroup) (string, *childGroup) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic election independent of map order.
	sort.Strings(keys)

	var bestKey string
	var best *childGroup
	bestCount := -1
	for _, k := range keys {
		if m[k].count > bestCount {
			bestKey, best, bestCount = k, m[k], m[k].count
		}
	}
	return bestKey, best
}

// shapeSignature summarizes an element's first-level structure: its tag plus
// the tags of its element children. Two cards with the same signature are
// treated as repetitions of one template.
func shapeSignature(n *html.Node) string {
	var sb strings.Builder
	sb.WriteString(n.Data)
	sb.WriteByte(':')
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			sb.WriteString(c.Data)
			sb.WriteByte(',')
		}
	}
	return sb.String()
}

// electSubSelector picks the candidate selector matched by the most sampled
// items. A candidate must hit on a majority of the sample to win.
func electSubSelector(items *goquery.Selection, candidates []string) string {
	sampled := items.Length()
	if sampled > sampleLimit {
		sampled = sampleLimit
	}
	if sampled == 0 {
		return ""
	}

	best := ""
	bestHits := 0
	for _, cand := range candidates {
		hits := 0
		items.EachWithBreak(func(i int, item *goquery.Selection) bool {
			if i >= sampled {
				return false
			}
			if item.Find(cand).Length() > 0 {
				hits++
			}
			return true
		})
		if hits > bestHits {
			best, bestHits = cand, hits
		}
	}
	if bestHits*2 < sampled {
		return ""
	}
	return best
}

func electPagination(doc *goquery.Document) string {
	for _, cand := range []string{".pagination a", ".nav-links a", ".page-numbers", "a[rel='next']"} {
		if doc.Find(cand).Length() > 0 {
			return cand
		}
	}
	return ""
}
