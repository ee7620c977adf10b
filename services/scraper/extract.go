package scraper

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dramastream/models"
)

// Extract pulls raw items from a listing page using the given schema.
// Relative image and link URLs are resolved against baseURL. Returning zero
// items is not an error here; the aggregator decides what an empty batch
// means.
func Extract(markup []byte, schema ExtractionSchema, baseURL string) ([]models.RawItem, error) {
	if schema.Empty() {
		return nil, ErrNoSchema
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(baseURL)

	var items []models.RawItem
	doc.Find(schema.Container).Find(schema.Item).Each(func(_ int, sel *goquery.Selection) {
		raw := models.RawItem{}

		if schema.Title != "" {
			if title := cleanText(sel.Find(schema.Title).First().Text()); title != "" {
				raw["title"] = title
			} else if t, ok := sel.Find(schema.Title).First().Attr("title"); ok {
				raw["title"] = cleanText(t)
			}
		}
		if schema.Image != "" {
			img := sel.Find(schema.Image).First()
			src, ok := img.Attr("data-src")
			if !ok || src == "" {
				src, _ = img.Attr("src")
			}
			if src != "" {
				raw["poster"] = resolveURL(base, src)
			}
		}
		if schema.Link != "" {
			if href, ok := sel.Find(schema.Link).First().Attr("href"); ok && href != "" {
				link := resolveURL(base, href)
				raw["link"] = link
				if slug := slugFromLink(link); slug != "" {
					raw["id"] = slug
				}
			}
		}
		if schema.Meta != "" {
			if meta := cleanText(sel.Find(schema.Meta).First().Text()); meta != "" {
				raw["meta"] = meta
			}
		}

		if len(raw) > 0 {
			items = append(items, raw)
		}
	})

	return items, nil
}

// DetailFields pulls detail-page fields that listing schemas do not cover.
// It leans on meta tags (og:title, og:image, description) because those are
// far more stable across layout changes than body markup.
func DetailFields(markup []byte, baseURL string) models.RawItem {
	raw := models.RawItem{}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return raw
	}
	base, _ := url.Parse(baseURL)

	if v, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && v != "" {
		raw["title"] = cleanText(v)
	} else if t := cleanText(doc.Find("title").First().Text()); t != "" {
		raw["title"] = t
	}
	if v, ok := doc.Find("meta[property='og:image']").Attr("content"); ok && v != "" {
		raw["poster"] = resolveURL(base, v)
	}
	if v, ok := doc.Find("meta[name='description']").Attr("content"); ok && v != "" {
		raw["overview"] = cleanText(v)
	} else if v, ok := doc.Find("meta[property='og:description']").Attr("content"); ok && v != "" {
		raw["overview"] = cleanText(v)
	}

	// Trailer embeds, when present, sit in an iframe pointing at a player.
	doc.Find("iframe[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		if strings.Contains(src, "youtube") || strings.Contains(src, "player") {
			raw["trailer"] = resolveURL(base, src)
			return false
		}
		return true
	})

	return raw
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolveURL(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// slugFromLink derives a stable item identifier from the last path segment
// of its detail link.
func slugFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	slug := path.Base(strings.TrimSuffix(u.Path, "/"))
	if slug == "." || slug == "/" {
		return ""
	}
	return strings.TrimSuffix(slug, path.Ext(slug))
}
