package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/models"
)

// base carries the machinery every scraper shares: download, link
// collection, metadata and date parsing. Kind-specific scrapers only
// provide text extraction.
type base struct {
	fetcher *Fetcher
	logger  arbor.ILogger
}

// fetch downloads the page and parses it once for the shared passes.
func (b *base) fetch(ctx context.Context, pageURL string) (string, *goquery.Document, error) {
	html, err := b.fetcher.Get(ctx, pageURL)
	if err != nil {
		return "", nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", nil, err
	}
	return html, doc, nil
}

// page assembles the shared parts of a crawl record.
func (b *base) page(pageURL, parser, html string, doc *goquery.Document) *models.CrawledPage {
	return &models.CrawledPage{
		URL:       pageURL,
		Parser:    parser,
		HTML:      html,
		Links:     ExtractLinks(pageURL, html, doc),
		FetchedAt: time.Now(),
		Date:      PageDate(html, doc, time.Now()),
		Metadata:  extractMeta(doc),
	}
}

// extractMeta collects page metadata from meta tags. The key is the first
// of name, http-equiv, property or itemprop; keywords values are split on
// commas.
func extractMeta(doc *goquery.Document) map[string][]string {
	result := map[string][]string{}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key, _ := s.Attr("name")
		if key == "" {
			key, _ = s.Attr("http-equiv")
		}
		if key == "" {
			key, _ = s.Attr("property")
		}
		if key == "" {
			key, _ = s.Attr("itemprop")
		}
		content, _ := s.Attr("content")
		if key == "" || content == "" {
			return
		}

		key = strings.ReplaceAll(strings.ToLower(key), ".", "_")
		if key == "keywords" {
			for _, kw := range strings.Split(content, ",") {
				kw = strings.TrimSpace(kw)
				if kw != "" {
					result[key] = append(result[key], kw)
				}
			}
			return
		}
		result[key] = append(result[key], content)
	})
	return result
}
