package scraper

import (
	"context"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/ternarybob/trendin/internal/models"
)

// ReadabilityScraper extracts the main article content of a page. This is
// the default scraper: one text piece, no highlights.
type ReadabilityScraper struct {
	base
}

func (s *ReadabilityScraper) Kind() string { return KindReadability }

func (s *ReadabilityScraper) Scrape(ctx context.Context, pageURL string) (*models.CrawledPage, error) {
	rawHTML, doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	page := s.page(pageURL, KindReadability, rawHTML, doc)

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", pageURL).Msg("Readability extraction failed, falling back to title only")
		page.Title = strings.TrimSpace(doc.Find("title").First().Text())
		page.Text = []string{page.Title}
		return page, nil
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	page.Title = title
	page.Text = []string{normalizeSpace(article.TextContent)}
	return page, nil
}
