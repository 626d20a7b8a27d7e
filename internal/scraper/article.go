package scraper

import (
	"context"
	"strings"

	"github.com/markusmobius/go-trafilatura"
	"github.com/ternarybob/trendin/internal/models"
)

// ArticleScraper extracts article body text with trafilatura, producing a
// single "title. body" text piece.
type ArticleScraper struct {
	base
}

func (s *ArticleScraper) Kind() string { return KindArticle }

func (s *ArticleScraper) Scrape(ctx context.Context, pageURL string) (*models.CrawledPage, error) {
	rawHTML, doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	page := s.page(pageURL, KindArticle, rawHTML, doc)

	title := strings.TrimSpace(doc.Find("title").First().Text())
	body := ""
	result, err := trafilatura.Extract(strings.NewReader(rawHTML), trafilatura.Options{})
	if err != nil {
		s.logger.Debug().Err(err).Str("url", pageURL).Msg("Article extraction failed")
	} else if result != nil {
		if result.Metadata.Title != "" {
			title = result.Metadata.Title
		}
		body = normalizeSpace(result.ContentText)
	}

	page.Title = title
	page.Text = []string{title + ". " + body}
	return page, nil
}
