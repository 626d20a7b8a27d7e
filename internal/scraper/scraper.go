// Package scraper turns fetched pages into structured crawl records. Each
// scraper kind extracts text differently; link, date and metadata handling
// are shared.
package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/models"
)

var (
	// ErrFetch reports a page that could not be downloaded.
	ErrFetch = errors.New("page fetch failed")
	// ErrUnknownScraper reports a scraper kind the factory does not know.
	ErrUnknownScraper = errors.New("unknown scraper kind")
)

// Scraper kinds. Readability is the default.
const (
	KindReadability = "readability"
	KindSoup        = "soup"
	KindArticle     = "article"

	DefaultKind = KindReadability
)

// A Scraper downloads one URL and produces a crawl record.
type Scraper interface {
	Kind() string
	Scrape(ctx context.Context, pageURL string) (*models.CrawledPage, error)
}

// Factory builds scrapers over a shared fetcher.
type Factory struct {
	fetcher *Fetcher
	logger  arbor.ILogger
}

// NewFactory creates a scraper factory.
func NewFactory(fetcher *Fetcher, logger arbor.ILogger) *Factory {
	return &Factory{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Get returns the scraper for a kind. An empty kind yields the default
// scraper; an unknown kind is an error.
func (f *Factory) Get(kind string) (Scraper, error) {
	switch kind {
	case "":
		kind = DefaultKind
	case KindReadability, KindSoup, KindArticle:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScraper, kind)
	}

	base := base{fetcher: f.fetcher, logger: f.logger}
	switch kind {
	case KindSoup:
		return &SoupScraper{base: base}, nil
	case KindArticle:
		return &ArticleScraper{base: base}, nil
	default:
		return &ReadabilityScraper{base: base}, nil
	}
}

// Fetcher returns the factory's shared fetcher.
func (f *Factory) Fetcher() *Fetcher {
	return f.fetcher
}
