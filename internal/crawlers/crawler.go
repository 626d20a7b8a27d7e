// Package crawlers runs the per-crawler harvesting loop: pick the next URL,
// scrape it, and feed newly discovered links back into the frontier.
package crawlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/common"
	"github.com/ternarybob/trendin/internal/interfaces"
	"github.com/ternarybob/trendin/internal/models"
	"github.com/ternarybob/trendin/internal/patterns"
	"github.com/ternarybob/trendin/internal/scraper"
)

// Instance is one live crawler: a crawler definition bound to its scraper,
// pattern set and URL frontier.
type Instance struct {
	def      *models.Crawler
	scraper  scraper.Scraper
	fetcher  *scraper.Fetcher
	patterns *patterns.Set
	frontier *Frontier
	pages    interfaces.PageStorage
	crawlers interfaces.CrawlerStorage
	logger   arbor.ILogger
	now      func() time.Time

	mu             sync.Mutex
	startCrawledAt time.Time
	paused         bool
}

// New builds a crawler instance. The pattern set governs which discovered
// links enter the frontier.
func New(def *models.Crawler, factory *scraper.Factory, set *patterns.Set, pages interfaces.PageStorage, crawlers interfaces.CrawlerStorage, logger arbor.ILogger) (*Instance, error) {
	if !models.ValidKind(def.CrawlerKind) {
		return nil, fmt.Errorf("unknown crawler kind %q for crawler %s", def.CrawlerKind, def.ID)
	}
	s, err := factory.Get(def.ScraperKind)
	if err != nil {
		return nil, fmt.Errorf("failed to build scraper for crawler %s: %w", def.ID, err)
	}
	return &Instance{
		def:      def,
		scraper:  s,
		fetcher:  factory.Fetcher(),
		patterns: set,
		frontier: NewFrontier(),
		pages:    pages,
		crawlers: crawlers,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// WithNow replaces the clock.
func (i *Instance) WithNow(now func() time.Time) *Instance {
	i.now = now
	return i
}

func (i *Instance) ID() string                  { return i.def.ID }
func (i *Instance) Definition() *models.Crawler { return i.def }
func (i *Instance) Frontier() *Frontier         { return i.frontier }
func (i *Instance) Patterns() *patterns.Set     { return i.patterns }

// Paused reports whether the instance has parked itself until its next
// start-URL window.
func (i *Instance) Paused() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.paused
}

func (i *Instance) Pause() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.paused = true
}

func (i *Instance) Resume() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.paused = false
}

// CanResume reports whether a paused crawler's start-URL window has come
// around again. The check only peeks; the next CrawlPage claims the window,
// so a resumed crawler still fires its start URL.
func (i *Instance) CanResume() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.startCrawledAt.IsZero() {
		return true
	}
	expire := i.startCrawledAt.Add(time.Duration(i.def.Frequency) * time.Second)
	return !expire.After(i.now().UTC())
}

// canCrawlStartPage enforces the crawler's frequency. The first call always
// claims the window; later calls wait out the configured interval.
func (i *Instance) canCrawlStartPage() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now().UTC()
	if i.startCrawledAt.IsZero() {
		i.startCrawledAt = now
		return true
	}
	expire := i.startCrawledAt.Add(time.Duration(i.def.Frequency) * time.Second)
	if expire.After(now) {
		return false
	}
	i.startCrawledAt = now
	return true
}

// nextURL pops the frontier, regenerating seeds when it runs dry. URLs with
// a fresh crawl record are skipped; the start URL always passes so cadence
// handling can see it.
func (i *Instance) nextURL(ctx context.Context) (string, error) {
	for {
		url := i.frontier.Pop()
		if url == "" {
			var err error
			url, err = i.generate(ctx)
			if err != nil || url == "" {
				return "", err
			}
		}
		if url != i.def.StartURL {
			cached, err := i.pages.GetCrawled(ctx, url)
			if err != nil {
				return "", err
			}
			if cached != nil {
				i.logger.Debug().Str("url", url).Msg("Skipping recently crawled url")
				continue
			}
		}
		return url, nil
	}
}

// generate produces seed URLs when the frontier is empty.
func (i *Instance) generate(ctx context.Context) (string, error) {
	switch i.def.CrawlerKind {
	case models.CrawlerKindRSS:
		return i.generateFromFeed(ctx)
	default:
		// Links and sitemap crawlers restart from the start URL.
		return i.def.StartURL, nil
	}
}

// CrawlPage advances the crawler by one page. A nil page with a nil error
// means there was nothing to do this turn (queue empty, cadence pause, or a
// non-HTML URL).
func (i *Instance) CrawlPage(ctx context.Context) (*models.CrawledPage, error) {
	url, err := i.nextURL(ctx)
	if err != nil || url == "" {
		return nil, err
	}

	// The RSS kind checks cadence while generating from the feed.
	if url == i.def.StartURL && i.def.CrawlerKind != models.CrawlerKindRSS {
		if !i.canCrawlStartPage() {
			i.logger.Debug().Str("crawler", i.def.ID).Msg("Start url not due yet, pausing")
			i.Pause()
			return nil, nil
		}
	}

	if !i.fetcher.IsHTML(ctx, url) {
		i.logger.Debug().Str("url", url).Msg("Skipping non-html url")
		return nil, nil
	}

	page, err := i.scraper.Scrape(ctx, url)
	if err != nil {
		i.logger.Warn().Err(err).Str("url", url).Msg("Scrape failed")
		return nil, nil
	}
	page.Category = i.def.Category
	page.ExpiresAt = i.now().UTC().Add(time.Duration(i.def.MaxAge) * time.Second)
	if err := i.pages.SaveCrawled(ctx, page); err != nil {
		return nil, fmt.Errorf("failed to save crawled page %s: %w", url, err)
	}

	i.processLinks(page)

	if err := i.crawlers.IncrementCrawled(ctx, i.def.ID); err != nil {
		i.logger.Warn().Err(err).Str("crawler", i.def.ID).Msg("Failed to bump crawled count")
	}
	return page, nil
}

// processLinks queues the page's pattern-matching links. RSS crawlers take
// their URLs from the feed alone.
func (i *Instance) processLinks(page *models.CrawledPage) {
	if i.def.CrawlerKind == models.CrawlerKindRSS {
		return
	}
	for _, link := range page.Links {
		url, ok := patterns.Validate(link)
		if !ok || !i.patterns.MatchAny(url) {
			continue
		}
		// The start URL is cadence-governed, never frontier-queued.
		if common.SameDocument(url, i.def.StartURL) {
			continue
		}
		if i.frontier.Add(url) {
			i.logger.Debug().Str("url", url).Msg("Queued url")
		}
	}
}
