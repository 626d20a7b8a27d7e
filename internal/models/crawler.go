package models

import "time"

// RunState is the runtime state of a crawler instance, distinct from the
// operator-controlled Status switch.
type RunState int

const (
	RunStateStopped RunState = 0
	RunStateRunning RunState = 1
	RunStatePaused  RunState = 2
)

// Crawler kinds. Sitemap crawling currently behaves like the links kind
// with the start URL as its only generated seed.
const (
	CrawlerKindLinks   = "links"
	CrawlerKindRSS     = "rss"
	CrawlerKindSitemap = "sitemap"
)

// Default cadence settings applied when a crawler is created without them.
const (
	DefaultMaxAge    = 31536000 // one year, seconds
	DefaultFrequency = 3600     // seconds between start-URL fetches
)

// Crawler is one harvesting unit of a site. A site may run several crawlers
// with different start URLs, scraper kinds and pattern sets.
type Crawler struct {
	ID               string    `json:"id" badgerhold:"key"`
	SiteID           string    `json:"site_id" badgerhold:"index"`
	Name             string    `json:"name"`
	Status           Status    `json:"status"`
	RunState         RunState  `json:"run_state"`
	Category         string    `json:"category"`
	ScraperKind      string    `json:"scraper"`
	ExtractorKind    string    `json:"extractor"`
	CrawlerKind      string    `json:"crawler_kind"`
	StartURL         string    `json:"start_url"`
	MaxAge           int       `json:"max_age"`   // seconds a crawled page stays fresh
	Frequency        int       `json:"frequency"` // seconds between start-URL visits
	CrawledPages     int       `json:"crawled_pages"`
	DefaultPatternID string    `json:"default_pattern_id"`
	DateCreated      time.Time `json:"date_created"`
	DateUpdated      time.Time `json:"date_updated"`
}

// ValidKind reports whether k names a known crawler kind.
func ValidKind(k string) bool {
	switch k {
	case CrawlerKindLinks, CrawlerKindRSS, CrawlerKindSitemap:
		return true
	}
	return false
}
