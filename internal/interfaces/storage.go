package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/trendin/internal/models"
)

// SiteStorage persists sites.
type SiteStorage interface {
	SaveSite(ctx context.Context, site *models.Site) error
	GetSite(ctx context.Context, id string) (*models.Site, error)
	GetSiteByHostname(ctx context.Context, hostname string) (*models.Site, error)
	ListSites(ctx context.Context, status *models.Status) ([]*models.Site, error)
	// DeleteSite cascades to the site's crawlers and their patterns.
	DeleteSite(ctx context.Context, id string) error
}

// CrawlerStorage persists crawler definitions.
type CrawlerStorage interface {
	SaveCrawler(ctx context.Context, crawler *models.Crawler) error
	GetCrawler(ctx context.Context, id string) (*models.Crawler, error)
	ListCrawlers(ctx context.Context) ([]*models.Crawler, error)
	ListCrawlersBySite(ctx context.Context, siteID string) ([]*models.Crawler, error)
	// DeleteCrawler cascades to the crawler's URL patterns.
	DeleteCrawler(ctx context.Context, id string) error
	SetRunState(ctx context.Context, id string, state models.RunState) error
	IncrementCrawled(ctx context.Context, id string) error
}

// PatternStorage persists URL patterns.
type PatternStorage interface {
	SavePattern(ctx context.Context, pattern *models.URLPattern) error
	GetPattern(ctx context.Context, id string) (*models.URLPattern, error)
	ListPatternsByCrawler(ctx context.Context, crawlerID string) ([]*models.URLPattern, error)
	ListPatternsByHostname(ctx context.Context, hostname string) ([]*models.URLPattern, error)
	DeletePattern(ctx context.Context, id string) error
	DeletePatternsByCrawler(ctx context.Context, crawlerID string) error
}

// PageStorage persists raw crawled pages (TTL-governed) and extracted pages
// (durable, upserted by URL).
type PageStorage interface {
	SaveCrawled(ctx context.Context, page *models.CrawledPage) error
	// GetCrawled returns nil when no record exists or the record has expired.
	GetCrawled(ctx context.Context, url string) (*models.CrawledPage, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	// TouchCategoryExpiry rewrites ExpiresAt for every crawled page of a
	// category, applied when a crawler's max-age changes.
	TouchCategoryExpiry(ctx context.Context, category string, expiresAt time.Time) error

	SaveExtracted(ctx context.Context, page *models.ExtractedPage) error
	GetExtracted(ctx context.Context, url string) (*models.ExtractedPage, error)
	ListExtractedBySite(ctx context.Context, site string) ([]*models.ExtractedPage, error)
	CountExtracted(ctx context.Context) (int, error)
	CountExtractedBySite(ctx context.Context, site string) (int, error)
	DeleteExtracted(ctx context.Context, url string) error
}

// AggregateStorage persists the per-site entity and candidate aggregates.
// The two sets are structurally identical but kept apart.
type AggregateStorage interface {
	GetEntity(ctx context.Context, site, name string) (*models.SiteAggregate, error)
	GetCandidate(ctx context.Context, site, name string) (*models.SiteAggregate, error)
	// Upserts are unordered; within one batch, records for the same
	// (site, name) collapse to the last write.
	UpsertEntities(ctx context.Context, records []*models.SiteAggregate) error
	UpsertCandidates(ctx context.Context, records []*models.SiteAggregate) error
	TopEntities(ctx context.Context, site, orderBy string, ascending bool, minCount, limit int) ([]*models.SiteAggregate, error)
	TopCandidates(ctx context.Context, site string, limit int) ([]*models.SiteAggregate, error)
}

// CatalogStorage is the entity catalog keyed by folded name.
type CatalogStorage interface {
	SaveEntry(ctx context.Context, entry *models.CatalogEntry) error
	// LookupAndTouch finds a live entry by folded name and increments its
	// occurrence counter. Returns nil for absent or disabled entries.
	LookupAndTouch(ctx context.Context, foldedName string) (*models.CatalogEntry, error)
	DeleteEntry(ctx context.Context, id string) error
}

// StorageManager aggregates the per-concern storages over one database.
type StorageManager interface {
	SiteStorage() SiteStorage
	CrawlerStorage() CrawlerStorage
	PatternStorage() PatternStorage
	PageStorage() PageStorage
	AggregateStorage() AggregateStorage
	CatalogStorage() CatalogStorage
	Close() error
}
