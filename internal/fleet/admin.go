package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/common"
	"github.com/ternarybob/trendin/internal/extractor"
	"github.com/ternarybob/trendin/internal/interfaces"
	"github.com/ternarybob/trendin/internal/models"
	"github.com/ternarybob/trendin/internal/patterns"
	"github.com/ternarybob/trendin/internal/scraper"
)

// ErrSiteNotFound reports an admin operation against an unknown site.
var ErrSiteNotFound = errors.New("site not found")

// ErrCrawlerNotFound reports an admin operation against an unknown crawler.
var ErrCrawlerNotFound = errors.New("crawler not found")

// Admin carries the management operations: sites, crawlers, patterns, and
// ad-hoc URL extraction.
type Admin struct {
	storage    interfaces.StorageManager
	matcher    *patterns.Matcher
	factory    *scraper.Factory
	extractor  *extractor.Service
	aggregator *extractor.Aggregator
	validate   *validator.Validate
	logger     arbor.ILogger
}

func NewAdmin(storage interfaces.StorageManager, factory *scraper.Factory, ext *extractor.Service, agg *extractor.Aggregator, logger arbor.ILogger) *Admin {
	return &Admin{
		storage:    storage,
		matcher:    patterns.NewMatcher(storage.PatternStorage(), storage.CrawlerStorage(), logger),
		factory:    factory,
		extractor:  ext,
		aggregator: agg,
		validate:   validator.New(),
		logger:     logger,
	}
}

// CreateSiteRequest describes a new publisher site.
type CreateSiteRequest struct {
	Name          string `validate:"required,max=100"`
	PublisherName string `validate:"required,max=100"`
	URL           string `validate:"required,url,max=100"`
	Category      string `validate:"required,max=100"`
}

// CreateSite registers a site, enabled by default.
func (a *Admin) CreateSite(ctx context.Context, req *CreateSiteRequest) (*models.Site, error) {
	if err := a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid create-site request: %w", err)
	}
	site := &models.Site{
		ID:            common.NewSiteID(),
		Name:          req.Name,
		PublisherName: req.PublisherName,
		URL:           req.URL,
		Category:      req.Category,
		Status:        models.StatusEnabled,
	}
	if err := a.storage.SiteStorage().SaveSite(ctx, site); err != nil {
		return nil, fmt.Errorf("failed to save site: %w", err)
	}
	a.logger.Info().Str("site", site.ID).Str("hostname", site.Hostname).Msg("Site created")
	return site, nil
}

// SetSiteStatus flips a site's enabled switch. The fleet pulse picks the
// change up and starts or stops the site's crawlers.
func (a *Admin) SetSiteStatus(ctx context.Context, siteID string, status models.Status) error {
	site, err := a.storage.SiteStorage().GetSite(ctx, siteID)
	if err != nil {
		return err
	}
	if site == nil {
		return fmt.Errorf("%w: %s", ErrSiteNotFound, siteID)
	}
	site.Status = status
	return a.storage.SiteStorage().SaveSite(ctx, site)
}

// DeleteSite removes a site with its crawlers and patterns.
func (a *Admin) DeleteSite(ctx context.Context, siteID string) error {
	return a.storage.SiteStorage().DeleteSite(ctx, siteID)
}

// AddCrawlerRequest describes a new crawler plus its initial URL pattern.
type AddCrawlerRequest struct {
	SiteID              string `validate:"required"`
	Name                string `validate:"required,max=100"`
	CrawlerKind         string `validate:"omitempty,oneof=links rss sitemap"`
	ScraperKind         string `validate:"omitempty,oneof=readability soup article"`
	StartURL            string `validate:"omitempty,url"`
	MaxAge              int    `validate:"gte=0"`
	Frequency           int    `validate:"gte=0"`
	Pattern             string `validate:"required"`
	HarvesterCategories []string
	ExcludeWords        []string
	AdScript            string
}

// AddCrawler creates a crawler under a site. The initial pattern becomes
// the crawler's default pattern. Omitted fields inherit from the site.
func (a *Admin) AddCrawler(ctx context.Context, req *AddCrawlerRequest) (*models.Crawler, error) {
	if err := a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid add-crawler request: %w", err)
	}
	if _, err := patterns.Compile(req.Pattern); err != nil {
		return nil, err
	}
	site, err := a.storage.SiteStorage().GetSite(ctx, req.SiteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, req.SiteID)
	}

	kind := req.CrawlerKind
	if kind == "" {
		kind = models.CrawlerKindLinks
	}
	startURL := req.StartURL
	if startURL == "" {
		startURL = site.URL
	}
	crawler := &models.Crawler{
		ID:            common.NewCrawlerID(),
		SiteID:        site.ID,
		Name:          req.Name,
		Status:        site.Status,
		Category:      site.Category,
		ScraperKind:   req.ScraperKind,
		ExtractorKind: extractor.KindEntities,
		CrawlerKind:   kind,
		StartURL:      startURL,
		MaxAge:        req.MaxAge,
		Frequency:     req.Frequency,
	}
	if err := a.storage.CrawlerStorage().SaveCrawler(ctx, crawler); err != nil {
		return nil, fmt.Errorf("failed to save crawler: %w", err)
	}

	_, err = a.SavePattern(ctx, &SavePatternRequest{
		CrawlerID:           crawler.ID,
		Pattern:             req.Pattern,
		HarvesterCategories: req.HarvesterCategories,
		ExcludeWords:        req.ExcludeWords,
		AdScript:            req.AdScript,
		Default:             true,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info().Str("crawler", crawler.ID).Str("site", site.ID).Msg("Crawler added")
	return a.storage.CrawlerStorage().GetCrawler(ctx, crawler.ID)
}

// UpdateCrawler saves crawler changes. Shrinking or growing the max-age
// rewrites the freshness horizon of the category's crawled pages.
func (a *Admin) UpdateCrawler(ctx context.Context, crawler *models.Crawler) error {
	old, err := a.storage.CrawlerStorage().GetCrawler(ctx, crawler.ID)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("%w: %s", ErrCrawlerNotFound, crawler.ID)
	}
	if err := a.storage.CrawlerStorage().SaveCrawler(ctx, crawler); err != nil {
		return err
	}
	if old.MaxAge != crawler.MaxAge {
		expiresAt := time.Now().UTC().Add(time.Duration(crawler.MaxAge) * time.Second)
		if err := a.storage.PageStorage().TouchCategoryExpiry(ctx, crawler.Category, expiresAt); err != nil {
			return fmt.Errorf("failed to propagate max-age change: %w", err)
		}
	}
	return nil
}

// DeleteCrawler removes a crawler and its patterns.
func (a *Admin) DeleteCrawler(ctx context.Context, id string) error {
	return a.storage.CrawlerStorage().DeleteCrawler(ctx, id)
}

// SavePatternRequest creates or updates a URL pattern.
type SavePatternRequest struct {
	ID                  string
	CrawlerID           string `validate:"required"`
	Pattern             string `validate:"required"`
	HarvesterCategories []string
	ExcludeWords        []string
	AdScript            string
	Default             bool
}

// SavePattern stores a pattern under its crawler's site hostname. The
// pattern becomes the crawler's default when asked to, or when the crawler
// has none yet.
func (a *Admin) SavePattern(ctx context.Context, req *SavePatternRequest) (*models.URLPattern, error) {
	if err := a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid save-pattern request: %w", err)
	}
	if _, err := patterns.Compile(req.Pattern); err != nil {
		return nil, err
	}
	crawler, err := a.storage.CrawlerStorage().GetCrawler(ctx, req.CrawlerID)
	if err != nil {
		return nil, err
	}
	if crawler == nil {
		return nil, fmt.Errorf("%w: %s", ErrCrawlerNotFound, req.CrawlerID)
	}
	site, err := a.storage.SiteStorage().GetSite(ctx, crawler.SiteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, crawler.SiteID)
	}

	pattern := &models.URLPattern{
		ID:                  req.ID,
		CrawlerID:           crawler.ID,
		Hostname:            site.Hostname,
		Pattern:             req.Pattern,
		HarvesterCategories: req.HarvesterCategories,
		ExcludeWords:        req.ExcludeWords,
		AdScript:            req.AdScript,
	}
	if pattern.ID == "" {
		pattern.ID = common.NewPatternID()
	}
	if err := a.storage.PatternStorage().SavePattern(ctx, pattern); err != nil {
		return nil, fmt.Errorf("failed to save pattern: %w", err)
	}

	if req.Default || crawler.DefaultPatternID == "" {
		crawler.DefaultPatternID = pattern.ID
		if err := a.storage.CrawlerStorage().SaveCrawler(ctx, crawler); err != nil {
			return nil, fmt.Errorf("failed to promote default pattern: %w", err)
		}
	}
	return pattern, nil
}

// AddCatalogEntryRequest describes a new curated entity.
type AddCatalogEntryRequest struct {
	Name     string `validate:"required,max=100"`
	Category string `validate:"required,max=100"`
	Source   string
}

// AddCatalogEntry registers a curated entity in the catalog. Lookups hit
// the new entry once the extractor caches cycle.
func (a *Admin) AddCatalogEntry(ctx context.Context, req *AddCatalogEntryRequest) (*models.CatalogEntry, error) {
	if err := a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid add-catalog-entry request: %w", err)
	}
	entry := &models.CatalogEntry{
		ID:         common.NewEntryID(),
		Name:       req.Name,
		FoldedName: models.FoldName(req.Name),
		Category:   req.Category,
		Source:     req.Source,
	}
	if err := a.storage.CatalogStorage().SaveEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save catalog entry: %w", err)
	}
	a.extractor.Dictionary().Reset()
	return entry, nil
}

// DeleteCatalogEntry removes a curated entity from the catalog.
func (a *Admin) DeleteCatalogEntry(ctx context.Context, id string) error {
	if err := a.storage.CatalogStorage().DeleteEntry(ctx, id); err != nil {
		return err
	}
	a.extractor.Dictionary().Reset()
	return nil
}

// MatchPattern resolves a URL against every stored pattern.
func (a *Admin) MatchPattern(ctx context.Context, url string) (*models.PatternProfile, error) {
	return a.matcher.Match(ctx, url)
}

// ExtractOptions controls ad-hoc URL extraction.
type ExtractOptions struct {
	ScraperKind      string
	Save             bool
	KeepCandidates   bool
	DBLookup         bool
	MustMatchPattern bool
}

// ExtractURL scrapes and extracts one URL outside any crawl loop. With
// DBLookup a stored extraction is served as-is unless its record shape is
// stale, in which case it is dropped and rebuilt. Saving persists the raw
// scrape alongside the extraction and folds the result into the site's
// aggregates.
func (a *Admin) ExtractURL(ctx context.Context, url string, opts ExtractOptions) (*models.ExtractedPage, *models.PatternProfile, error) {
	var profile *models.PatternProfile
	if opts.MustMatchPattern {
		var err error
		profile, err = a.matcher.Match(ctx, url)
		if err != nil {
			return nil, nil, err
		}
	}

	if opts.DBLookup {
		stored, err := a.storage.PageStorage().GetExtracted(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		if stored != nil {
			if validExtract(stored) {
				return stored, profile, nil
			}
			a.logger.Info().Str("url", url).Msg("Dropping stale extracted record")
			if err := a.storage.PageStorage().DeleteExtracted(ctx, url); err != nil {
				return nil, nil, err
			}
		}
	}

	// A saved extraction carries its matched pattern even when matching was
	// not demanded.
	if profile == nil && opts.Save {
		p, err := a.matcher.Match(ctx, url)
		if err != nil && !errors.Is(err, patterns.ErrNoMatchedPattern) {
			return nil, nil, err
		}
		profile = p
	}

	s, err := a.factory.Get(opts.ScraperKind)
	if err != nil {
		return nil, nil, err
	}
	page, err := s.Scrape(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	if opts.Save {
		stored, err := a.storage.PageStorage().GetCrawled(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		if stored == nil {
			page.ExpiresAt = time.Now().UTC().Add(time.Duration(models.DefaultMaxAge) * time.Second)
			if err := a.storage.PageStorage().SaveCrawled(ctx, page); err != nil {
				return nil, nil, fmt.Errorf("failed to save crawled page: %w", err)
			}
		}
	}
	extract, err := a.extractor.Extract(ctx, page)
	if err != nil {
		return nil, nil, err
	}
	if !opts.KeepCandidates {
		extract.Candidates = nil
	}
	if profile != nil {
		extract.URLPatternID = profile.PatternID
		extract.Categories = profile.Categories
		extract.Exclude = profile.Exclude
	}
	if opts.Save {
		if err := a.storage.PageStorage().SaveExtracted(ctx, extract); err != nil {
			return nil, nil, fmt.Errorf("failed to save extracted page: %w", err)
		}
		if err := a.aggregator.Apply(ctx, extract); err != nil {
			return nil, nil, fmt.Errorf("failed to aggregate extracted page: %w", err)
		}
	}
	return extract, profile, nil
}

// validExtract rejects records written by older extractor versions whose
// entity shape no longer matches.
func validExtract(page *models.ExtractedPage) bool {
	for _, e := range page.Entities {
		if e.Name == "" {
			return false
		}
	}
	return true
}
