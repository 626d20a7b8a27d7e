package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/interfaces"
	"github.com/ternarybob/trendin/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SiteStorage implements the SiteStorage interface for Badger
type SiteStorage struct {
	db       *BadgerDB
	logger   arbor.ILogger
	crawlers interfaces.CrawlerStorage
}

// NewSiteStorage creates a new SiteStorage instance
func NewSiteStorage(db *BadgerDB, logger arbor.ILogger, crawlers interfaces.CrawlerStorage) interfaces.SiteStorage {
	return &SiteStorage{
		db:       db,
		logger:   logger,
		crawlers: crawlers,
	}
}

func (s *SiteStorage) SaveSite(ctx context.Context, site *models.Site) error {
	if site.ID == "" {
		return fmt.Errorf("site ID is required")
	}

	now := time.Now()
	if site.DateCreated.IsZero() {
		site.DateCreated = now
	}
	site.DateUpdated = now

	if site.Hostname == "" {
		site.Hostname = models.HostnameOf(site.URL)
	}

	if err := s.db.Store().Upsert(site.ID, site); err != nil {
		return fmt.Errorf("failed to save site: %w", err)
	}
	return nil
}

func (s *SiteStorage) GetSite(ctx context.Context, id string) (*models.Site, error) {
	var site models.Site
	if err := s.db.Store().Get(id, &site); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return &site, nil
}

func (s *SiteStorage) GetSiteByHostname(ctx context.Context, hostname string) (*models.Site, error) {
	var sites []models.Site
	err := s.db.Store().Find(&sites, badgerhold.Where("Hostname").Eq(hostname).Index("Hostname").Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to find site by hostname: %w", err)
	}
	if len(sites) == 0 {
		return nil, nil
	}
	return &sites[0], nil
}

func (s *SiteStorage) ListSites(ctx context.Context, status *models.Status) ([]*models.Site, error) {
	query := badgerhold.Where("ID").Ne("")
	if status != nil {
		query = query.And("Status").Eq(*status)
	}

	var sites []models.Site
	if err := s.db.Store().Find(&sites, query); err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}

	result := make([]*models.Site, len(sites))
	for i := range sites {
		result[i] = &sites[i]
	}
	return result, nil
}

// DeleteSite removes the site and cascades to its crawlers and their
// patterns.
func (s *SiteStorage) DeleteSite(ctx context.Context, id string) error {
	crawlers, err := s.crawlers.ListCrawlersBySite(ctx, id)
	if err != nil {
		return err
	}
	for _, c := range crawlers {
		if err := s.crawlers.DeleteCrawler(ctx, c.ID); err != nil {
			return err
		}
	}

	if err := s.db.Store().Delete(id, &models.Site{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete site: %w", err)
	}

	s.logger.Debug().Str("site_id", id).Int("crawlers", len(crawlers)).Msg("Deleted site")
	return nil
}
