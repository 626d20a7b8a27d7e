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

// PageStorage implements the PageStorage interface for Badger. Crawled
// pages are TTL-governed; extracted pages are durable.
type PageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPageStorage creates a new PageStorage instance
func NewPageStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PageStorage {
	return &PageStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PageStorage) SaveCrawled(ctx context.Context, page *models.CrawledPage) error {
	if page.URL == "" {
		return fmt.Errorf("page URL is required")
	}
	if page.FetchedAt.IsZero() {
		page.FetchedAt = time.Now()
	}

	if err := s.db.Store().Upsert(page.URL, page); err != nil {
		return fmt.Errorf("failed to save crawled page: %w", err)
	}
	return nil
}

// GetCrawled returns nil when no record exists or the record has expired.
// Expired records are left for the sweep to remove.
func (s *PageStorage) GetCrawled(ctx context.Context, url string) (*models.CrawledPage, error) {
	var page models.CrawledPage
	if err := s.db.Store().Get(url, &page); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get crawled page: %w", err)
	}
	if !page.Fresh(time.Now()) {
		return nil, nil
	}
	return &page, nil
}

func (s *PageStorage) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	query := badgerhold.Where("ExpiresAt").Le(now)

	var expired []models.CrawledPage
	if err := s.db.Store().Find(&expired, query); err != nil {
		return 0, fmt.Errorf("failed to find expired pages: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	if err := s.db.Store().DeleteMatching(&models.CrawledPage{}, query); err != nil {
		return 0, fmt.Errorf("failed to delete expired pages: %w", err)
	}

	s.logger.Debug().Int("count", len(expired)).Msg("Deleted expired crawled pages")
	return len(expired), nil
}

// TouchCategoryExpiry rewrites ExpiresAt for every crawled page of a
// category. Used when a crawler's max-age changes so existing records pick
// up the new horizon.
func (s *PageStorage) TouchCategoryExpiry(ctx context.Context, category string, expiresAt time.Time) error {
	err := s.db.Store().UpdateMatching(&models.CrawledPage{},
		badgerhold.Where("Category").Eq(category).Index("Category"),
		func(record interface{}) error {
			page, ok := record.(*models.CrawledPage)
			if !ok {
				return fmt.Errorf("unexpected record type %T", record)
			}
			page.ExpiresAt = expiresAt
			return nil
		})
	if err != nil {
		return fmt.Errorf("failed to update expiry for category %s: %w", category, err)
	}
	return nil
}

func (s *PageStorage) SaveExtracted(ctx context.Context, page *models.ExtractedPage) error {
	if page.URL == "" {
		return fmt.Errorf("page URL is required")
	}
	if page.ExtractedAt.IsZero() {
		page.ExtractedAt = time.Now()
	}

	if err := s.db.Store().Upsert(page.URL, page); err != nil {
		return fmt.Errorf("failed to save extracted page: %w", err)
	}
	return nil
}

func (s *PageStorage) GetExtracted(ctx context.Context, url string) (*models.ExtractedPage, error) {
	var page models.ExtractedPage
	if err := s.db.Store().Get(url, &page); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get extracted page: %w", err)
	}
	return &page, nil
}

func (s *PageStorage) ListExtractedBySite(ctx context.Context, site string) ([]*models.ExtractedPage, error) {
	var pages []models.ExtractedPage
	err := s.db.Store().Find(&pages, badgerhold.Where("Site").Eq(site).Index("Site"))
	if err != nil {
		return nil, fmt.Errorf("failed to list extracted pages for site: %w", err)
	}

	result := make([]*models.ExtractedPage, len(pages))
	for i := range pages {
		result[i] = &pages[i]
	}
	return result, nil
}

func (s *PageStorage) CountExtracted(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.ExtractedPage{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count extracted pages: %w", err)
	}
	return int(count), nil
}

func (s *PageStorage) CountExtractedBySite(ctx context.Context, site string) (int, error) {
	count, err := s.db.Store().Count(&models.ExtractedPage{}, badgerhold.Where("Site").Eq(site).Index("Site"))
	if err != nil {
		return 0, fmt.Errorf("failed to count extracted pages for site: %w", err)
	}
	return int(count), nil
}

func (s *PageStorage) DeleteExtracted(ctx context.Context, url string) error {
	if err := s.db.Store().Delete(url, &models.ExtractedPage{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete extracted page: %w", err)
	}
	return nil
}
