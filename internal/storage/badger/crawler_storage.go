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

// CrawlerStorage implements the CrawlerStorage interface for Badger
type CrawlerStorage struct {
	db       *BadgerDB
	logger   arbor.ILogger
	patterns interfaces.PatternStorage
}

// NewCrawlerStorage creates a new CrawlerStorage instance
func NewCrawlerStorage(db *BadgerDB, logger arbor.ILogger, patterns interfaces.PatternStorage) interfaces.CrawlerStorage {
	return &CrawlerStorage{
		db:       db,
		logger:   logger,
		patterns: patterns,
	}
}

func (s *CrawlerStorage) SaveCrawler(ctx context.Context, crawler *models.Crawler) error {
	if crawler.ID == "" {
		return fmt.Errorf("crawler ID is required")
	}
	if crawler.SiteID == "" {
		return fmt.Errorf("crawler site ID is required")
	}

	now := time.Now()
	if crawler.DateCreated.IsZero() {
		crawler.DateCreated = now
	}
	crawler.DateUpdated = now

	if crawler.MaxAge <= 0 {
		crawler.MaxAge = models.DefaultMaxAge
	}
	if crawler.Frequency <= 0 {
		crawler.Frequency = models.DefaultFrequency
	}

	if err := s.db.Store().Upsert(crawler.ID, crawler); err != nil {
		return fmt.Errorf("failed to save crawler: %w", err)
	}
	return nil
}

func (s *CrawlerStorage) GetCrawler(ctx context.Context, id string) (*models.Crawler, error) {
	var crawler models.Crawler
	if err := s.db.Store().Get(id, &crawler); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get crawler: %w", err)
	}
	return &crawler, nil
}

func (s *CrawlerStorage) ListCrawlers(ctx context.Context) ([]*models.Crawler, error) {
	var crawlers []models.Crawler
	if err := s.db.Store().Find(&crawlers, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to list crawlers: %w", err)
	}

	result := make([]*models.Crawler, len(crawlers))
	for i := range crawlers {
		result[i] = &crawlers[i]
	}
	return result, nil
}

func (s *CrawlerStorage) ListCrawlersBySite(ctx context.Context, siteID string) ([]*models.Crawler, error) {
	var crawlers []models.Crawler
	err := s.db.Store().Find(&crawlers, badgerhold.Where("SiteID").Eq(siteID).Index("SiteID"))
	if err != nil {
		return nil, fmt.Errorf("failed to list crawlers for site: %w", err)
	}

	result := make([]*models.Crawler, len(crawlers))
	for i := range crawlers {
		result[i] = &crawlers[i]
	}
	return result, nil
}

// DeleteCrawler removes the crawler and cascades to its URL patterns.
func (s *CrawlerStorage) DeleteCrawler(ctx context.Context, id string) error {
	if err := s.patterns.DeletePatternsByCrawler(ctx, id); err != nil {
		return err
	}

	if err := s.db.Store().Delete(id, &models.Crawler{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete crawler: %w", err)
	}

	s.logger.Debug().Str("crawler_id", id).Msg("Deleted crawler")
	return nil
}

func (s *CrawlerStorage) SetRunState(ctx context.Context, id string, state models.RunState) error {
	crawler, err := s.GetCrawler(ctx, id)
	if err != nil {
		return err
	}
	if crawler == nil {
		return fmt.Errorf("crawler not found: %s", id)
	}

	crawler.RunState = state
	return s.SaveCrawler(ctx, crawler)
}

func (s *CrawlerStorage) IncrementCrawled(ctx context.Context, id string) error {
	crawler, err := s.GetCrawler(ctx, id)
	if err != nil {
		return err
	}
	if crawler == nil {
		return fmt.Errorf("crawler not found: %s", id)
	}

	crawler.CrawledPages++
	return s.SaveCrawler(ctx, crawler)
}
