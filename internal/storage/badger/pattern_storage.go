package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/interfaces"
	"github.com/ternarybob/trendin/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// PatternStorage implements the PatternStorage interface for Badger
type PatternStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPatternStorage creates a new PatternStorage instance
func NewPatternStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PatternStorage {
	return &PatternStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PatternStorage) SavePattern(ctx context.Context, pattern *models.URLPattern) error {
	if pattern.ID == "" {
		return fmt.Errorf("pattern ID is required")
	}
	if pattern.CrawlerID == "" {
		return fmt.Errorf("pattern crawler ID is required")
	}

	if err := s.db.Store().Upsert(pattern.ID, pattern); err != nil {
		return fmt.Errorf("failed to save pattern: %w", err)
	}
	return nil
}

func (s *PatternStorage) GetPattern(ctx context.Context, id string) (*models.URLPattern, error) {
	var pattern models.URLPattern
	if err := s.db.Store().Get(id, &pattern); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}
	return &pattern, nil
}

func (s *PatternStorage) ListPatternsByCrawler(ctx context.Context, crawlerID string) ([]*models.URLPattern, error) {
	var patterns []models.URLPattern
	err := s.db.Store().Find(&patterns, badgerhold.Where("CrawlerID").Eq(crawlerID).Index("CrawlerID"))
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns for crawler: %w", err)
	}

	result := make([]*models.URLPattern, len(patterns))
	for i := range patterns {
		result[i] = &patterns[i]
	}
	return result, nil
}

func (s *PatternStorage) ListPatternsByHostname(ctx context.Context, hostname string) ([]*models.URLPattern, error) {
	var patterns []models.URLPattern
	err := s.db.Store().Find(&patterns, badgerhold.Where("Hostname").Eq(hostname).Index("Hostname"))
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns for hostname: %w", err)
	}

	result := make([]*models.URLPattern, len(patterns))
	for i := range patterns {
		result[i] = &patterns[i]
	}
	return result, nil
}

func (s *PatternStorage) DeletePattern(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.URLPattern{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete pattern: %w", err)
	}
	return nil
}

func (s *PatternStorage) DeletePatternsByCrawler(ctx context.Context, crawlerID string) error {
	err := s.db.Store().DeleteMatching(&models.URLPattern{}, badgerhold.Where("CrawlerID").Eq(crawlerID).Index("CrawlerID"))
	if err != nil {
		return fmt.Errorf("failed to delete patterns for crawler: %w", err)
	}
	return nil
}
