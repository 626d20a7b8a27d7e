package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/interfaces"
	"github.com/ternarybob/trendin/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CatalogStorage implements the CatalogStorage interface for Badger
type CatalogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCatalogStorage creates a new CatalogStorage instance
func NewCatalogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CatalogStorage {
	return &CatalogStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CatalogStorage) SaveEntry(ctx context.Context, entry *models.CatalogEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("catalog entry ID is required")
	}
	if entry.FoldedName == "" {
		entry.FoldedName = models.FoldName(entry.Name)
	}

	if err := s.db.Store().Upsert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to save catalog entry: %w", err)
	}
	return nil
}

// LookupAndTouch finds a live entry by folded name and increments its
// occurrence counter. Returns nil for absent or disabled entries.
func (s *CatalogStorage) LookupAndTouch(ctx context.Context, foldedName string) (*models.CatalogEntry, error) {
	var entries []models.CatalogEntry
	err := s.db.Store().Find(&entries, badgerhold.Where("FoldedName").Eq(foldedName).Index("FoldedName").Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to look up catalog entry: %w", err)
	}
	if len(entries) == 0 || entries[0].Disabled {
		return nil, nil
	}

	entry := entries[0]
	entry.Occur++
	if err := s.db.Store().Upsert(entry.ID, &entry); err != nil {
		return nil, fmt.Errorf("failed to touch catalog entry: %w", err)
	}
	return &entry, nil
}

func (s *CatalogStorage) DeleteEntry(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.CatalogEntry{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete catalog entry: %w", err)
	}
	return nil
}
