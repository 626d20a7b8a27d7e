package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/common"
	"github.com/ternarybob/trendin/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db        *BadgerDB
	site      interfaces.SiteStorage
	crawler   interfaces.CrawlerStorage
	pattern   interfaces.PatternStorage
	page      interfaces.PageStorage
	aggregate interfaces.AggregateStorage
	catalog   interfaces.CatalogStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	pattern := NewPatternStorage(db, logger)
	crawler := NewCrawlerStorage(db, logger, pattern)

	manager := &Manager{
		db:        db,
		site:      NewSiteStorage(db, logger, crawler),
		crawler:   crawler,
		pattern:   pattern,
		page:      NewPageStorage(db, logger),
		aggregate: NewAggregateStorage(db, logger),
		catalog:   NewCatalogStorage(db, logger),
		logger:    logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// SiteStorage returns the Site storage interface
func (m *Manager) SiteStorage() interfaces.SiteStorage {
	return m.site
}

// CrawlerStorage returns the Crawler storage interface
func (m *Manager) CrawlerStorage() interfaces.CrawlerStorage {
	return m.crawler
}

// PatternStorage returns the URL pattern storage interface
func (m *Manager) PatternStorage() interfaces.PatternStorage {
	return m.pattern
}

// PageStorage returns the Page storage interface
func (m *Manager) PageStorage() interfaces.PageStorage {
	return m.page
}

// AggregateStorage returns the Aggregate storage interface
func (m *Manager) AggregateStorage() interfaces.AggregateStorage {
	return m.aggregate
}

// CatalogStorage returns the entity catalog storage interface
func (m *Manager) CatalogStorage() interfaces.CatalogStorage {
	return m.catalog
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
