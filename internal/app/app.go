package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/common"
	"github.com/ternarybob/trendin/internal/extractor"
	"github.com/ternarybob/trendin/internal/fleet"
	"github.com/ternarybob/trendin/internal/interfaces"
	"github.com/ternarybob/trendin/internal/scraper"
	"github.com/ternarybob/trendin/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Scraping
	Fetcher *scraper.Fetcher
	Factory *scraper.Factory

	// Entity extraction
	ExtractorService *extractor.Service
	Aggregator       *extractor.Aggregator

	// Fleet scheduling and management
	FleetService *fleet.Service
	Admin        *fleet.Admin
	Stats        *fleet.Stats
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	if logger == nil {
		logger = common.GetLogger()
	}
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Msg("Application initialization complete")
	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initServices initializes the business services in dependency order:
// fetcher, scraper factory, extractor, aggregator, then the fleet on top.
func (a *App) initServices() error {
	a.Fetcher = scraper.NewFetcher(&a.Config.Crawler, a.Logger)
	a.Factory = scraper.NewFactory(a.Fetcher, a.Logger)
	a.Logger.Debug().
		Float64("requests_per_second", a.Config.Crawler.RequestsPerSecond).
		Msg("Scraper factory initialized")

	ext, err := extractor.NewService(a.StorageManager.CatalogStorage(), &a.Config.Extractor, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize extractor: %w", err)
	}
	a.ExtractorService = ext
	a.Aggregator = extractor.NewAggregator(a.StorageManager.AggregateStorage(), a.Logger)
	a.Logger.Debug().Msg("Extractor service initialized")

	a.FleetService = fleet.NewService(&a.Config.Fleet, a.StorageManager, a.Factory, a.ExtractorService, a.Aggregator, a.Logger)
	a.Admin = fleet.NewAdmin(a.StorageManager, a.Factory, a.ExtractorService, a.Aggregator, a.Logger)
	a.Stats = fleet.NewStats(a.StorageManager, a.Logger)
	a.Logger.Debug().Msg("Fleet services initialized")

	return nil
}

// Start launches the fleet scheduler.
func (a *App) Start(ctx context.Context) error {
	if err := a.FleetService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start fleet: %w", err)
	}
	return nil
}

// Close stops the fleet and closes all application resources
func (a *App) Close() error {
	if a.FleetService != nil {
		a.FleetService.Stop()
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}
	return nil
}
