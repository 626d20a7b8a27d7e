// Package fleet schedules the crawler fleet: which crawlers run, when they
// pause, and how many pages the fleet fetches per day.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/common"
	"github.com/ternarybob/trendin/internal/crawlers"
	"github.com/ternarybob/trendin/internal/extractor"
	"github.com/ternarybob/trendin/internal/interfaces"
	"github.com/ternarybob/trendin/internal/models"
	"github.com/ternarybob/trendin/internal/patterns"
	"github.com/ternarybob/trendin/internal/scraper"
)

// Service owns the crawler fleet. Enabled crawlers rotate through a ready
// ring; each tick pops the next crawler and advances it one page, capped by
// the concurrency limit and the daily transactions budget.
type Service struct {
	config     *common.FleetConfig
	storage    interfaces.StorageManager
	factory    *scraper.Factory
	extractor  *extractor.Service
	aggregator *extractor.Aggregator
	logger     arbor.ILogger

	mu           sync.Mutex
	active       map[string]*crawlers.Instance
	paused       map[string]*crawlers.Instance
	ring         *crawlers.Ring
	inFlight     int
	transactions int

	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(config *common.FleetConfig, storage interfaces.StorageManager, factory *scraper.Factory, ext *extractor.Service, agg *extractor.Aggregator, logger arbor.ILogger) *Service {
	return &Service{
		config:     config,
		storage:    storage,
		factory:    factory,
		extractor:  ext,
		aggregator: agg,
		logger:     logger,
		active:     make(map[string]*crawlers.Instance),
		paused:     make(map[string]*crawlers.Instance),
		ring:       crawlers.NewRing(),
	}
}

// Start loads the enabled crawlers and launches the tick loop and the cron
// jobs. It returns once the loop is running.
func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if err := s.initCrawlers(runCtx); err != nil {
		cancel()
		return err
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.config.PulseSchedule, func() { s.Pulse(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule fleet pulse: %w", err)
	}
	// Daily fetch budget resets at midnight UTC.
	if _, err := s.cron.AddFunc("CRON_TZ=UTC 0 0 * * *", func() { s.resetTransactions() }); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule transactions reset: %w", err)
	}
	s.cron.Start()

	s.wg.Add(1)
	go s.run(runCtx)

	s.logger.Info().Int("crawlers", s.ring.Len()).Msg("Fleet started")
	return nil
}

// Stop halts the tick loop and waits for in-flight work.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		s.cron.Stop()
	}
	s.wg.Wait()
	s.logger.Info().Msg("Fleet stopped")
}

// initCrawlers starts every enabled crawler of every enabled site.
func (s *Service) initCrawlers(ctx context.Context) error {
	enabled := models.StatusEnabled
	sites, err := s.storage.SiteStorage().ListSites(ctx, &enabled)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}
	for _, site := range sites {
		defs, err := s.storage.CrawlerStorage().ListCrawlersBySite(ctx, site.ID)
		if err != nil {
			return fmt.Errorf("failed to list crawlers for site %s: %w", site.ID, err)
		}
		for _, def := range defs {
			if !def.Status.Enabled() {
				continue
			}
			if err := s.startCrawler(ctx, def); err != nil {
				s.logger.Warn().Err(err).Str("crawler", def.ID).Msg("Failed to start crawler")
			}
		}
	}
	return nil
}

// startCrawler builds an instance for a crawler definition and adds it to
// the rotation. Starting an already-running crawler is a no-op.
func (s *Service) startCrawler(ctx context.Context, def *models.Crawler) error {
	s.mu.Lock()
	_, running := s.active[def.ID]
	_, parked := s.paused[def.ID]
	s.mu.Unlock()
	if running || parked {
		return nil
	}

	stored, err := s.storage.PatternStorage().ListPatternsByCrawler(ctx, def.ID)
	if err != nil {
		return fmt.Errorf("failed to load patterns for crawler %s: %w", def.ID, err)
	}
	set, err := patterns.NewSet(stored, def.DefaultPatternID)
	if err != nil {
		return err
	}
	inst, err := crawlers.New(def, s.factory, set, s.storage.PageStorage(), s.storage.CrawlerStorage(), s.logger)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.active[def.ID] = inst
	s.ring.Add(def.ID)
	s.mu.Unlock()

	if err := s.storage.CrawlerStorage().SetRunState(ctx, def.ID, models.RunStateRunning); err != nil {
		s.logger.Warn().Err(err).Str("crawler", def.ID).Msg("Failed to record run state")
	}
	s.logger.Info().Str("crawler", def.ID).Str("name", def.Name).Msg("Crawler started")
	return nil
}

// stopCrawler removes a crawler from the fleet entirely.
func (s *Service) stopCrawler(ctx context.Context, id string) {
	s.mu.Lock()
	_, running := s.active[id]
	_, parked := s.paused[id]
	delete(s.active, id)
	delete(s.paused, id)
	s.ring.Remove(id)
	s.mu.Unlock()
	if !running && !parked {
		return
	}

	if err := s.storage.CrawlerStorage().SetRunState(ctx, id, models.RunStateStopped); err != nil {
		s.logger.Warn().Err(err).Str("crawler", id).Msg("Failed to record run state")
	}
	s.logger.Info().Str("crawler", id).Msg("Crawler stopped")
}

// pauseCrawler parks a crawler until its next start-URL window.
func (s *Service) pauseCrawler(ctx context.Context, inst *crawlers.Instance) {
	s.mu.Lock()
	delete(s.active, inst.ID())
	s.paused[inst.ID()] = inst
	s.ring.Remove(inst.ID())
	s.mu.Unlock()

	if err := s.storage.CrawlerStorage().SetRunState(ctx, inst.ID(), models.RunStatePaused); err != nil {
		s.logger.Warn().Err(err).Str("crawler", inst.ID()).Msg("Failed to record run state")
	}
	s.logger.Info().Str("crawler", inst.ID()).Msg("Crawler paused")
}

// resumeCrawler returns a parked crawler to the rotation.
func (s *Service) resumeCrawler(ctx context.Context, inst *crawlers.Instance) {
	s.mu.Lock()
	delete(s.paused, inst.ID())
	s.active[inst.ID()] = inst
	s.ring.Add(inst.ID())
	s.mu.Unlock()

	inst.Resume()
	if err := s.storage.CrawlerStorage().SetRunState(ctx, inst.ID(), models.RunStateRunning); err != nil {
		s.logger.Warn().Err(err).Str("crawler", inst.ID()).Msg("Failed to record run state")
	}
	s.logger.Info().Str("crawler", inst.ID()).Msg("Crawler resumed")
}

func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.config.WaitFor)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick dispatches crawl work until the concurrency cap is reached or the
// ring yields nothing.
func (s *Service) Tick(ctx context.Context) {
	for {
		s.mu.Lock()
		if s.inFlight >= s.config.ConcurrentRequestsLimit {
			s.mu.Unlock()
			return
		}
		overBudget := s.transactions > s.config.TransactionsLimit
		s.mu.Unlock()

		id, ok := s.ring.Next(ctx, s.config.RingPopTimeout)
		if !ok {
			return
		}
		s.mu.Lock()
		inst, running := s.active[id]
		s.mu.Unlock()
		if !running {
			continue
		}
		if inst.Paused() {
			s.pauseCrawler(ctx, inst)
			return
		}
		if overBudget {
			// The ring already rotated the crawler back; it keeps its turn.
			s.logger.Info().Msg("Daily transactions limit exceeded, yielding")
			return
		}

		s.mu.Lock()
		s.inFlight++
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runJob(ctx, inst)
			s.mu.Lock()
			s.inFlight--
			s.mu.Unlock()
		}()
	}
}

// runJob advances one crawler by one page and pushes the result through
// extraction and aggregation. Failures are logged, not fatal.
func (s *Service) runJob(ctx context.Context, inst *crawlers.Instance) {
	page, err := inst.CrawlPage(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("crawler", inst.ID()).Msg("Crawl tick failed")
		return
	}
	if page == nil {
		return
	}

	s.mu.Lock()
	s.transactions++
	s.mu.Unlock()

	extract, err := s.extractor.Extract(ctx, page)
	if err != nil {
		if !errors.Is(err, extractor.ErrEmptyText) {
			s.logger.Warn().Err(err).Str("url", page.URL).Msg("Extraction failed")
		}
		return
	}
	if profile, err := inst.Patterns().Match(page.URL); err == nil {
		extract.URLPatternID = profile.PatternID
		extract.Categories = profile.Categories
		extract.Exclude = profile.Exclude
	}
	if err := s.storage.PageStorage().SaveExtracted(ctx, extract); err != nil {
		s.logger.Warn().Err(err).Str("url", page.URL).Msg("Failed to save extracted page")
		return
	}
	if err := s.aggregator.Apply(ctx, extract); err != nil {
		s.logger.Warn().Err(err).Str("url", page.URL).Msg("Failed to aggregate extracted page")
	}
}

// Pulse reconciles the fleet with storage: honors site/crawler status
// changes, wakes parked crawlers whose window has come around, and sweeps
// expired raw pages.
func (s *Service) Pulse(ctx context.Context) {
	sites, err := s.storage.SiteStorage().ListSites(ctx, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Pulse failed to list sites")
		return
	}
	for _, site := range sites {
		defs, err := s.storage.CrawlerStorage().ListCrawlersBySite(ctx, site.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("site", site.ID).Msg("Pulse failed to list crawlers")
			continue
		}
		for _, def := range defs {
			if !site.Status.Enabled() || !def.Status.Enabled() {
				s.stopCrawler(ctx, def.ID)
				continue
			}
			if err := s.startCrawler(ctx, def); err != nil {
				s.logger.Warn().Err(err).Str("crawler", def.ID).Msg("Pulse failed to start crawler")
			}
		}
	}

	s.mu.Lock()
	parked := make([]*crawlers.Instance, 0, len(s.paused))
	for _, inst := range s.paused {
		parked = append(parked, inst)
	}
	s.mu.Unlock()
	for _, inst := range parked {
		if inst.CanResume() {
			s.resumeCrawler(ctx, inst)
		}
	}

	if n, err := s.storage.PageStorage().DeleteExpired(ctx, time.Now().UTC()); err != nil {
		s.logger.Warn().Err(err).Msg("Pulse failed to sweep expired pages")
	} else if n > 0 {
		s.logger.Info().Int("pages", n).Msg("Swept expired crawled pages")
	}
}

func (s *Service) resetTransactions() {
	s.mu.Lock()
	s.transactions = 0
	s.mu.Unlock()
	s.logger.Info().Msg("Daily transactions counter reset")
}

// Transactions returns today's fetch count.
func (s *Service) Transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactions
}

// ActiveCount returns the number of crawlers in rotation.
func (s *Service) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// PausedCount returns the number of parked crawlers.
func (s *Service) PausedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paused)
}
