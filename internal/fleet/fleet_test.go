package fleet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/common"
	"github.com/ternarybob/trendin/internal/extractor"
	"github.com/ternarybob/trendin/internal/interfaces"
	"github.com/ternarybob/trendin/internal/models"
	"github.com/ternarybob/trendin/internal/scraper"
	"github.com/ternarybob/trendin/internal/storage/badger"
)

// capitalChunker stands in for the NER model: runs of capitalized words
// form chunks.
type capitalChunker struct{}

func (capitalChunker) Chunk(sentence string) ([]string, []string, error) {
	var chunks, rest []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
		}
	}
	for _, raw := range strings.Fields(sentence) {
		word := strings.Trim(raw, ".,!?;:")
		if word == "" {
			continue
		}
		if unicode.IsUpper([]rune(word)[0]) {
			current = append(current, word)
			continue
		}
		flush()
		rest = append(rest, word)
	}
	flush()
	return chunks, rest, nil
}

type testEnv struct {
	storage    interfaces.StorageManager
	factory    *scraper.Factory
	extractor  *extractor.Service
	aggregator *extractor.Aggregator
	admin      *Admin
	fleet      *Service
	stats      *Stats
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := arbor.NewLogger()

	storage, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	fetcher := scraper.NewFetcher(&common.CrawlerConfig{
		UserAgent:         "TrendIn",
		RequestTimeout:    5 * time.Second,
		HeadTimeout:       5 * time.Second,
		RequestRetries:    1,
		RequestsPerSecond: 1000,
	}, logger)
	factory := scraper.NewFactory(fetcher, logger)

	ext, err := extractor.NewService(storage.CatalogStorage(), &common.ExtractorConfig{
		CacheSize:      120,
		TitleWeight:    2,
		EntityWeight:   2,
		KeepCandidates: true,
	}, logger)
	require.NoError(t, err)
	ext = ext.WithChunker(capitalChunker{})

	agg := extractor.NewAggregator(storage.AggregateStorage(), logger)
	fleetCfg := &common.FleetConfig{
		WaitFor:                 10 * time.Millisecond,
		RingPopTimeout:          100 * time.Millisecond,
		TransactionsLimit:       950,
		ConcurrentRequestsLimit: 1,
		PulseSchedule:           "* * * * *",
	}
	return &testEnv{
		storage:    storage,
		factory:    factory,
		extractor:  ext,
		aggregator: agg,
		admin:      NewAdmin(storage, factory, ext, agg, logger),
		fleet:      NewService(fleetCfg, storage, factory, ext, agg, logger),
		stats:      NewStats(storage, logger),
	}
}

func newsSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Acme Corp wins big</title></head><body>
<p>Acme Corp impressed investors with a wonderful quarter of results today.</p>
<a href="/news/a1">Story one</a>
</body></html>`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// seedSite registers a site plus one links crawler through the admin ops.
func seedSite(t *testing.T, env *testEnv, srv *httptest.Server) (*models.Site, *models.Crawler) {
	t.Helper()
	ctx := context.Background()

	site, err := env.admin.CreateSite(ctx, &CreateSiteRequest{
		Name:          "Example News",
		PublisherName: "Example Media",
		URL:           srv.URL + "/",
		Category:      "news",
	})
	require.NoError(t, err)

	crawler, err := env.admin.AddCrawler(ctx, &AddCrawlerRequest{
		SiteID:  site.ID,
		Name:    "front page",
		Pattern: regexp.QuoteMeta(srv.URL) + "/news/.*",
	})
	require.NoError(t, err)
	require.NotEmpty(t, crawler.DefaultPatternID)
	return site, crawler
}

func TestFleetCrawlsAndExtracts(t *testing.T) {
	env := newTestEnv(t)
	srv := newsSite(t)
	site, crawler := seedSite(t, env, srv)
	ctx := context.Background()

	require.NoError(t, env.storage.CatalogStorage().SaveEntry(ctx, &models.CatalogEntry{
		ID:       "e1",
		Name:     "Acme Corp",
		Category: "company",
	}))

	require.NoError(t, env.fleet.initCrawlers(ctx))
	assert.Equal(t, 1, env.fleet.ActiveCount())

	env.fleet.Tick(ctx)
	require.Eventually(t, func() bool {
		return env.fleet.Transactions() >= 1
	}, 5*time.Second, 20*time.Millisecond)

	// The start page was crawled and extracted.
	require.Eventually(t, func() bool {
		extract, err := env.storage.PageStorage().GetExtracted(ctx, srv.URL+"/")
		return err == nil && extract != nil
	}, 5*time.Second, 20*time.Millisecond)

	extract, err := env.storage.PageStorage().GetExtracted(ctx, srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, site.Hostname, extract.Site)
	require.NotEmpty(t, extract.Entities)
	assert.Equal(t, "Acme Corp", extract.Entities[0].Name)

	// Aggregates follow.
	entity, err := env.storage.AggregateStorage().GetEntity(ctx, site.Hostname, "Acme Corp")
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.Greater(t, entity.Count, 0)

	// The crawled-count bump is persisted.
	stored, err := env.storage.CrawlerStorage().GetCrawler(ctx, crawler.ID)
	require.NoError(t, err)
	assert.Greater(t, stored.CrawledPages, 0)
}

func TestFleetTransactionsBudget(t *testing.T) {
	env := newTestEnv(t)
	srv := newsSite(t)
	seedSite(t, env, srv)
	ctx := context.Background()

	require.NoError(t, env.fleet.initCrawlers(ctx))
	env.fleet.mu.Lock()
	env.fleet.transactions = env.fleet.config.TransactionsLimit + 1
	env.fleet.mu.Unlock()

	env.fleet.Tick(ctx)
	time.Sleep(200 * time.Millisecond)

	// Nothing was crawled; the crawler keeps its place in the ring.
	count, err := env.storage.PageStorage().CountExtracted(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 1, env.fleet.ActiveCount())

	env.fleet.resetTransactions()
	assert.Zero(t, env.fleet.Transactions())
}

func TestFleetPulseHonorsStatusChanges(t *testing.T) {
	env := newTestEnv(t)
	srv := newsSite(t)
	site, crawler := seedSite(t, env, srv)
	ctx := context.Background()

	require.NoError(t, env.fleet.initCrawlers(ctx))
	require.Equal(t, 1, env.fleet.ActiveCount())

	// Disabling the site stops its crawlers on the next pulse.
	require.NoError(t, env.admin.SetSiteStatus(ctx, site.ID, models.StatusDisabled))
	env.fleet.Pulse(ctx)
	assert.Zero(t, env.fleet.ActiveCount())

	stored, err := env.storage.CrawlerStorage().GetCrawler(ctx, crawler.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStateStopped, stored.RunState)

	// Re-enabling brings them back.
	require.NoError(t, env.admin.SetSiteStatus(ctx, site.ID, models.StatusEnabled))
	env.fleet.Pulse(ctx)
	assert.Equal(t, 1, env.fleet.ActiveCount())
}

func TestFleetPauseAndResume(t *testing.T) {
	env := newTestEnv(t)
	srv := newsSite(t)
	_, crawler := seedSite(t, env, srv)
	ctx := context.Background()

	require.NoError(t, env.fleet.initCrawlers(ctx))
	env.fleet.mu.Lock()
	inst := env.fleet.active[crawler.ID]
	env.fleet.mu.Unlock()
	require.NotNil(t, inst)

	// Crawling the start page claims the cadence window; then park.
	page, err := inst.CrawlPage(ctx)
	require.NoError(t, err)
	require.NotNil(t, page)

	// A parked crawler leaves the rotation on the next tick.
	inst.Pause()
	env.fleet.Tick(ctx)
	assert.Zero(t, env.fleet.ActiveCount())
	assert.Equal(t, 1, env.fleet.PausedCount())

	stored, err := env.storage.CrawlerStorage().GetCrawler(ctx, crawler.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatePaused, stored.RunState)

	// Inside the window the pulse leaves it parked.
	env.fleet.Pulse(ctx)
	assert.Equal(t, 1, env.fleet.PausedCount())

	// Force the window open and pulse again.
	inst.WithNow(func() time.Time { return time.Now().Add(2 * time.Hour) })
	env.fleet.Pulse(ctx)
	assert.Equal(t, 1, env.fleet.ActiveCount())
	assert.Zero(t, env.fleet.PausedCount())
}
