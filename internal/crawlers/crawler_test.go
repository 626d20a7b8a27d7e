package crawlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/common"
	"github.com/ternarybob/trendin/internal/interfaces"
	"github.com/ternarybob/trendin/internal/models"
	"github.com/ternarybob/trendin/internal/patterns"
	"github.com/ternarybob/trendin/internal/scraper"
)

// fakePages is an in-memory PageStorage; only the crawled-page half does
// anything.
type fakePages struct {
	mu      sync.Mutex
	crawled map[string]*models.CrawledPage
}

func newFakePages() *fakePages {
	return &fakePages{crawled: make(map[string]*models.CrawledPage)}
}

func (f *fakePages) SaveCrawled(_ context.Context, page *models.CrawledPage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crawled[page.URL] = page
	return nil
}

func (f *fakePages) GetCrawled(_ context.Context, url string) (*models.CrawledPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page, ok := f.crawled[url]
	if !ok || !page.Fresh(time.Now()) {
		return nil, nil
	}
	return page, nil
}

func (f *fakePages) DeleteExpired(context.Context, time.Time) (int, error) { return 0, nil }
func (f *fakePages) TouchCategoryExpiry(context.Context, string, time.Time) error {
	return nil
}
func (f *fakePages) SaveExtracted(context.Context, *models.ExtractedPage) error { return nil }
func (f *fakePages) GetExtracted(context.Context, string) (*models.ExtractedPage, error) {
	return nil, nil
}
func (f *fakePages) ListExtractedBySite(context.Context, string) ([]*models.ExtractedPage, error) {
	return nil, nil
}
func (f *fakePages) CountExtracted(context.Context) (int, error)           { return 0, nil }
func (f *fakePages) CountExtractedBySite(context.Context, string) (int, error) {
	return 0, nil
}
func (f *fakePages) DeleteExtracted(context.Context, string) error { return nil }

var _ interfaces.PageStorage = (*fakePages)(nil)

// fakeCrawlers records crawled-count bumps.
type fakeCrawlers struct {
	mu         sync.Mutex
	increments map[string]int
}

func newFakeCrawlers() *fakeCrawlers {
	return &fakeCrawlers{increments: make(map[string]int)}
}

func (f *fakeCrawlers) SaveCrawler(context.Context, *models.Crawler) error { return nil }
func (f *fakeCrawlers) GetCrawler(context.Context, string) (*models.Crawler, error) {
	return nil, nil
}
func (f *fakeCrawlers) ListCrawlers(context.Context) ([]*models.Crawler, error) { return nil, nil }
func (f *fakeCrawlers) ListCrawlersBySite(context.Context, string) ([]*models.Crawler, error) {
	return nil, nil
}
func (f *fakeCrawlers) DeleteCrawler(context.Context, string) error { return nil }
func (f *fakeCrawlers) SetRunState(context.Context, string, models.RunState) error {
	return nil
}

func (f *fakeCrawlers) IncrementCrawled(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments[id]++
	return nil
}

var _ interfaces.CrawlerStorage = (*fakeCrawlers)(nil)

func testFactory() *scraper.Factory {
	fetcher := scraper.NewFetcher(&common.CrawlerConfig{
		UserAgent:         "TrendIn",
		RequestTimeout:    5 * time.Second,
		HeadTimeout:       5 * time.Second,
		RequestRetries:    1,
		RequestsPerSecond: 1000,
	}, arbor.NewLogger())
	return scraper.NewFactory(fetcher, arbor.NewLogger())
}

func newsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Front</title></head><body>
<p>A front page with enough words to make a text piece worth keeping.</p>
<a href="/news/a1">Story one</a>
<a href="/other/b1">Not news</a>
</body></html>`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testInstance(t *testing.T, srv *httptest.Server, def *models.Crawler, pages *fakePages, counts *fakeCrawlers) *Instance {
	t.Helper()
	set, err := patterns.NewSet([]*models.URLPattern{{
		ID:      "p1",
		Pattern: regexp.QuoteMeta(srv.URL) + "/news/.*",
	}}, "")
	require.NoError(t, err)

	inst, err := New(def, testFactory(), set, pages, counts, arbor.NewLogger())
	require.NoError(t, err)
	return inst
}

func linksDef(srv *httptest.Server) *models.Crawler {
	return &models.Crawler{
		ID:          "crawler_1",
		CrawlerKind: models.CrawlerKindLinks,
		Category:    "news",
		StartURL:    srv.URL + "/",
		MaxAge:      3600,
		Frequency:   3600,
	}
}

func TestCrawlPageQueuesMatchingLinks(t *testing.T) {
	srv := newsServer(t)
	pages := newFakePages()
	counts := newFakeCrawlers()
	inst := testInstance(t, srv, linksDef(srv), pages, counts)
	ctx := context.Background()

	page, err := inst.CrawlPage(ctx)
	require.NoError(t, err)
	require.NotNil(t, page)

	assert.Equal(t, "news", page.Category)
	assert.True(t, page.ExpiresAt.After(time.Now()))
	assert.NotNil(t, pages.crawled[srv.URL+"/"])

	// Only the pattern-matching link was queued.
	assert.Equal(t, 1, inst.Frontier().Len())

	second, err := inst.CrawlPage(ctx)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, srv.URL+"/news/a1", second.URL)
	assert.Equal(t, 2, counts.increments["crawler_1"])
}

func TestCrawlPagePausesUntilNextWindow(t *testing.T) {
	srv := newsServer(t)
	inst := testInstance(t, srv, linksDef(srv), newFakePages(), newFakeCrawlers())

	now := time.Now().UTC()
	inst.WithNow(func() time.Time { return now })
	ctx := context.Background()

	// First pass claims the window and crawls the start page plus its link.
	page, err := inst.CrawlPage(ctx)
	require.NoError(t, err)
	require.NotNil(t, page)
	_, err = inst.CrawlPage(ctx)
	require.NoError(t, err)

	// Back at the start URL inside the same window: the crawler parks.
	page, err = inst.CrawlPage(ctx)
	require.NoError(t, err)
	assert.Nil(t, page)
	assert.True(t, inst.Paused())
	assert.False(t, inst.CanResume())

	// After the frequency interval the crawler may resume. The check is a
	// peek, so asking twice does not consume the window.
	now = now.Add(2 * time.Hour)
	assert.True(t, inst.CanResume())
	assert.True(t, inst.CanResume())
}

func TestCrawlPageResumeFiresStartURL(t *testing.T) {
	srv := newsServer(t)
	pages := newFakePages()
	inst := testInstance(t, srv, linksDef(srv), pages, newFakeCrawlers())

	now := time.Now().UTC()
	inst.WithNow(func() time.Time { return now })
	ctx := context.Background()

	// Exhaust the window: start page, queued link, then park.
	_, err := inst.CrawlPage(ctx)
	require.NoError(t, err)
	_, err = inst.CrawlPage(ctx)
	require.NoError(t, err)
	page, err := inst.CrawlPage(ctx)
	require.NoError(t, err)
	require.Nil(t, page)
	require.True(t, inst.Paused())

	now = now.Add(2 * time.Hour)
	require.True(t, inst.CanResume())
	inst.Resume()

	// The first tick after resume crawls the start URL instead of
	// re-parking.
	page, err = inst.CrawlPage(ctx)
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, srv.URL+"/", page.URL)
	assert.False(t, inst.Paused())
}

func TestCrawlPageSkipsFreshURLs(t *testing.T) {
	srv := newsServer(t)
	pages := newFakePages()
	inst := testInstance(t, srv, linksDef(srv), pages, newFakeCrawlers())
	ctx := context.Background()

	// Pretend the story was crawled moments ago.
	require.NoError(t, pages.SaveCrawled(ctx, &models.CrawledPage{
		URL:       srv.URL + "/news/a1",
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	inst.Frontier().Add(srv.URL + "/news/a1")

	// The fresh story is skipped; the crawler falls through to the start URL.
	page, err := inst.CrawlPage(ctx)
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, srv.URL+"/", page.URL)
}

func TestCrawlPageSkipsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
	}))
	defer srv.Close()

	pages := newFakePages()
	def := linksDef(srv)
	inst := testInstance(t, srv, def, pages, newFakeCrawlers())

	page, err := inst.CrawlPage(context.Background())
	require.NoError(t, err)
	assert.Nil(t, page)
	assert.Empty(t, pages.crawled)
}

func TestNewRejectsUnknownKind(t *testing.T) {
	srv := newsServer(t)
	def := linksDef(srv)
	def.CrawlerKind = "ftp"

	set, _ := patterns.NewSet(nil, "")
	_, err := New(def, testFactory(), set, newFakePages(), newFakeCrawlers(), arbor.NewLogger())
	assert.Error(t, err)
}
