package fleet

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/trendin/internal/models"
	"github.com/ternarybob/trendin/internal/patterns"
)

func TestCreateSiteValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.admin.CreateSite(ctx, &CreateSiteRequest{
		Name:          "No URL",
		PublisherName: "Pub",
		URL:           "not a url",
		Category:      "news",
	})
	assert.Error(t, err)

	_, err = env.admin.CreateSite(ctx, &CreateSiteRequest{
		PublisherName: "Pub",
		URL:           "https://example.com",
		Category:      "news",
	})
	assert.Error(t, err)
}

func TestAddCrawlerDefaults(t *testing.T) {
	env := newTestEnv(t)
	srv := newsSite(t)
	site, crawler := seedSite(t, env, srv)
	ctx := context.Background()

	// Omitted fields inherit from the site, cadence gets defaults.
	assert.Equal(t, site.URL, crawler.StartURL)
	assert.Equal(t, "news", crawler.Category)
	assert.Equal(t, models.CrawlerKindLinks, crawler.CrawlerKind)
	assert.Equal(t, models.DefaultMaxAge, crawler.MaxAge)
	assert.Equal(t, models.DefaultFrequency, crawler.Frequency)

	// The initial pattern is stored under the site hostname and promoted.
	stored, err := env.storage.PatternStorage().ListPatternsByCrawler(ctx, crawler.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, site.Hostname, stored[0].Hostname)
	assert.Equal(t, stored[0].ID, crawler.DefaultPatternID)
}

func TestAddCrawlerRejectsBadPattern(t *testing.T) {
	env := newTestEnv(t)
	srv := newsSite(t)
	site, _ := seedSite(t, env, srv)

	_, err := env.admin.AddCrawler(context.Background(), &AddCrawlerRequest{
		SiteID:  site.ID,
		Name:    "broken",
		Pattern: "[unclosed",
	})
	assert.ErrorIs(t, err, patterns.ErrInvalidRegex)
}

func TestSavePatternDefaultPromotion(t *testing.T) {
	env := newTestEnv(t)
	srv := newsSite(t)
	_, crawler := seedSite(t, env, srv)
	ctx := context.Background()

	// A non-default pattern leaves the default alone.
	p2, err := env.admin.SavePattern(ctx, &SavePatternRequest{
		CrawlerID: crawler.ID,
		Pattern:   regexp.QuoteMeta(srv.URL) + "/sports/.*",
	})
	require.NoError(t, err)
	stored, err := env.storage.CrawlerStorage().GetCrawler(ctx, crawler.ID)
	require.NoError(t, err)
	assert.Equal(t, crawler.DefaultPatternID, stored.DefaultPatternID)

	// Asking for default reassigns it.
	_, err = env.admin.SavePattern(ctx, &SavePatternRequest{
		ID:        p2.ID,
		CrawlerID: crawler.ID,
		Pattern:   p2.Pattern,
		Default:   true,
	})
	require.NoError(t, err)
	stored, err = env.storage.CrawlerStorage().GetCrawler(ctx, crawler.ID)
	require.NoError(t, err)
	assert.Equal(t, p2.ID, stored.DefaultPatternID)
}

func TestUpdateCrawlerMaxAgePropagates(t *testing.T) {
	env := newTestEnv(t)
	srv := newsSite(t)
	_, crawler := seedSite(t, env, srv)
	ctx := context.Background()

	// An expired page in the crawler's category.
	require.NoError(t, env.storage.PageStorage().SaveCrawled(ctx, &models.CrawledPage{
		URL:       "https://example.com/old",
		Category:  "news",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))
	page, err := env.storage.PageStorage().GetCrawled(ctx, "https://example.com/old")
	require.NoError(t, err)
	require.Nil(t, page)

	crawler.MaxAge = crawler.MaxAge * 2
	require.NoError(t, env.admin.UpdateCrawler(ctx, crawler))

	// The max-age change rewrote the category's freshness horizon.
	page, err = env.storage.PageStorage().GetCrawled(ctx, "https://example.com/old")
	require.NoError(t, err)
	assert.NotNil(t, page)
}

func TestMatchPatternPrefersNonDefault(t *testing.T) {
	env := newTestEnv(t)
	srv := newsSite(t)
	ctx := context.Background()

	site, err := env.admin.CreateSite(ctx, &CreateSiteRequest{
		Name:          "Example News",
		PublisherName: "Example Media",
		URL:           srv.URL + "/",
		Category:      "news",
	})
	require.NoError(t, err)

	// The catch-all becomes the crawler's default pattern.
	crawler, err := env.admin.AddCrawler(ctx, &AddCrawlerRequest{
		SiteID:  site.ID,
		Name:    "front page",
		Pattern: regexp.QuoteMeta(srv.URL) + "/.*",
	})
	require.NoError(t, err)
	news, err := env.admin.SavePattern(ctx, &SavePatternRequest{
		CrawlerID: crawler.ID,
		Pattern:   regexp.QuoteMeta(srv.URL) + "/news/.*",
	})
	require.NoError(t, err)

	// Both patterns match, but the non-default wins regardless of storage
	// order.
	profile, err := env.admin.MatchPattern(ctx, srv.URL+"/news/a1")
	require.NoError(t, err)
	assert.Equal(t, news.ID, profile.PatternID)
	assert.False(t, profile.Default)

	// The default applies only when nothing else matches.
	profile, err = env.admin.MatchPattern(ctx, srv.URL+"/about")
	require.NoError(t, err)
	assert.Equal(t, crawler.DefaultPatternID, profile.PatternID)
	assert.True(t, profile.Default)
}

func TestExtractURL(t *testing.T) {
	env := newTestEnv(t)
	srv := newsSite(t)
	ctx := context.Background()

	extract, profile, err := env.admin.ExtractURL(ctx, srv.URL+"/news/a1", ExtractOptions{
		Save:           true,
		KeepCandidates: true,
	})
	require.NoError(t, err)
	assert.Nil(t, profile)
	require.NotNil(t, extract)
	assert.NotEmpty(t, extract.Title)

	stored, err := env.storage.PageStorage().GetExtracted(ctx, srv.URL+"/news/a1")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestExtractURLSaveSideEffects(t *testing.T) {
	env := newTestEnv(t)
	srv := newsSite(t)
	site, crawler := seedSite(t, env, srv)
	ctx := context.Background()

	extract, _, err := env.admin.ExtractURL(ctx, srv.URL+"/news/a1", ExtractOptions{
		Save:           true,
		KeepCandidates: true,
	})
	require.NoError(t, err)

	// The raw scrape is persisted alongside the extraction.
	crawled, err := env.storage.PageStorage().GetCrawled(ctx, srv.URL+"/news/a1")
	require.NoError(t, err)
	require.NotNil(t, crawled)

	// The matched pattern is stamped even without MustMatchPattern.
	assert.Equal(t, crawler.DefaultPatternID, extract.URLPatternID)
	stored, err := env.storage.PageStorage().GetExtracted(ctx, srv.URL+"/news/a1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, extract.URLPatternID, stored.URLPatternID)

	// The site aggregates absorb the extraction.
	cand, err := env.storage.AggregateStorage().GetCandidate(ctx, site.Hostname, "Acme Corp")
	require.NoError(t, err)
	require.NotNil(t, cand)
	assert.Greater(t, cand.Count, 0)
}

func TestExtractURLMustMatchPattern(t *testing.T) {
	env := newTestEnv(t)
	srv := newsSite(t)
	ctx := context.Background()

	_, _, err := env.admin.ExtractURL(ctx, srv.URL+"/news/a1", ExtractOptions{MustMatchPattern: true})
	assert.ErrorIs(t, err, patterns.ErrNoMatchedPattern)

	// Once a site with a matching pattern exists the profile comes back.
	seedSite(t, env, srv)
	extract, profile, err := env.admin.ExtractURL(ctx, srv.URL+"/news/a1", ExtractOptions{MustMatchPattern: true})
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, profile.PatternID, extract.URLPatternID)
}

func TestExtractURLDBLookup(t *testing.T) {
	env := newTestEnv(t)
	srv := newsSite(t)
	ctx := context.Background()

	// A valid stored record is served without re-scraping.
	require.NoError(t, env.storage.PageStorage().SaveExtracted(ctx, &models.ExtractedPage{
		URL:   srv.URL + "/news/a1",
		Site:  "stored",
		Title: "stored record",
	}))
	extract, _, err := env.admin.ExtractURL(ctx, srv.URL+"/news/a1", ExtractOptions{DBLookup: true})
	require.NoError(t, err)
	assert.Equal(t, "stored record", extract.Title)

	// A record with a stale entity shape is dropped and rebuilt.
	require.NoError(t, env.storage.PageStorage().SaveExtracted(ctx, &models.ExtractedPage{
		URL:      srv.URL + "/news/a1",
		Title:    "stale record",
		Entities: []models.ScoredEntity{{Name: ""}},
	}))
	extract, _, err = env.admin.ExtractURL(ctx, srv.URL+"/news/a1", ExtractOptions{DBLookup: true, Save: true})
	require.NoError(t, err)
	assert.NotEqual(t, "stale record", extract.Title)
}

func TestCatalogEntryLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	entry, err := env.admin.AddCatalogEntry(ctx, &AddCatalogEntryRequest{
		Name:     "Acme Corp",
		Category: "company",
		Source:   "manual",
	})
	require.NoError(t, err)
	assert.Equal(t, "acme corp", entry.FoldedName)

	found, err := env.storage.CatalogStorage().LookupAndTouch(ctx, "acme corp")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, entry.ID, found.ID)

	_, err = env.admin.AddCatalogEntry(ctx, &AddCatalogEntryRequest{Name: "No Category"})
	assert.Error(t, err)

	require.NoError(t, env.admin.DeleteCatalogEntry(ctx, entry.ID))
	found, err = env.storage.CatalogStorage().LookupAndTouch(ctx, "acme corp")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestDeleteSiteCascades(t *testing.T) {
	env := newTestEnv(t)
	srv := newsSite(t)
	site, crawler := seedSite(t, env, srv)
	ctx := context.Background()

	require.NoError(t, env.admin.DeleteSite(ctx, site.ID))

	gone, err := env.storage.CrawlerStorage().GetCrawler(ctx, crawler.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	stored, err := env.storage.PatternStorage().ListPatternsByCrawler(ctx, crawler.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}
