package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/common"
	"golang.org/x/time/rate"
)

// feedContentTypes are the media types a feed endpoint may answer with.
var feedContentTypes = []string{
	"application/rss+xml",
	"application/atom+xml",
	"application/rss",
	"application/atom",
	"application/rdf+xml",
	"application/rdf",
	"text/rss+xml",
	"text/atom+xml",
	"text/rss",
	"text/atom",
	"text/rdf+xml",
	"text/rdf",
	"text/xml",
	"application/xml",
}

// Fetcher downloads pages for the whole fleet, applying the shared user
// agent, timeouts, retries and a fleet-wide rate limit.
type Fetcher struct {
	client     *http.Client
	headClient *http.Client
	userAgent  string
	retries    int
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

// NewFetcher creates a Fetcher from crawler configuration.
func NewFetcher(config *common.CrawlerConfig, logger arbor.ILogger) *Fetcher {
	retries := config.RequestRetries
	if retries < 1 {
		retries = 1
	}
	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Fetcher{
		client:     &http.Client{Timeout: config.RequestTimeout},
		headClient: &http.Client{Timeout: config.HeadTimeout},
		userAgent:  config.UserAgent,
		retries:    retries,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}
}

// Get downloads a page body with whitespace collapsed to single spaces.
func (f *Fetcher) Get(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < f.retries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}

		body, err := f.get(ctx, url)
		if err == nil {
			return normalizeSpace(body), nil
		}
		lastErr = err
		f.logger.Debug().Err(err).Str("url", url).Int("attempt", attempt+1).Msg("Fetch attempt failed")
	}
	return "", fmt.Errorf("%w: %s: %v", ErrFetch, url, lastErr)
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ContentType probes a URL with a HEAD request and returns the media type
// without parameters. Empty when the server sends no content type.
func (f *Fetcher) ContentType(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.headClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(contentType), nil
}

// IsHTML reports whether a URL looks like an HTML document. URLs naming
// .html/.htm pass without a probe; anything else is checked by HEAD
// request. A URL without a content type header passes.
func (f *Fetcher) IsHTML(ctx context.Context, url string) bool {
	if strings.Contains(url, ".html") || strings.Contains(url, ".htm") {
		return true
	}

	contentType, err := f.ContentType(ctx, url)
	if err != nil {
		f.logger.Debug().Err(err).Str("url", url).Msg("Content type probe failed")
		return false
	}
	if contentType != "" && contentType != "text/html" {
		return false
	}
	return true
}

// IsFeed reports whether a URL answers with a feed content type.
func (f *Fetcher) IsFeed(ctx context.Context, url string) bool {
	contentType, err := f.ContentType(ctx, url)
	if err != nil {
		return false
	}
	for _, feedType := range feedContentTypes {
		if contentType == feedType {
			return true
		}
	}
	return false
}

// FindFeed looks for an advertised RSS feed link on a page. Returns the
// feed URL or empty when the page advertises none.
func (f *Fetcher) FindFeed(ctx context.Context, pageURL string) (string, error) {
	body, err := f.Get(ctx, pageURL)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", err
	}

	href, _ := doc.Find(`link[type="application/rss+xml"]`).First().Attr("href")
	if href == "" {
		return "", nil
	}
	return absolutize(pageURL, href), nil
}

// normalizeSpace collapses all runs of whitespace to single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
