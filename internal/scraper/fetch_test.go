package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNormalizesWhitespace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TrendIn", r.Header.Get("User-Agent"))
		w.Write([]byte("<html>\n\n  <body>   hello\tworld </body>\n</html>"))
	}))
	defer srv.Close()

	body, err := testFetcher().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html> <body> hello world </body> </html>", body)
}

func TestGetErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher().Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestIsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		case "/data":
			w.Header().Set("Content-Type", "application/json")
		}
	}))
	defer srv.Close()

	f := testFetcher()
	ctx := context.Background()

	// URLs naming .html pass without a probe.
	assert.True(t, f.IsHTML(ctx, "https://example.com/story.html"))
	assert.True(t, f.IsHTML(ctx, "https://example.com/story.htm"))

	assert.True(t, f.IsHTML(ctx, srv.URL+"/page"))
	assert.False(t, f.IsHTML(ctx, srv.URL+"/data"))
	// No content type header at all passes.
	assert.True(t, f.IsHTML(ctx, srv.URL+"/bare"))
}

func TestIsFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed":
			w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		case "/atom":
			w.Header().Set("Content-Type", "application/atom+xml")
		default:
			w.Header().Set("Content-Type", "text/html")
		}
	}))
	defer srv.Close()

	f := testFetcher()
	ctx := context.Background()

	assert.True(t, f.IsFeed(ctx, srv.URL+"/feed"))
	assert.True(t, f.IsFeed(ctx, srv.URL+"/atom"))
	assert.False(t, f.IsFeed(ctx, srv.URL+"/page"))
}

func TestFindFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head>
<link rel="alternate" type="application/rss+xml" href="/rss.xml">
</head><body></body></html>`))
	}))
	defer srv.Close()

	feed, err := testFetcher().FindFeed(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/rss.xml", feed)
}
