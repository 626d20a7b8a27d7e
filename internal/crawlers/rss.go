package crawlers

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// generateFromFeed refreshes the frontier from the crawler's feed. The
// newest window's last entry is returned for immediate crawling and the
// rest are queued. An out-of-window call pauses the crawler instead.
func (i *Instance) generateFromFeed(ctx context.Context) (string, error) {
	if !i.canCrawlStartPage() {
		i.logger.Debug().Str("crawler", i.def.ID).Msg("Feed not due yet, pausing")
		i.Pause()
		return "", nil
	}

	body, err := i.fetcher.Get(ctx, i.def.StartURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch feed %s: %w", i.def.StartURL, err)
	}
	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse feed %s: %w", i.def.StartURL, err)
	}
	if len(feed.Items) == 0 {
		return "", nil
	}

	last := feed.Items[len(feed.Items)-1]
	for _, item := range feed.Items[:len(feed.Items)-1] {
		if i.frontier.Add(item.Link) {
			i.logger.Debug().Str("url", item.Link).Msg("Queued feed url")
		}
	}
	return last.Link, nil
}

// FindFeed locates a page's advertised RSS feed URL.
func (i *Instance) FindFeed(ctx context.Context, pageURL string) (string, error) {
	return i.fetcher.FindFeed(ctx, pageURL)
}
