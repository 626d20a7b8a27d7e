package fleet

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/interfaces"
	"github.com/ternarybob/trendin/internal/models"
)

// statsLimit caps every leaderboard.
const statsLimit = 40

// SiteStats are the per-site leaderboards. The sentiment boards only admit
// names mentioned often enough to make their mean meaningful.
type SiteStats struct {
	TopEntities   []*models.SiteAggregate
	TopCandidates []*models.SiteAggregate
	TopPositive   []*models.SiteAggregate
	TopNegative   []*models.SiteAggregate
}

// Stats builds per-site statistics and reports over the aggregates and
// extracted pages.
type Stats struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

func NewStats(storage interfaces.StorageManager, logger arbor.ILogger) *Stats {
	return &Stats{storage: storage, logger: logger}
}

// SiteStats returns the leaderboards for a site, or nil when the site has
// no aggregated entities yet.
func (s *Stats) SiteStats(ctx context.Context, site string) (*SiteStats, error) {
	agg := s.storage.AggregateStorage()

	topEntities, err := agg.TopEntities(ctx, site, "count", false, 0, statsLimit)
	if err != nil {
		return nil, err
	}
	if len(topEntities) == 0 {
		return nil, nil
	}

	// Sentiment boards need a mention floor: the lowest top-board count,
	// capped at 10.
	minCount := topEntities[len(topEntities)-1].Count
	if minCount > 10 {
		minCount = 10
	}

	topCandidates, err := agg.TopCandidates(ctx, site, statsLimit)
	if err != nil {
		return nil, err
	}
	topPositive, err := agg.TopEntities(ctx, site, "sentiment", false, minCount, statsLimit)
	if err != nil {
		return nil, err
	}
	topNegative, err := agg.TopEntities(ctx, site, "sentiment", true, minCount, statsLimit)
	if err != nil {
		return nil, err
	}

	return &SiteStats{
		TopEntities:   topEntities,
		TopCandidates: topCandidates,
		TopPositive:   topPositive,
		TopNegative:   topNegative,
	}, nil
}

// reportRow is one (word, sentiment class) count in a site report.
type reportRow struct {
	word  string
	class string
	count int
}

// SiteReport builds the pipe-separated word report for a site: for every
// include word (minus excludes), how often it appeared as an entity per
// sentiment class, and how often as a candidate (class "unknown").
func (s *Stats) SiteReport(ctx context.Context, site *models.Site, include, exclude []string) (string, error) {
	words := make(map[string]struct{}, len(include))
	for _, w := range include {
		words[models.FoldName(w)] = struct{}{}
	}
	for _, w := range exclude {
		delete(words, models.FoldName(w))
	}

	pages, err := s.storage.PageStorage().ListExtractedBySite(ctx, site.Hostname)
	if err != nil {
		return "", err
	}
	totalScanned, err := s.storage.PageStorage().CountExtracted(ctx)
	if err != nil {
		return "", err
	}

	counts := make(map[string]map[string]int) // word -> class -> count
	bump := func(word, class string, n int) {
		if _, ok := words[word]; !ok {
			return
		}
		if counts[word] == nil {
			counts[word] = make(map[string]int)
		}
		counts[word][class] += n
	}
	for _, page := range pages {
		for _, e := range page.Entities {
			bump(models.FoldName(e.Name), e.Sentiment.Class, e.Sentiment.Count)
		}
		for _, c := range page.Candidates {
			bump(models.FoldName(c.Name), "unknown", 1)
		}
	}

	var rows []reportRow
	for word, classes := range counts {
		for class, count := range classes {
			rows = append(rows, reportRow{word: word, class: class, count: count})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].word != rows[j].word {
			return rows[i].word > rows[j].word
		}
		return rows[i].class < rows[j].class
	})

	var b strings.Builder
	fmt.Fprintf(&b, "-------------------------------------------\n\n")
	fmt.Fprintf(&b, "TrendIN Site report for:\n%s (%s)\n\n", site.Name, site.URL)
	fmt.Fprintf(&b, "Total Include words:\n%d\n\n", len(include))
	fmt.Fprintf(&b, "Total Excluded words:\n%d\n\n", len(exclude))
	fmt.Fprintf(&b, "Total URL's Scanned:\n%d\n\n", totalScanned)
	fmt.Fprintf(&b, "Total URL's Matched:\n%d\n\n", len(pages))
	fmt.Fprintf(&b, "-------------------------------------------\n")
	fmt.Fprintf(&b, "Word, Sentiment, count\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "%s|%s|%d\n", row.word, row.class, row.count)
	}
	return b.String(), nil
}
