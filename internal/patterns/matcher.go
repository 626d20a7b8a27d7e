package patterns

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/common"
	"github.com/ternarybob/trendin/internal/interfaces"
	"github.com/ternarybob/trendin/internal/models"
)

// Matcher resolves URLs against stored patterns without a crawler in hand.
// Used when a URL arrives outside a crawl pass, e.g. an ad-hoc extraction
// request.
type Matcher struct {
	patterns interfaces.PatternStorage
	crawlers interfaces.CrawlerStorage
	logger   arbor.ILogger
}

// NewMatcher creates a Matcher over stored patterns.
func NewMatcher(patterns interfaces.PatternStorage, crawlers interfaces.CrawlerStorage, logger arbor.ILogger) *Matcher {
	return &Matcher{
		patterns: patterns,
		crawlers: crawlers,
		logger:   logger,
	}
}

// hostnameVariants returns the URL's hostname with and without a leading
// "www.", canonical form first. Patterns are stored under the hostname the
// site was registered with, which may differ from how the URL spells it.
func hostnameVariants(rawURL string) []string {
	var hosts []string
	for _, variant := range common.HostVariants(rawURL) {
		if host := models.HostnameOf(variant); host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

// Match finds the profile for a URL across every crawler whose patterns
// are registered for the URL's hostname, with or without "www.". The first
// non-default match in storage order wins; a crawler's default pattern
// applies only when nothing else matched.
func (m *Matcher) Match(ctx context.Context, rawURL string) (*models.PatternProfile, error) {
	cleaned, ok := Validate(rawURL)
	if !ok {
		return nil, ErrNoMatchedPattern
	}

	defaults := map[string]string{} // crawler id -> default pattern id
	var defaultMatch *models.URLPattern
	for _, host := range hostnameVariants(cleaned) {
		stored, err := m.patterns.ListPatternsByHostname(ctx, host)
		if err != nil {
			return nil, err
		}
		for _, p := range stored {
			re, err := Compile(p.Pattern)
			if err != nil {
				m.logger.Warn().Err(err).Str("pattern_id", p.ID).Msg("Skipping uncompilable pattern")
				continue
			}
			if !re.MatchString(cleaned) {
				continue
			}

			defaultID, seen := defaults[p.CrawlerID]
			if !seen {
				crawler, err := m.crawlers.GetCrawler(ctx, p.CrawlerID)
				if err != nil {
					return nil, err
				}
				if crawler != nil {
					defaultID = crawler.DefaultPatternID
				}
				defaults[p.CrawlerID] = defaultID
			}
			if p.ID == defaultID && defaultID != "" {
				if defaultMatch == nil {
					defaultMatch = p
				}
				continue
			}
			return models.ProfileOf(p, false), nil
		}
	}
	if defaultMatch != nil {
		return models.ProfileOf(defaultMatch, true), nil
	}
	return nil, ErrNoMatchedPattern
}
