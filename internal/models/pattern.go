package models

// URLPattern gates which discovered URLs a crawler harvests and binds
// matched URLs to a category/exclusion/ad-script profile. The regex source
// is compiled case-insensitively, anchored at the start of the URL.
type URLPattern struct {
	ID                  string   `json:"id" badgerhold:"key"`
	CrawlerID           string   `json:"crawler_id" badgerhold:"index"`
	Hostname            string   `json:"hostname" badgerhold:"index"`
	Pattern             string   `json:"pattern"`
	HarvesterCategories []string `json:"harvester_categories"`
	ExcludeWords        []string `json:"exclude_words"`
	AdScript            string   `json:"ad_script"`
}

// PatternProfile is the result of matching a URL against a pattern set.
type PatternProfile struct {
	PatternID  string
	CrawlerID  string
	Categories []string
	Exclude    []string
	AdScript   string
	Default    bool
}

// ProfileOf builds the match profile for a pattern.
func ProfileOf(p *URLPattern, isDefault bool) *PatternProfile {
	return &PatternProfile{
		PatternID:  p.ID,
		CrawlerID:  p.CrawlerID,
		Categories: p.HarvesterCategories,
		Exclude:    p.ExcludeWords,
		AdScript:   p.AdScript,
		Default:    isDefault,
	}
}
