package models

import "time"

// CrawledPage is the raw scrape of one URL. Records are cache-like:
// ExpiresAt drives freshness, and a record past its expiry is treated as
// absent so the URL becomes fetchable again.
type CrawledPage struct {
	URL        string              `json:"url" badgerhold:"key"`
	Parser     string              `json:"parser"`
	HTML       string              `json:"html"`
	Links      []string            `json:"links"`
	FetchedAt  time.Time           `json:"fetched_at"`
	Date       *time.Time          `json:"date"` // best-effort publication date
	Metadata   map[string][]string `json:"metadata"`
	Text       []string            `json:"text"`
	Title      string              `json:"title"`
	Highlights []string            `json:"highlighted_strings"`
	Category   string              `json:"category" badgerhold:"index"`
	ExpiresAt  time.Time           `json:"expires_at"`
}

// Fresh reports whether the record is still inside its TTL.
func (p *CrawledPage) Fresh(now time.Time) bool {
	return p != nil && p.ExpiresAt.After(now)
}

// Keywords returns the metadata keywords list, if any.
func (p *CrawledPage) Keywords() []string {
	if p.Metadata == nil {
		return nil
	}
	return p.Metadata["keywords"]
}

// Sentiment classes.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Sentiment is the score triple attached to every extracted entity.
type Sentiment struct {
	Score float64 `json:"score"`
	Count int     `json:"count"`
	Class string  `json:"type"`
}

// ClassOf maps a score to its sentiment class.
func ClassOf(score float64) string {
	switch {
	case score > 0:
		return SentimentPositive
	case score < 0:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// ScoredEntity is an entity or candidate occurrence on one page, with the
// running-mean sentiment accumulated across its sentences. Candidates carry
// an empty Category.
type ScoredEntity struct {
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Sentiment Sentiment `json:"sentiment"`
}

// ExtractedPage is the durable extraction result for one URL, updated in
// place on re-extraction.
type ExtractedPage struct {
	URL               string         `json:"url" badgerhold:"key"`
	Site              string         `json:"site" badgerhold:"index"`
	Parser            string         `json:"parser"`
	Extractor         string         `json:"extractor"`
	ExtractedAt       time.Time      `json:"extracted_at"`
	Title             string         `json:"title"`
	Text              string         `json:"text"`
	Keywords          []string       `json:"keywords"`
	Entities          []ScoredEntity `json:"entities"`
	Candidates        []ScoredEntity `json:"candidates"`
	SuggestedEntities []string       `json:"suggested_entities"`
	URLPatternID      string         `json:"url_pattern_id,omitempty"`
	Categories        []string       `json:"category"`
	Exclude           []string       `json:"exclude"`
}
