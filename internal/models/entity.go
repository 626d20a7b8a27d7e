package models

import "strings"

// CatalogEntry is one curated name in the entity catalog. Lookup is by
// FoldedName; disabled entries never match.
type CatalogEntry struct {
	ID         string `json:"id" badgerhold:"key"`
	Name       string `json:"name"`
	FoldedName string `json:"_name" badgerhold:"index"`
	Category   string `json:"category"`
	Source     string `json:"source"`
	Occur      int    `json:"occur"`
	Disabled   bool   `json:"disabled"`
}

// FoldName normalizes an entity name for catalog lookup.
func FoldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SiteAggregate is the per-(site, name) accumulation of entity mentions.
// Count only grows; Sentiment is the count-weighted running mean. The same
// shape serves both the entity and the candidate aggregate sets, which are
// stored separately.
type SiteAggregate struct {
	Key        string  `json:"-" badgerhold:"key"` // site + "|" + folded name
	Site       string  `json:"site" badgerhold:"index"`
	Name       string  `json:"name"`
	FoldedName string  `json:"_name"`
	Count      int     `json:"count"`
	Sentiment  float64 `json:"sentiment"`
}

// AggregateKey builds the storage key for a (site, name) aggregate.
func AggregateKey(site, name string) string {
	return site + "|" + FoldName(name)
}
