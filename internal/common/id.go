package common

import (
	"github.com/google/uuid"
)

// NewSiteID generates a unique site ID with the "site_" prefix
func NewSiteID() string {
	return "site_" + uuid.New().String()
}

// NewCrawlerID generates a unique crawler ID with the "crawler_" prefix
func NewCrawlerID() string {
	return "crawler_" + uuid.New().String()
}

// NewPatternID generates a unique URL pattern ID with the "pattern_" prefix
func NewPatternID() string {
	return "pattern_" + uuid.New().String()
}

// NewEntryID generates a unique catalog entry ID with the "entry_" prefix
func NewEntryID() string {
	return "entry_" + uuid.New().String()
}
