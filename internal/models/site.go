package models

import (
	"net/url"
	"strings"
	"time"
)

// Status is the enabled/disabled switch shared by sites and crawlers.
type Status int

const (
	StatusDisabled Status = 0
	StatusEnabled  Status = 1
)

// Enabled reports whether the status is anything other than disabled.
func (s Status) Enabled() bool {
	return s != StatusDisabled
}

// Site is a publisher website. It owns crawlers; crawlers reference it by
// SiteID rather than a back-pointer so the Site/Crawler/Pattern cycle stays
// id-keyed.
type Site struct {
	ID            string    `json:"id" badgerhold:"key"`
	Name          string    `json:"name"`
	PublisherName string    `json:"publisher_name"`
	URL           string    `json:"url"`
	Hostname      string    `json:"hostname" badgerhold:"index"`
	Category      string    `json:"category"`
	Status        Status    `json:"status"`
	Pages         int       `json:"pages"`
	DateCreated   time.Time `json:"date_created"`
	DateUpdated   time.Time `json:"date_updated"`
}

// HostnameOf extracts the canonical hostname from a seed URL.
func HostnameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
