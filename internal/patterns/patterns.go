// Package patterns compiles URL patterns and decides which discovered URLs
// a crawler harvests.
package patterns

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/trendin/internal/common"
	"github.com/ternarybob/trendin/internal/models"
)

var (
	// ErrInvalidRegex reports a pattern whose source does not compile.
	ErrInvalidRegex = errors.New("invalid url pattern")
	// ErrNoMatchedPattern reports a URL no pattern in the set accepts.
	ErrNoMatchedPattern = errors.New("no matched url pattern")
)

// skippedExtensions are file types never worth harvesting.
var skippedExtensions = []string{".jpg", ".png"}

// Validate normalizes a discovered URL before matching. It strips the
// fragment and rejects image files. The returned bool reports whether the
// URL is worth matching at all.
func Validate(rawURL string) (string, bool) {
	url := common.StripFragment(rawURL)
	if url == "" {
		return "", false
	}

	lower := strings.ToLower(url)
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(lower, ext) {
			return "", false
		}
	}
	return url, true
}

// compiled pairs a stored pattern with its anchored regex.
type compiled struct {
	pattern *models.URLPattern
	re      *regexp.Regexp
}

// Set is a crawler's pattern collection. Order follows the slice the set
// was built from; the default pattern participates in matching but loses to
// any non-default match.
type Set struct {
	entries   []compiled
	defaultID string
}

// Compile anchors a pattern source at the start of the URL, matching
// case-insensitively. A pattern matches a prefix of the URL, not a
// substring somewhere inside it.
func Compile(source string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)^(?:" + source + ")")
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRegex, source, err)
	}
	return re, nil
}

// NewSet compiles a pattern collection. defaultID names the crawler's
// default pattern; it may be empty when the crawler has none.
func NewSet(patterns []*models.URLPattern, defaultID string) (*Set, error) {
	set := &Set{defaultID: defaultID}
	for _, p := range patterns {
		re, err := Compile(p.Pattern)
		if err != nil {
			return nil, err
		}
		set.entries = append(set.entries, compiled{pattern: p, re: re})
	}
	return set, nil
}

// Len returns the number of patterns in the set.
func (s *Set) Len() int {
	return len(s.entries)
}

// Match finds the profile for a URL. The first matching non-default
// pattern wins; the default pattern only applies when nothing else
// matches. Returns ErrNoMatchedPattern when no pattern accepts the URL.
func (s *Set) Match(url string) (*models.PatternProfile, error) {
	var fallback *models.PatternProfile
	for _, entry := range s.entries {
		if !entry.re.MatchString(url) {
			continue
		}
		if entry.pattern.ID == s.defaultID && s.defaultID != "" {
			if fallback == nil {
				fallback = models.ProfileOf(entry.pattern, true)
			}
			continue
		}
		return models.ProfileOf(entry.pattern, false), nil
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, ErrNoMatchedPattern
}

// MatchAny reports whether any pattern in the set accepts the URL,
// default included.
func (s *Set) MatchAny(url string) bool {
	_, err := s.Match(url)
	return err == nil
}
