package scraper

import (
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// fuzzyDateRes are tried against the raw page source when no time tag
// yields a date. Roughly: "12 January 2020" / "January 12, 2020",
// ISO dates, and American slash dates.
var fuzzyDateRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?),?\s+\d{4}\b`),
	regexp.MustCompile(`(?i)\b(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`\b(?:0?[1-9]|1[0-2])[-/](?:[012]?[0-9]|3[01])[-/]\d{2,4}\b`),
}

// PageDate finds the best-effort publication date of a page. Time tags win;
// when the page has none, date-shaped strings in the raw source are tried.
// Of all parsed dates not in the future, the latest is taken. Returns nil
// when nothing parses.
func PageDate(html string, doc *goquery.Document, now time.Time) *time.Time {
	var candidates []time.Time

	doc.Find("time").Each(func(_ int, s *goquery.Selection) {
		value, ok := s.Attr("datetime")
		if !ok || value == "" {
			value = s.Text()
		}
		if parsed, err := dateparse.ParseAny(value); err == nil {
			candidates = append(candidates, parsed.UTC())
		}
	})

	if best := latestNotFuture(candidates, now); best != nil {
		return best
	}

	seen := map[string]bool{}
	candidates = candidates[:0]
	for _, re := range fuzzyDateRes {
		for _, match := range re.FindAllString(html, -1) {
			if seen[match] {
				continue
			}
			seen[match] = true
			if parsed, err := dateparse.ParseAny(match); err == nil {
				candidates = append(candidates, parsed.UTC())
			}
		}
	}
	return latestNotFuture(candidates, now)
}

func latestNotFuture(candidates []time.Time, now time.Time) *time.Time {
	var best *time.Time
	for i := range candidates {
		c := candidates[i]
		if c.After(now) {
			continue
		}
		if best == nil || c.After(*best) {
			best = &c
		}
	}
	return best
}
