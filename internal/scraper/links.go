package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/trendin/internal/common"
)

// absoluteURLRe finds bare absolute URLs anywhere in the page source,
// catching links that sit outside anchor tags.
var absoluteURLRe = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$\-_@.&+]|[!*(),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

// absolutize resolves a possibly relative href against the page URL.
func absolutize(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// ExtractLinks collects every link on a page: absolute URLs found in the
// raw source plus anchor hrefs resolved against the page URL. Fragments
// are stripped and duplicates removed, keeping first-seen order.
func ExtractLinks(pageURL, html string, doc *goquery.Document) []string {
	var links []string
	seen := map[string]bool{}

	add := func(link string) {
		link = common.StripFragment(link)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	}

	for _, match := range absoluteURLRe.FindAllString(html, -1) {
		add(match)
	}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href != "" {
			add(absolutize(pageURL, href))
		}
	})

	return links
}
