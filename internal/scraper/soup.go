package scraper

import (
	"context"
	"strings"

	"github.com/ternarybob/trendin/internal/models"
	"golang.org/x/net/html"
)

var visibleTags = map[string]bool{
	"body": true, "div": true, "span": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "blockquote": true, "pre": true, "a": true, "abbr": true,
	"acronym": true, "address": true, "big": true, "cite": true, "code": true,
	"del": true, "dfn": true, "em": true, "img": true, "ins": true, "kbd": true,
	"q": true, "s": true, "samp": true, "small": true, "strike": true,
	"strong": true, "sub": true, "sup": true, "tt": true, "var": true,
	"b": true, "u": true, "i": true, "center": true, "dl": true, "dt": true,
	"dd": true, "ol": true, "ul": true, "li": true, "fieldset": true,
	"form": true, "label": true, "legend": true, "table": true,
	"caption": true, "tbody": true, "tfoot": true, "thead": true, "tr": true,
	"th": true, "td": true, "article": true, "aside": true, "canvas": true,
	"details": true, "figcaption": true, "footer": true, "header": true,
	"hgroup": true, "menu": true, "nav": true, "output": true, "ruby": true,
	"section": true, "summary": true, "time": true, "mark": true,
}

// semanticTags mark short strings worth keeping as entity highlights.
var semanticTags = map[string]bool{
	"span": true, "em": true, "strong": true, "dfn": true, "a": true,
	"big": true, "b": true, "u": true, "i": true, "mark": true,
	"figcaption": true, "q": true,
}

var groupingTags = map[string]bool{
	"p": true, "div": true, "article": true, "aside": true,
	"figcaption": true, "main": true, "nav": true, "section": true,
}

const (
	// semanticTextMaxWords caps how long a highlighted string may be.
	semanticTextMaxWords = 5
	// junkCutoff drops text pieces shorter than this fraction of the
	// longest piece on the page.
	junkCutoff = 0.3
)

// SoupScraper extracts the visible text of a page tag by tag, grouping
// pieces by their nearest block ancestor and cutting short junk pieces
// (menus, ads) relative to the longest piece.
type SoupScraper struct {
	base
}

func (s *SoupScraper) Kind() string { return KindSoup }

func (s *SoupScraper) Scrape(ctx context.Context, pageURL string) (*models.CrawledPage, error) {
	rawHTML, doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	page := s.page(pageURL, KindSoup, rawHTML, doc)

	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	pieces, highlights := extractTextPieces(root)
	grouped := groupText(pieces)

	var text []string
	for _, p := range grouped {
		if t := strings.TrimSpace(p.text); t != "" {
			text = append(text, t)
		}
	}
	text, highlights = cutJunk(text, highlights)

	title := strings.TrimSpace(doc.Find("title").First().Text())
	page.Title = title
	page.Text = append([]string{title}, text...)
	page.Highlights = highlights
	return page, nil
}

// piece is one visible string with the node it came from, kept so adjacent
// strings can be grouped by block ancestor.
type piece struct {
	text string
	node *html.Node
}

func extractTextPieces(n *html.Node) ([]piece, []string) {
	var pieces []piece
	var highlights []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode && n.Parent != nil &&
			n.Parent.Type == html.ElementNode && visibleTags[n.Parent.Data] {
			t := normalizeSpace(n.Data)
			if t != "" && semanticTags[n.Parent.Data] && len(strings.Fields(t)) <= semanticTextMaxWords {
				highlights = append(highlights, t)
			}
			if len(t) > 2 {
				pieces = append(pieces, piece{text: t, node: n})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return pieces, highlights
}

// groupingParent walks up to the nearest block-level ancestor.
func groupingParent(n *html.Node) *html.Node {
	for n != nil {
		if n.Type == html.ElementNode && groupingTags[n.Data] {
			return n
		}
		n = n.Parent
	}
	return nil
}

// groupText merges adjacent pieces that share a block ancestor into one
// piece, joined with spaces.
func groupText(pieces []piece) []piece {
	if len(pieces) == 0 {
		return nil
	}
	result := []piece{pieces[0]}
	for _, p := range pieces[1:] {
		last := &result[len(result)-1]
		if groupingParent(p.node) == groupingParent(last.node) {
			last.text = last.text + " " + p.text
		} else {
			result = append(result, p)
		}
	}
	return result
}

// cutJunk keeps only pieces longer than junkCutoff of the longest piece,
// then keeps only the highlights that still appear in surviving text.
func cutJunk(text, highlights []string) ([]string, []string) {
	if len(text) == 0 {
		return text, nil
	}

	longest := 0
	for _, t := range text {
		if len(t) > longest {
			longest = len(t)
		}
	}
	if longest == 0 {
		return text, nil
	}

	var kept []string
	for _, t := range text {
		if float64(len(t))/float64(longest) > junkCutoff {
			kept = append(kept, t)
		}
	}

	var keptHighlights []string
	seen := map[string]bool{}
	for _, h := range highlights {
		if seen[h] {
			continue
		}
		for _, t := range kept {
			if strings.Contains(t, h) {
				seen[h] = true
				keptHighlights = append(keptHighlights, h)
				break
			}
		}
	}
	return kept, keptHighlights
}
