package extractor

import (
	"strings"
	"unicode"
)

// Abbreviations that end with a period mid-sentence.
var abbreviations = map[string]struct{}{
	"dr":   {},
	"vs":   {},
	"mr":   {},
	"mrs":  {},
	"prof": {},
	"inc":  {},
}

// SplitSentences splits text on sentence terminators, keeping known
// abbreviations attached to the sentence they start.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if r == '.' && isAbbreviation(current.String()) {
			continue
		}
		// Only break when followed by whitespace or end of text.
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// isAbbreviation reports whether the text accumulated so far ends in a known
// abbreviation plus its period.
func isAbbreviation(s string) bool {
	s = strings.TrimSuffix(s, ".")
	idx := strings.LastIndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	word := strings.ToLower(s[idx+1:])
	_, ok := abbreviations[word]
	return ok
}
