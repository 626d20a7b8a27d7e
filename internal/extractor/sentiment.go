package extractor

import (
	"bufio"
	"embed"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

//go:embed datasets/AFINN-111.txt
var datasets embed.FS

var wordSplitRe = regexp.MustCompile(`\W+`)

// SentimentClassifier scores text against the AFINN-111 valence lexicon.
// Scores are squashed into (-1, 1); text with no scored words is 0.
type SentimentClassifier struct {
	valences map[string]float64
}

func NewSentimentClassifier() (*SentimentClassifier, error) {
	f, err := datasets.Open("datasets/AFINN-111.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to open sentiment lexicon: %w", err)
	}
	defer f.Close()

	valences := make(map[string]float64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		term, score, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(score), 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sentiment lexicon line %q: %w", line, err)
		}
		valences[term] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sentiment lexicon: %w", err)
	}
	return &SentimentClassifier{valences: valences}, nil
}

// Score averages the valences of the scored words in text and squashes the
// mean through a sigmoid. Words the lexicon scores zero are ignored.
func (c *SentimentClassifier) Score(text string) float64 {
	var sum float64
	var n int
	for _, word := range wordSplitRe.Split(strings.ToLower(text), -1) {
		v, ok := c.valences[word]
		if !ok || v == 0 {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return squash(sum / float64(n))
}

// squash maps a raw mean valence into (-1, 1), steepened so that single
// strong words land well away from neutral.
func squash(mean float64) float64 {
	return (1/(1+math.Exp(-2*mean)))*2 - 1
}
