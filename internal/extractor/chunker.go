package extractor

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
)

// Chunker splits a sentence into named-entity chunks and the remaining
// non-entity tokens.
type Chunker interface {
	Chunk(sentence string) (chunks []string, rest []string, err error)
}

// ProseChunker runs prose's NER model over a sentence. Consecutive tokens
// labelled as one entity merge into a single chunk.
type ProseChunker struct{}

func NewProseChunker() *ProseChunker { return &ProseChunker{} }

func (p *ProseChunker) Chunk(sentence string) ([]string, []string, error) {
	doc, err := prose.NewDocument(sentence, prose.WithSegmentation(false))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to tokenize sentence: %w", err)
	}

	var chunks, rest []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
		}
	}
	for _, tok := range doc.Tokens() {
		switch {
		case strings.HasPrefix(tok.Label, "B-"):
			flush()
			current = append(current, tok.Text)
		case strings.HasPrefix(tok.Label, "I-") && len(current) > 0:
			current = append(current, tok.Text)
		default:
			flush()
			rest = append(rest, tok.Text)
		}
	}
	flush()
	return chunks, rest, nil
}
