// Package extractor finds named entities in crawled pages, scores the
// sentiment of the sentences they appear in, and rolls the results up into
// per-site aggregates.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/common"
	"github.com/ternarybob/trendin/internal/interfaces"
	"github.com/ternarybob/trendin/internal/models"
)

// KindEntities names the default extractor.
const KindEntities = "entities"

// ErrEmptyText reports a page with nothing to extract from.
var ErrEmptyText = errors.New("page has no text")

// Service extracts scored entities from crawled pages. Chunking is
// pluggable; the default chunker runs prose's NER model.
type Service struct {
	classifier *SentimentClassifier
	chunker    Chunker
	dict       *Dictionary
	config     *common.ExtractorConfig
	logger     arbor.ILogger
}

func NewService(catalog interfaces.CatalogStorage, config *common.ExtractorConfig, logger arbor.ILogger) (*Service, error) {
	classifier, err := NewSentimentClassifier()
	if err != nil {
		return nil, fmt.Errorf("failed to build sentiment classifier: %w", err)
	}
	return &Service{
		classifier: classifier,
		chunker:    NewProseChunker(),
		dict:       NewDictionary(catalog, config.CacheSize),
		config:     config,
		logger:     logger,
	}, nil
}

// WithChunker replaces the NER chunker.
func (s *Service) WithChunker(c Chunker) *Service {
	s.chunker = c
	return s
}

// Dictionary returns the catalog lookup cache.
func (s *Service) Dictionary() *Dictionary {
	return s.dict
}

// tally is the running-mean sentiment for one entity or candidate on one
// page.
type tally struct {
	name     string
	category string
	count    int
	score    float64
}

// addMean folds a sentence score into the running mean.
func (t *tally) addMean(score float64) {
	t.count++
	t.score = (t.score*float64(t.count-1) + score) / float64(t.count)
}

// tallySet keeps tallies in first-seen order.
type tallySet struct {
	byKey map[string]*tally
	order []string
}

func newTallySet() *tallySet {
	return &tallySet{byKey: make(map[string]*tally)}
}

func (ts *tallySet) get(key, name, category string) *tally {
	t, ok := ts.byKey[key]
	if !ok {
		t = &tally{name: name, category: category}
		ts.byKey[key] = t
		ts.order = append(ts.order, key)
	}
	return t
}

func (ts *tallySet) scored() []models.ScoredEntity {
	out := make([]models.ScoredEntity, 0, len(ts.order))
	for _, key := range ts.order {
		t := ts.byKey[key]
		out = append(out, models.ScoredEntity{
			Name:     t.name,
			Category: t.category,
			Sentiment: models.Sentiment{
				Score: t.score,
				Count: t.count,
				Class: models.ClassOf(t.score),
			},
		})
	}
	return out
}

func entityKey(name, category string) string {
	return name + "." + category
}

// Extract runs the full pipeline over one crawled page.
func (s *Service) Extract(ctx context.Context, page *models.CrawledPage) (*models.ExtractedPage, error) {
	if page == nil || len(page.Text) == 0 {
		return nil, ErrEmptyText
	}
	text := strings.Join(page.Text, " . ")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	entities := newTallySet()
	candidates := newTallySet()
	var entityMentions, candidateMentions []string

	for _, sentence := range SplitSentences(text) {
		if len(sentence) < 3 {
			continue
		}
		sentEntities, sentCandidates, err := s.processSentence(ctx, sentence, page.Highlights, entities, candidates)
		if err != nil {
			return nil, err
		}
		entityMentions = append(entityMentions, sentEntities...)
		candidateMentions = append(candidateMentions, sentCandidates...)
	}

	// The title is scored last, into the same tallies, and weighs extra in
	// the suggestion ranking.
	var titleEntities, titleCandidates []string
	if len(page.Title) >= 3 {
		var err error
		titleEntities, titleCandidates, err = s.processSentence(ctx, page.Title, page.Highlights, entities, candidates)
		if err != nil {
			return nil, err
		}
	}

	if err := s.processKeywords(ctx, page.Keywords(), entities); err != nil {
		return nil, err
	}

	result := &models.ExtractedPage{
		URL:               page.URL,
		Site:              models.HostnameOf(page.URL),
		Parser:            page.Parser,
		Extractor:         KindEntities,
		ExtractedAt:       time.Now().UTC(),
		Title:             page.Title,
		Text:              text,
		Keywords:          page.Keywords(),
		Entities:          entities.scored(),
		SuggestedEntities: s.suggest(titleEntities, entityMentions, titleCandidates, candidateMentions),
	}
	if s.config.KeepCandidates {
		result.Candidates = candidates.scored()
	}
	return result, nil
}

// processSentence chunks one sentence, resolves the chunks against the
// catalog, scores the sentence's non-entity text and folds the score into
// the page tallies. Returns the entity and candidate names seen.
func (s *Service) processSentence(ctx context.Context, sentence string, highlights []string, entities, candidates *tallySet) ([]string, []string, error) {
	chunks, rest, err := s.chunker.Chunk(sentence)
	if err != nil {
		return nil, nil, err
	}

	var sentEntities []*models.CatalogEntry
	var sentCandidates []string
	residue := rest
	for _, chunk := range chunks {
		if len(chunk) < 2 {
			continue
		}
		entry, err := s.dict.Check(ctx, chunk)
		if err != nil {
			return nil, nil, err
		}
		if entry != nil {
			sentEntities = append(sentEntities, entry)
			continue
		}
		sentCandidates = append(sentCandidates, chunk)
		// Candidate names still count toward sentence sentiment; known
		// entity names do not.
		residue = append(residue, chunk)
	}

	// Highlighted strings the chunker missed get a second chance, as long
	// as they actually occur in this sentence.
	for _, h := range highlights {
		if len(h) < 2 || !strings.Contains(sentence, h) {
			continue
		}
		if seen(sentEntities, sentCandidates, h) {
			continue
		}
		entry, err := s.dict.Check(ctx, h)
		if err != nil {
			return nil, nil, err
		}
		if entry != nil {
			sentEntities = append(sentEntities, entry)
		} else {
			sentCandidates = append(sentCandidates, h)
		}
	}

	if len(sentEntities) == 0 && len(sentCandidates) == 0 {
		return nil, nil, nil
	}
	sentiment := s.classifier.Score(strings.Join(residue, " "))

	entityNames := make([]string, 0, len(sentEntities))
	for _, e := range sentEntities {
		entities.get(entityKey(e.Name, e.Category), e.Name, e.Category).addMean(sentiment)
		entityNames = append(entityNames, e.Name)
	}
	for _, c := range sentCandidates {
		candidates.get(c, c, "").addMean(sentiment)
	}
	return entityNames, sentCandidates, nil
}

func seen(entries []*models.CatalogEntry, names []string, h string) bool {
	for _, e := range entries {
		if strings.EqualFold(e.Name, h) {
			return true
		}
	}
	for _, n := range names {
		if strings.EqualFold(n, h) {
			return true
		}
	}
	return false
}

// processKeywords folds page metadata keywords that name known entities into
// the entity tallies with a neutral score.
func (s *Service) processKeywords(ctx context.Context, keywords []string, entities *tallySet) error {
	for _, kw := range keywords {
		entry, err := s.dict.Check(ctx, kw)
		if err != nil {
			return err
		}
		if entry == nil {
			continue
		}
		entities.get(entityKey(entry.Name, entry.Category), entry.Name, entry.Category).addMean(0)
	}
	return nil
}

// suggest ranks names for the suggestion list: title mentions weigh
// TitleWeight, known entities weigh EntityWeight over candidates, ties keep
// first-seen order.
func (s *Service) suggest(titleEntities, entityMentions, titleCandidates, candidateMentions []string) []string {
	counts := make(map[string]int)
	var order []string
	add := func(name string, weight int) {
		if _, ok := counts[name]; !ok {
			order = append(order, name)
		}
		counts[name] += weight
	}

	for _, n := range titleEntities {
		add(n, s.config.TitleWeight)
	}
	for _, n := range entityMentions {
		add(n, 1)
	}
	for _, n := range order {
		counts[n] *= s.config.EntityWeight
	}
	for _, n := range titleCandidates {
		add(n, s.config.TitleWeight)
	}
	for _, n := range candidateMentions {
		add(n, 1)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	return order
}
