package extractor

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/interfaces"
	"github.com/ternarybob/trendin/internal/models"
)

// Aggregator folds extracted pages into the per-site entity and candidate
// aggregates.
type Aggregator struct {
	storage interfaces.AggregateStorage
	logger  arbor.ILogger
}

func NewAggregator(storage interfaces.AggregateStorage, logger arbor.ILogger) *Aggregator {
	return &Aggregator{storage: storage, logger: logger}
}

// Apply merges one extracted page into its site's aggregates. Counts only
// grow; sentiment is a count-weighted running mean. A neutral page score
// leaves a known entity's stored sentiment untouched so that keyword-only
// mentions do not wash real signal out.
func (a *Aggregator) Apply(ctx context.Context, page *models.ExtractedPage) error {
	if page.Site == "" {
		return fmt.Errorf("extracted page %s has no site", page.URL)
	}

	entities, err := a.merge(ctx, page.Site, page.Entities, a.storage.GetEntity, true)
	if err != nil {
		return fmt.Errorf("failed to merge entity aggregates for %s: %w", page.Site, err)
	}
	candidates, err := a.merge(ctx, page.Site, page.Candidates, a.storage.GetCandidate, false)
	if err != nil {
		return fmt.Errorf("failed to merge candidate aggregates for %s: %w", page.Site, err)
	}

	if len(entities) > 0 {
		if err := a.storage.UpsertEntities(ctx, entities); err != nil {
			return fmt.Errorf("failed to save entity aggregates for %s: %w", page.Site, err)
		}
	}
	if len(candidates) > 0 {
		if err := a.storage.UpsertCandidates(ctx, candidates); err != nil {
			return fmt.Errorf("failed to save candidate aggregates for %s: %w", page.Site, err)
		}
	}

	a.logger.Debug().
		Str("site", page.Site).
		Int("entities", len(entities)).
		Int("candidates", len(candidates)).
		Msg("Aggregated extracted page")
	return nil
}

type aggregateLookup func(ctx context.Context, site, name string) (*models.SiteAggregate, error)

// merge builds the upsert batch for one aggregate set. Records for the same
// name within one page collapse before they reach storage.
func (a *Aggregator) merge(ctx context.Context, site string, scored []models.ScoredEntity, lookup aggregateLookup, keepStoredOnNeutral bool) ([]*models.SiteAggregate, error) {
	batch := make(map[string]*models.SiteAggregate)
	var order []string

	for _, e := range scored {
		key := models.AggregateKey(site, e.Name)
		current, ok := batch[key]
		if !ok {
			stored, err := lookup(ctx, site, e.Name)
			if err != nil {
				return nil, err
			}
			if stored != nil {
				current = stored
			}
		}
		if current == nil {
			batch[key] = &models.SiteAggregate{
				Key:        key,
				Site:       site,
				Name:       e.Name,
				FoldedName: models.FoldName(e.Name),
				Count:      e.Sentiment.Count,
				Sentiment:  e.Sentiment.Score,
			}
			if !ok {
				order = append(order, key)
			}
			continue
		}

		total := current.Count + e.Sentiment.Count
		if total > 0 {
			if !(keepStoredOnNeutral && e.Sentiment.Score == 0) {
				current.Sentiment = (current.Sentiment*float64(current.Count) + e.Sentiment.Score*float64(e.Sentiment.Count)) / float64(total)
			}
			current.Count = total
		}
		if !ok {
			batch[key] = current
			order = append(order, key)
		}
	}

	out := make([]*models.SiteAggregate, 0, len(order))
	for _, key := range order {
		out = append(out, batch[key])
	}
	return out, nil
}
