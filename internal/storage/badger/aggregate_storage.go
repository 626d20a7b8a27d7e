package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/trendin/internal/interfaces"
	"github.com/ternarybob/trendin/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// Entity and candidate aggregates share the SiteAggregate shape but live in
// separate key spaces so a candidate never shadows a curated entity.
const (
	aggregateEntityPrefix    = "ent|"
	aggregateCandidatePrefix = "cand|"
)

// AggregateStorage implements the AggregateStorage interface for Badger
type AggregateStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAggregateStorage creates a new AggregateStorage instance
func NewAggregateStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AggregateStorage {
	return &AggregateStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AggregateStorage) get(prefix, site, name string) (*models.SiteAggregate, error) {
	key := prefix + models.AggregateKey(site, name)
	var record models.SiteAggregate
	if err := s.db.Store().Get(key, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get aggregate: %w", err)
	}
	return &record, nil
}

func (s *AggregateStorage) upsert(prefix string, records []*models.SiteAggregate) error {
	for _, record := range records {
		if record.Site == "" || record.Name == "" {
			return fmt.Errorf("aggregate site and name are required")
		}
		if record.FoldedName == "" {
			record.FoldedName = models.FoldName(record.Name)
		}
		record.Key = prefix + models.AggregateKey(record.Site, record.Name)
		if err := s.db.Store().Upsert(record.Key, record); err != nil {
			return fmt.Errorf("failed to save aggregate %s: %w", record.Name, err)
		}
	}
	return nil
}

func (s *AggregateStorage) GetEntity(ctx context.Context, site, name string) (*models.SiteAggregate, error) {
	return s.get(aggregateEntityPrefix, site, name)
}

func (s *AggregateStorage) GetCandidate(ctx context.Context, site, name string) (*models.SiteAggregate, error) {
	return s.get(aggregateCandidatePrefix, site, name)
}

func (s *AggregateStorage) UpsertEntities(ctx context.Context, records []*models.SiteAggregate) error {
	return s.upsert(aggregateEntityPrefix, records)
}

func (s *AggregateStorage) UpsertCandidates(ctx context.Context, records []*models.SiteAggregate) error {
	return s.upsert(aggregateCandidatePrefix, records)
}

func (s *AggregateStorage) list(prefix, site string) ([]*models.SiteAggregate, error) {
	var records []models.SiteAggregate
	err := s.db.Store().Find(&records, badgerhold.Where("Site").Eq(site).Index("Site"))
	if err != nil {
		return nil, fmt.Errorf("failed to list aggregates for site: %w", err)
	}

	result := make([]*models.SiteAggregate, 0, len(records))
	for i := range records {
		if len(records[i].Key) >= len(prefix) && records[i].Key[:len(prefix)] == prefix {
			result = append(result, &records[i])
		}
	}
	return result, nil
}

// TopEntities returns the site's entity aggregates ordered by "count" or
// "sentiment", filtered to records with Count >= minCount.
func (s *AggregateStorage) TopEntities(ctx context.Context, site, orderBy string, ascending bool, minCount, limit int) ([]*models.SiteAggregate, error) {
	records, err := s.list(aggregateEntityPrefix, site)
	if err != nil {
		return nil, err
	}

	filtered := records[:0]
	for _, r := range records {
		if r.Count >= minCount {
			filtered = append(filtered, r)
		}
	}
	records = filtered

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !ascending {
			a, b = b, a
		}
		if orderBy == "sentiment" {
			return a.Sentiment < b.Sentiment
		}
		return a.Count < b.Count
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// TopCandidates returns the site's candidate aggregates by descending count.
func (s *AggregateStorage) TopCandidates(ctx context.Context, site string, limit int) ([]*models.SiteAggregate, error) {
	records, err := s.list(aggregateCandidatePrefix, site)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Count > records[j].Count
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
