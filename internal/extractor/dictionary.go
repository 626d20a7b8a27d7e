package extractor

import (
	"context"
	"sync"

	"github.com/ternarybob/trendin/internal/interfaces"
	"github.com/ternarybob/trendin/internal/models"
)

// Dictionary answers "is this name a known entity" against the catalog,
// caching both hits and misses. Each cache holds at most cap entries; a full
// cache is cleared wholesale rather than evicted piecemeal, and the entry
// that found it full is not cached.
type Dictionary struct {
	mu      sync.Mutex
	catalog interfaces.CatalogStorage
	cap     int
	hits    map[string]*models.CatalogEntry
	misses  map[string]struct{}
}

func NewDictionary(catalog interfaces.CatalogStorage, cacheSize int) *Dictionary {
	if cacheSize <= 0 {
		cacheSize = 120
	}
	return &Dictionary{
		catalog: catalog,
		cap:     cacheSize,
		hits:    make(map[string]*models.CatalogEntry),
		misses:  make(map[string]struct{}),
	}
}

// Check resolves a name to its catalog entry, or nil when the name is not a
// known live entity. Catalog lookups bump the entry's occurrence counter.
func (d *Dictionary) Check(ctx context.Context, name string) (*models.CatalogEntry, error) {
	folded := models.FoldName(name)
	if folded == "" {
		return nil, nil
	}

	d.mu.Lock()
	if entry, ok := d.hits[folded]; ok {
		d.mu.Unlock()
		return entry, nil
	}
	if _, ok := d.misses[folded]; ok {
		d.mu.Unlock()
		return nil, nil
	}
	d.mu.Unlock()

	entry, err := d.catalog.LookupAndTouch(ctx, folded)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if entry == nil {
		if len(d.misses) >= d.cap {
			d.misses = make(map[string]struct{})
		} else {
			d.misses[folded] = struct{}{}
		}
		return nil, nil
	}
	if len(d.hits) >= d.cap {
		d.hits = make(map[string]*models.CatalogEntry)
	} else {
		d.hits[folded] = entry
	}
	return entry, nil
}

// Reset drops both caches. Called when the catalog changes underneath.
func (d *Dictionary) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hits = make(map[string]*models.CatalogEntry)
	d.misses = make(map[string]struct{})
}
