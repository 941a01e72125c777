package database

import (
	"context"
	"sort"
	"sync"

	"real-estate-search/internal/listing"
)

// MemoryRepository serves listings from memory. It evaluates criteria with
// listing.Criteria.Matches, so it is also the reference the SQL and index
// adapters are compared against.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []listing.Record
}

func NewMemoryRepository(records []listing.Record) *MemoryRepository {
	r := &MemoryRepository{}
	r.Replace(records)
	return r
}

// NewMemoryRepositoryFromSeed loads a YAML seed file
func NewMemoryRepositoryFromSeed(path string) (*MemoryRepository, error) {
	seed, err := LoadSeed(path)
	if err != nil {
		return nil, err
	}
	return NewMemoryRepository(seed.Records()), nil
}

// Replace swaps the whole catalogue
func (m *MemoryRepository) Replace(records []listing.Record) {
	cp := make([]listing.Record, len(records))
	copy(cp, records)

	m.mu.Lock()
	m.records = cp
	m.mu.Unlock()
}

func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryRepository) FindListings(ctx context.Context, q listing.Query) ([]listing.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	var found []listing.Record
	for i := range m.records {
		if q.Criteria.Matches(&m.records[i]) {
			found = append(found, m.records[i])
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(found, func(i, j int) bool {
		return q.Sort.Less(&found[i], &found[j])
	})

	if q.Offset > 0 {
		if q.Offset >= len(found) {
			return []listing.Record{}, nil
		}
		found = found[q.Offset:]
	}
	if q.Limit > 0 && len(found) > q.Limit {
		found = found[:q.Limit]
	}
	if found == nil {
		found = []listing.Record{}
	}
	return found, nil
}
