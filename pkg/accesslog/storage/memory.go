package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"atrium-hq/vestibule/pkg/accesslog"
)

// MemoryStore implements accesslog.Store with a bounded in-memory slice.
// It backs tests and deployments that only need the query API over
// recent traffic; older records are evicted once MaxRecords is reached.
type MemoryStore struct {
	mu         sync.RWMutex
	records    []*accesslog.Record
	maxRecords int
}

// NewMemoryStore creates a memory store keeping at most maxRecords
// records. maxRecords <= 0 means 10000.
func NewMemoryStore(maxRecords int) *MemoryStore {
	if maxRecords <= 0 {
		maxRecords = 10000
	}
	return &MemoryStore{maxRecords: maxRecords}
}

// Insert persists a record, evicting the oldest when full.
func (s *MemoryStore) Insert(ctx context.Context, record *accesslog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.records = append(s.records, &recordCopy)
	if len(s.records) > s.maxRecords {
		s.records = s.records[len(s.records)-s.maxRecords:]
	}
	return nil
}

// Query retrieves records matching the filters, newest first.
func (s *MemoryStore) Query(ctx context.Context, query *accesslog.Query) ([]*accesslog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*accesslog.Record{}
	for _, record := range s.records {
		if matchesQuery(record, query) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Time.After(results[j].Time)
	})

	start := query.Offset
	if start > len(results) {
		return []*accesslog.Record{}, nil
	}
	results = results[start:]

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Count returns the number of records matching the filters.
func (s *MemoryStore) Count(ctx context.Context, query *accesslog.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// DeleteBefore removes records older than the cutoff.
func (s *MemoryStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, record := range s.records {
		if record.Time.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	s.records = kept
	return deleted, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// matchesQuery reports whether a record satisfies every filter.
func matchesQuery(record *accesslog.Record, query *accesslog.Query) bool {
	if query.Since != nil && record.Time.Before(*query.Since) {
		return false
	}
	if query.Until != nil && record.Time.After(*query.Until) {
		return false
	}
	if query.Host != "" && record.Host != query.Host {
		return false
	}
	if query.Method != "" && record.Method != query.Method {
		return false
	}
	if query.PathPrefix != "" && !strings.HasPrefix(record.Path, query.PathPrefix) {
		return false
	}
	if query.Status != 0 && record.Status != query.Status {
		return false
	}
	if query.StatusMin != 0 && record.Status < query.StatusMin {
		return false
	}
	if query.StatusMax != 0 && record.Status > query.StatusMax {
		return false
	}
	return true
}
