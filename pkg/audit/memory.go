package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory trail backend for tests and ephemeral runs.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []*Event
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store persists one event.
func (s *MemoryStorage) Store(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *event
	s.events = append(s.events, &clone)
	return nil
}

// Query retrieves events matching the filters, newest first.
func (s *MemoryStorage) Query(ctx context.Context, query *Query) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Event
	for _, event := range s.events {
		if matches(event, query) {
			clone := *event
			results = append(results, &clone)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Time.After(results[j].Time)
	})

	if query != nil {
		if query.Offset > 0 {
			if query.Offset >= len(results) {
				return nil, nil
			}
			results = results[query.Offset:]
		}
		if query.Limit > 0 && len(results) > query.Limit {
			results = results[:query.Limit]
		}
	}

	return results, nil
}

// Prune deletes events older than the cutoff.
func (s *MemoryStorage) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var removed int64
	for _, event := range s.events {
		if event.Time.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, event)
	}
	s.events = kept
	return removed, nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStorage) Close() error { return nil }

func matches(event *Event, query *Query) bool {
	if query == nil {
		return true
	}
	if query.API14 != "" && event.API14 != query.API14 {
		return false
	}
	if query.PolicyID != "" && event.PolicyID != query.PolicyID {
		return false
	}
	if query.District != "" && event.District != query.District {
		return false
	}
	if !query.Since.IsZero() && event.Time.Before(query.Since) {
		return false
	}
	if !query.Until.IsZero() && event.Time.After(query.Until) {
		return false
	}
	return true
}
