package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"mercator-hq/webserv/pkg/accesslog"
)

// MemoryStorage keeps records in memory. Nothing survives a restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*accesslog.Record
	closed  bool
}

var _ accesslog.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store appends a copy of r.
func (s *MemoryStorage) Store(ctx context.Context, r *accesslog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return accesslog.NewStorageError("memory", "store", errClosed)
	}
	cp := *r
	s.records = append(s.records, &cp)
	return nil
}

// Query returns matching records, newest first.
func (s *MemoryStorage) Query(ctx context.Context, q *accesslog.Query) ([]*accesslog.Record, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, accesslog.NewStorageError("memory", "query", errClosed)
	}
	matched := make([]*accesslog.Record, 0)
	for _, r := range s.records {
		if q.Matches(r) {
			cp := *r
			matched = append(matched, &cp)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b *accesslog.Record) int {
		return b.Time.Compare(a.Time)
	})

	if q.Offset >= len(matched) {
		return []*accesslog.Record{}, nil
	}
	matched = matched[q.Offset:]
	if limit := q.EffectiveLimit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, q *accesslog.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, accesslog.NewStorageError("memory", "count", errClosed)
	}
	var n int64
	for _, r := range s.records {
		if q.Matches(r) {
			n++
		}
	}
	return n, nil
}

// DeleteBefore removes records older than cutoff.
func (s *MemoryStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.records)
	s.records = slices.DeleteFunc(s.records, func(r *accesslog.Record) bool {
		return r.Time.Before(cutoff)
	})
	return int64(before - len(s.records)), nil
}

// Close drops all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}
