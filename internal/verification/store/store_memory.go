package store

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"

	"credhub/internal/verification/models"
	dErrors "credhub/pkg/domain-errors"
)

// InMemoryStore keeps the history in append order.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []models.Record

	// flush, when set, receives the full history after every append while
	// the write lock is still held.
	flush func(all []models.Record) error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, record models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	if s.flush == nil {
		return nil
	}
	if err := s.flush(s.records); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to persist verification history")
	}
	return nil
}

// Recent returns at most limit records, newest first by timestamp. Records
// with equal timestamps keep reverse append order. limit is clamped with
// models.ClampLimit.
func (s *InMemoryStore) Recent(_ context.Context, limit int) ([]models.Record, error) {
	limit = models.ClampLimit(limit)

	s.mu.RLock()
	out := make([]models.Record, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		out = append(out, s.records[i])
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	verified := lo.CountBy(s.records, func(r models.Record) bool { return r.Verified })
	return len(s.records), verified, nil
}

var _ Store = (*InMemoryStore)(nil)
