package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/matzehuels/flowmend/pkg/errors"
	"github.com/matzehuels/flowmend/pkg/workflow"
)

// MemoryStore keeps workflows in a map. Records are cloned on the way in and
// out so callers cannot mutate stored graphs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record), now: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	if err := errors.ValidateWorkflowID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, notFound(id)
	}
	out := *rec
	out.Graph = rec.Graph.Clone()
	return &out, nil
}

func (s *MemoryStore) Put(ctx context.Context, id string, g workflow.Graph) (*Record, error) {
	if err := errors.ValidateWorkflowID(id); err != nil {
		return nil, err
	}
	rec := newRecord(id, g, s.now())

	s.mu.Lock()
	s.records[id] = rec
	s.mu.Unlock()

	out := *rec
	out.Graph = rec.Graph.Clone()
	return &out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
