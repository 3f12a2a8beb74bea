package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps graphs in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	graphs map[string]*Graph
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{graphs: make(map[string]*Graph)}
}

func (s *MemoryStore) Save(_ context.Context, g *Graph) error {
	if err := prepare(g); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[g.ID] = clone(g)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Graph, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[id]
	if !ok {
		return nil, notFound(id)
	}
	return clone(g), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.graphs[id]; !ok {
		return notFound(id)
	}
	delete(s.graphs, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Summary, error) {
	s.mu.RLock()
	out := make([]Summary, 0, len(s.graphs))
	for _, g := range s.graphs {
		out = append(out, g.Summarize())
	}
	s.mu.RUnlock()
	return newestFirst(out, limit), nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }

// newestFirst sorts by creation time descending, then id, and truncates.
func newestFirst(out []Summary, limit int) []Summary {
	slices.SortFunc(out, func(a, b Summary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if n := limitOrDefault(limit); len(out) > n {
		out = out[:n]
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
