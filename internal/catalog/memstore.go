package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemStore is a map-backed Store used by tests and local runs without Postgres.
type MemStore struct {
	mu       sync.RWMutex
	products map[string]Product
}

func NewMemStore() *MemStore {
	return &MemStore{products: make(map[string]Product)}
}

func (s *MemStore) Find(ctx context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (s *MemStore) Save(ctx context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return nil
}

func (s *MemStore) Update(ctx context.Context, id string, fn func(p *Product) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return ErrProductNotFound
	}
	if err := fn(&p); err != nil {
		return err
	}
	s.products[id] = p
	return nil
}

func (s *MemStore) List(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
