package mapping

import (
	"context"
	"fmt"
	"sync"
)

type memoryRepo struct {
	mu    sync.RWMutex
	items map[string]*Mapping
}

// NewMemoryRepo keeps mappings in process memory; they are lost on restart.
func NewMemoryRepo() Repository {
	return &memoryRepo{items: make(map[string]*Mapping)}
}

func (r *memoryRepo) Create(_ context.Context, m *Mapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[m.ID]; exists {
		return fmt.Errorf("mapping %s already exists", m.ID)
	}
	r.items[m.ID] = m.clone()
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (*Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.clone(), nil
}

func (r *memoryRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Mapping, int, error) {
	r.mu.RLock()
	all := make([]*Mapping, 0, len(r.items))
	for _, m := range r.items {
		all = append(all, m.clone())
	}
	r.mu.RUnlock()

	items, total := page(all, f, limit, offset)
	return items, total, nil
}

func (r *memoryRepo) Update(_ context.Context, id string, fn func(*Mapping) error) (*Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := m.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	r.items[id] = next
	return next.clone(), nil
}
