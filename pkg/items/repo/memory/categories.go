package memory

import (
	"context"
	"sync"

	"github.com/tendant/simple-items/pkg/items"
)

// CategoryStore implements items.CategoryStore over a fixed set of
// categories.
type CategoryStore struct {
	mu         sync.RWMutex
	categories map[int64]*items.Category
}

// NewCategoryStore creates a category store holding categories
func NewCategoryStore(categories ...*items.Category) *CategoryStore {
	s := &CategoryStore{categories: make(map[int64]*items.Category)}
	for _, c := range categories {
		s.Put(c)
	}
	return s
}

// Put adds or replaces a category
func (s *CategoryStore) Put(c *items.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	s.categories[c.ID] = &cp
}

func (s *CategoryStore) FindBySource(ctx context.Context, id int64) (*items.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.categories[id]
	if !exists {
		return nil, items.ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *CategoryStore) FindBySources(ctx context.Context, ids []int64) ([]*items.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*items.Category
	for _, id := range ids {
		if c, exists := s.categories[id]; exists {
			cp := *c
			result = append(result, &cp)
		}
	}
	return result, nil
}
