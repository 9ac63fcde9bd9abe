package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tendant/simple-items/pkg/items"
)

// Repository implements items.Store using in-memory storage
type Repository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*items.Item
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		rows: make(map[int64]*items.Item),
	}
}

func (r *Repository) CreateItem(ctx context.Context, item *items.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	item.ID = r.nextID
	r.rows[item.ID] = item.Clone()
	return nil
}

func (r *Repository) UpdateItem(ctx context.Context, item *items.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.rows[item.ID]
	if !exists {
		return items.ErrItemNotFound
	}
	if current.Locked || current.Variant.Lockable() {
		return items.ErrMirrorLocked
	}
	if current.Variant == items.VariantRevision {
		return items.ErrRevisionImmutable
	}
	r.rows[item.ID] = item.Clone()
	return nil
}

func (r *Repository) DeleteItem(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, exists := r.rows[id]
	if !exists {
		return items.ErrItemNotFound
	}
	if !row.Variant.Canonical() {
		return fmt.Errorf("%w: cannot delete %s row %d", items.ErrNotCanonical, row.Variant, id)
	}
	row.Status = items.StatusDeleted
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) GetItem(ctx context.Context, id int64) (*items.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, exists := r.rows[id]
	if !exists {
		return nil, items.ErrItemNotFound
	}
	return row.Clone(), nil
}

func (r *Repository) FindCanonical(ctx context.Context, sourceID int64, language string) (*items.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := r.filter(func(row *items.Item) bool {
		return row.Variant.Canonical() && row.SourceID == sourceID && row.Language == language
	})
	if len(found) == 0 {
		return nil, items.ErrItemNotFound
	}
	return found[0], nil
}

func (r *Repository) ListCanonical(ctx context.Context, sourceIDs []int64, language string) ([]*items.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filter(func(row *items.Item) bool {
		return row.Variant.Canonical() &&
			slices.Contains(sourceIDs, row.SourceID) &&
			(language == "" || row.Language == language)
	}), nil
}

func (r *Repository) FindBySlug(ctx context.Context, slug, language string) (*items.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := r.filter(func(row *items.Item) bool {
		return row.Variant.Canonical() && row.Slug == slug && (language == "" || row.Language == language)
	})
	if len(found) == 0 {
		return nil, items.ErrItemNotFound
	}
	return found[0], nil
}

func (r *Repository) SlugTaken(ctx context.Context, slug, language string, excludeID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, row := range r.rows {
		if row.Variant.Canonical() && row.ID != excludeID && row.Slug == slug && row.Language == language {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repository) ListRevisions(ctx context.Context, sourceID int64, language string) ([]*items.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := r.filter(func(row *items.Item) bool {
		return row.Variant == items.VariantRevision && row.SourceID == sourceID && row.Language == language
	})
	// Sort by created_at descending
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *Repository) ListMirrors(ctx context.Context, sourceID int64, language string) ([]*items.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filter(func(row *items.Item) bool {
		return row.Variant == items.VariantMirror && row.SourceID == sourceID && (language == "" || row.Language == language)
	}), nil
}

func (r *Repository) SaveMirror(ctx context.Context, item *items.Item) error {
	if item.Variant != items.VariantMirror {
		return fmt.Errorf("%s row %d is not a mirror", item.Variant, item.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if item.ID == 0 {
		r.nextID++
		item.ID = r.nextID
	} else if current, exists := r.rows[item.ID]; !exists || current.Variant != items.VariantMirror {
		return items.ErrItemNotFound
	}
	r.rows[item.ID] = item.Clone()
	return nil
}

func (r *Repository) DeleteMirrors(ctx context.Context, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if row, exists := r.rows[id]; exists && row.Variant == items.VariantMirror {
			delete(r.rows, id)
		}
	}
	return nil
}

func (r *Repository) ListItems(ctx context.Context, params items.ListItemsParams) ([]*items.Item, int, error) {
	for column := range params.Equals {
		if !items.IsFilterColumn(column) {
			return nil, 0, fmt.Errorf("column %q cannot be filtered", column)
		}
	}

	r.mu.RLock()
	result := r.filter(func(row *items.Item) bool { return matches(row, params) })
	r.mu.RUnlock()

	order := params.Order
	if len(order) == 0 {
		order = []items.OrderTerm{{Column: "id"}}
	}
	sort.SliceStable(result, func(i, j int) bool {
		for _, term := range order {
			c := compare(column(result[i], term.Column), column(result[j], term.Column))
			if c == 0 {
				continue
			}
			if term.Desc {
				return c > 0
			}
			return c < 0
		}
		return result[i].ID < result[j].ID
	})

	total := len(result)
	if params.Offset != nil {
		if *params.Offset >= len(result) {
			result = nil
		} else {
			result = result[*params.Offset:]
		}
	}
	if params.Limit != nil && *params.Limit < len(result) {
		result = result[:*params.Limit]
	}
	return result, total, nil
}

// filter returns copies of the rows accepted by keep, ordered by ID. The
// caller must hold the lock.
func (r *Repository) filter(keep func(*items.Item) bool) []*items.Item {
	var result []*items.Item
	for _, row := range r.rows {
		if keep(row) {
			result = append(result, row.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func matches(row *items.Item, p items.ListItemsParams) bool {
	if p.Language != nil && row.Language != *p.Language {
		return false
	}
	if len(p.IDs) > 0 && !slices.Contains(p.IDs, row.ID) {
		return false
	}
	if len(p.SourceIDs) > 0 && !slices.Contains(p.SourceIDs, row.SourceID) {
		return false
	}
	if len(p.CategoryIDs) > 0 && !slices.Contains(p.CategoryIDs, row.CategoryID) && !slices.Contains(p.CategoryIDs, row.RootID) {
		return false
	}
	if len(p.Variants) > 0 && !slices.Contains(p.Variants, row.Variant) {
		return false
	}
	if len(p.Statuses) > 0 && !slices.Contains(p.Statuses, row.Status) {
		return false
	}
	if slices.Contains(p.ExcludeStatuses, row.Status) {
		return false
	}
	if p.CreatedFrom != nil && row.CreatedAt.Before(*p.CreatedFrom) {
		return false
	}
	if p.CreatedTo != nil && !row.CreatedAt.Before(*p.CreatedTo) {
		return false
	}
	for name, want := range p.Equals {
		if compare(column(row, name), normalize(want)) != 0 {
			return false
		}
	}
	return true
}

// column returns the value of a named column in comparable form.
func column(row *items.Item, name string) any {
	switch name {
	case "id":
		return row.ID
	case "source_id":
		return row.SourceID
	case "category_id":
		return row.CategoryID
	case "root_id":
		return row.RootID
	case "priority":
		return int64(row.Priority)
	case "user_id":
		if row.UserID == nil {
			return nil
		}
		return *row.UserID
	case "language":
		return row.Language
	case "type":
		return string(row.Variant)
	case "status":
		return string(row.Status)
	case "title":
		return row.Title
	case "created_at":
		return row.CreatedAt
	case "updated_at":
		return row.UpdatedAt
	case "publish_at":
		if row.PublishAt == nil {
			return nil
		}
		return *row.PublishAt
	case "expire_at":
		if row.ExpireAt == nil {
			return nil
		}
		return *row.ExpireAt
	}
	return nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float64:
		return int64(x)
	case items.Status:
		return string(x)
	case items.Variant:
		return string(x)
	}
	return v
}

// compare orders nil first, then values of the same kind.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case int64:
		y, _ := b.(int64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		y, _ := b.(string)
		return strings.Compare(x, y)
	case time.Time:
		y, _ := b.(time.Time)
		return x.Compare(y)
	}
	return 0
}
