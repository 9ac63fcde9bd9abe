package items

import (
	"context"
	"time"
)

// Store defines the interface for item persistence
type Store interface {
	// CreateItem inserts a row of any variant and assigns its ID.
	CreateItem(ctx context.Context, item *Item) error
	// UpdateItem rewrites a canonical row. Locked rows are refused with
	// ErrMirrorLocked.
	UpdateItem(ctx context.Context, item *Item) error
	// DeleteItem soft deletes a canonical row by moving it to StatusDeleted.
	DeleteItem(ctx context.Context, id int64) error
	GetItem(ctx context.Context, id int64) (*Item, error)

	// FindCanonical returns the live row of a source in a language.
	FindCanonical(ctx context.Context, sourceID int64, language string) (*Item, error)
	// ListCanonical returns the live rows of the given sources. An empty
	// language matches every language.
	ListCanonical(ctx context.Context, sourceIDs []int64, language string) ([]*Item, error)
	// FindBySlug returns the canonical row with slug in language.
	FindBySlug(ctx context.Context, slug, language string) (*Item, error)
	// SlugTaken reports whether a canonical row other than excludeID uses
	// slug in language.
	SlugTaken(ctx context.Context, slug, language string, excludeID int64) (bool, error)
	// ListRevisions returns snapshots of a source language, newest first.
	ListRevisions(ctx context.Context, sourceID int64, language string) ([]*Item, error)

	// ListMirrors returns the mirror rows of a source. An empty language
	// matches every language.
	ListMirrors(ctx context.Context, sourceID int64, language string) ([]*Item, error)
	// SaveMirror inserts or rewrites a mirror row.
	SaveMirror(ctx context.Context, item *Item) error
	// DeleteMirrors hard deletes mirror rows by ID.
	DeleteMirrors(ctx context.Context, ids []int64) error

	// ListItems returns one page of rows matching params and the total
	// number of matching rows.
	ListItems(ctx context.Context, params ListItemsParams) ([]*Item, int, error)
}

// CategoryStore looks up categories of the external category tree.
type CategoryStore interface {
	FindBySource(ctx context.Context, id int64) (*Category, error)
	// FindBySources returns the categories found, in the order of ids.
	FindBySources(ctx context.Context, ids []int64) ([]*Category, error)
}

// Localizer lists the configured content languages in order.
type Localizer interface {
	Languages() []Language
}

// Validator checks a create or update request before anything is written.
// Failures are reported as *ValidationError.
type Validator interface {
	Validate(ctx context.Context, request any) error
}

// AuditLogger records user visible changes.
type AuditLogger interface {
	Log(ctx context.Context, event string, payload map[string]any, subjectID int64) error
}

// Notifier publishes lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// OrderTerm is one ORDER BY clause.
type OrderTerm struct {
	Column string
	Desc   bool
}

// ListItemsParams contains parameters for listing items
type ListItemsParams struct {
	Language        *string
	IDs             []int64
	SourceIDs       []int64
	CategoryIDs     []int64 // matches category_id or root_id
	Variants        []Variant
	Statuses        []Status
	ExcludeStatuses []Status
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Equals          map[string]any
	Order           []OrderTerm
	Limit           *int
	Offset          *int
}

// ListItemsOption represents a functional option for listing items
type ListItemsOption func(*ListItemsParams)

// NewListItemsParams applies opts over empty params.
func NewListItemsParams(opts ...ListItemsOption) ListItemsParams {
	var p ListItemsParams
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// WithLanguage sets the language to filter by
func WithLanguage(language string) ListItemsOption {
	return func(p *ListItemsParams) {
		p.Language = &language
	}
}

// WithIDs restricts the listing to the given row IDs
func WithIDs(ids ...int64) ListItemsOption {
	return func(p *ListItemsParams) {
		p.IDs = ids
	}
}

// WithSourceIDs restricts the listing to the given sources
func WithSourceIDs(ids ...int64) ListItemsOption {
	return func(p *ListItemsParams) {
		p.SourceIDs = ids
	}
}

// WithCategoryIDs matches rows placed in, or rooted at, the given categories
func WithCategoryIDs(ids ...int64) ListItemsOption {
	return func(p *ListItemsParams) {
		p.CategoryIDs = ids
	}
}

// WithVariants sets the variants to filter by
func WithVariants(variants ...Variant) ListItemsOption {
	return func(p *ListItemsParams) {
		p.Variants = variants
	}
}

// WithStatuses sets the statuses to filter by
func WithStatuses(statuses ...Status) ListItemsOption {
	return func(p *ListItemsParams) {
		p.Statuses = statuses
	}
}

// WithoutStatuses excludes the given statuses
func WithoutStatuses(statuses ...Status) ListItemsOption {
	return func(p *ListItemsParams) {
		p.ExcludeStatuses = statuses
	}
}

// WithCreatedBetween restricts created_at to [from, to)
func WithCreatedBetween(from, to time.Time) ListItemsOption {
	return func(p *ListItemsParams) {
		p.CreatedFrom = &from
		p.CreatedTo = &to
	}
}

// WithEquals adds column equality filters
func WithEquals(filters map[string]any) ListItemsOption {
	return func(p *ListItemsParams) {
		if p.Equals == nil {
			p.Equals = make(map[string]any, len(filters))
		}
		for k, v := range filters {
			p.Equals[k] = v
		}
	}
}

// WithOrder sets the result ordering
func WithOrder(terms ...OrderTerm) ListItemsOption {
	return func(p *ListItemsParams) {
		p.Order = terms
	}
}

// WithLimit sets the maximum number of rows returned
func WithLimit(limit int) ListItemsOption {
	return func(p *ListItemsParams) {
		p.Limit = &limit
	}
}

// WithOffset sets the number of rows skipped
func WithOffset(offset int) ListItemsOption {
	return func(p *ListItemsParams) {
		p.Offset = &offset
	}
}
