package items

import (
	"context"
)

// Service defines the main interface of the item repository
type Service interface {
	// Write operations
	Create(ctx context.Context, actor Actor, req CreateRequest) (*Item, error)
	Update(ctx context.Context, actor Actor, item *Item, req UpdateRequest) (*Item, error)
	Delete(ctx context.Context, actor Actor, item *Item, languages []string) error
	RestoreRevision(ctx context.Context, actor Actor, item *Item, revisionID int64) (*Item, error)

	// Lookups
	FindByID(ctx context.Context, sourceID int64) (*Item, error)
	FindBySource(ctx context.Context, sourceID int64, language string) (*Item, error)
	FindBySources(ctx context.Context, sourceIDs []int64, language string) ([]*Item, error)
	FindBySlug(ctx context.Context, slug, language string) (*Item, error)
	FindByIDs(ctx context.Context, ids []int64) ([]*Item, error)
	FindRevision(ctx context.Context, id int64) (*Item, error)
	Languages(ctx context.Context, item *Item) ([]*Item, error)
	Revisions(ctx context.Context, item *Item) ([]*Item, error)
	Mirrors(ctx context.Context, item *Item, language string) ([]*Item, error)
	Pages(ctx context.Context, categoryID int64, language string) ([]*Item, error)

	// Listings
	Paginate(ctx context.Context, actor Actor, q PageQuery) (*Page, error)
	PaginateByCategory(ctx context.Context, actor Actor, categoryID int64, q PageQuery) (*Page, error)
	PaginateByLanguage(ctx context.Context, language string, categoryID int64, q PageQuery) (*Page, error)
	PaginateTrashed(ctx context.Context, actor Actor, q PageQuery) (*Page, error)
	Export(ctx context.Context, actor Actor, q ExportQuery) ([]*Item, error)

	// Policy
	CanChangeStatus(actor Actor, category *Category) bool
	Settings() Settings
}
