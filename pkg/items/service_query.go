package items

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Lookups

func (s *service) FindByID(ctx context.Context, sourceID int64) (*Item, error) {
	rows, err := s.store.ListCanonical(ctx, []int64{sourceID}, "")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrItemNotFound
	}
	for _, row := range rows {
		if row.ID == row.SourceID {
			return row, nil
		}
	}
	return rows[0], nil
}

func (s *service) FindBySource(ctx context.Context, sourceID int64, language string) (*Item, error) {
	if language == "" {
		return s.FindByID(ctx, sourceID)
	}
	return s.store.FindCanonical(ctx, sourceID, language)
}

func (s *service) FindBySources(ctx context.Context, sourceIDs []int64, language string) ([]*Item, error) {
	ids := nonZero(sourceIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	return s.store.ListCanonical(ctx, ids, language)
}

func (s *service) FindBySlug(ctx context.Context, slug, language string) (*Item, error) {
	return s.store.FindBySlug(ctx, slug, language)
}

func (s *service) FindByIDs(ctx context.Context, ids []int64) ([]*Item, error) {
	ids = nonZero(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	rows, _, err := s.store.ListItems(ctx, NewListItemsParams(
		WithIDs(ids...),
		WithVariants(CanonicalVariants...),
		WithOrder(OrderTerm{Column: "id"}),
	))
	return rows, err
}

func (s *service) FindRevision(ctx context.Context, id int64) (*Item, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrRevisionNotFound
		}
		return nil, err
	}
	if !IsRevision(item) {
		return nil, ErrRevisionNotFound
	}
	return item, nil
}

func (s *service) Languages(ctx context.Context, item *Item) ([]*Item, error) {
	return s.store.ListCanonical(ctx, []int64{item.SourceID}, "")
}

func (s *service) Revisions(ctx context.Context, item *Item) ([]*Item, error) {
	return s.store.ListRevisions(ctx, item.SourceID, item.Language)
}

func (s *service) Mirrors(ctx context.Context, item *Item, language string) ([]*Item, error) {
	return s.store.ListMirrors(ctx, item.SourceID, language)
}

func (s *service) Pages(ctx context.Context, categoryID int64, language string) ([]*Item, error) {
	rows, _, err := s.store.ListItems(ctx, NewListItemsParams(
		WithEquals(map[string]any{"category_id": categoryID}),
		WithLanguage(language),
		WithVariants(VariantPage),
		WithOrder(OrderTerm{Column: "priority"}, OrderTerm{Column: "created_at", Desc: true}),
	))
	return rows, err
}

// Listings

func (s *service) Paginate(ctx context.Context, actor Actor, q PageQuery) (*Page, error) {
	return s.paginate(ctx, q,
		WithLanguage(s.language(actor, q.Language)),
		WithVariants(ListedVariants...),
		WithoutStatuses(StatusDeleted),
	)
}

func (s *service) PaginateByCategory(ctx context.Context, actor Actor, categoryID int64, q PageQuery) (*Page, error) {
	category, err := s.categories.FindBySource(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	opts := []ListItemsOption{
		WithCategoryIDs(category.ID),
		WithVariants(ListedVariants...),
		WithoutStatuses(StatusDeleted),
	}
	if category.Multilingual {
		opts = append(opts, WithLanguage(s.language(actor, q.Language)))
	}
	return s.paginate(ctx, q, opts...)
}

func (s *service) PaginateByLanguage(ctx context.Context, language string, categoryID int64, q PageQuery) (*Page, error) {
	opts := []ListItemsOption{
		WithLanguage(language),
		WithVariants(ListedVariants...),
		WithoutStatuses(StatusDeleted),
	}
	if categoryID > 0 {
		opts = append(opts, WithEquals(map[string]any{"category_id": categoryID}))
	}
	return s.paginate(ctx, q, opts...)
}

func (s *service) PaginateTrashed(ctx context.Context, actor Actor, q PageQuery) (*Page, error) {
	return s.paginate(ctx, q,
		WithLanguage(s.language(actor, q.Language)),
		WithVariants(CanonicalVariants...),
		WithStatuses(StatusDeleted),
	)
}

func (s *service) Export(ctx context.Context, actor Actor, q ExportQuery) ([]*Item, error) {
	if q.CategoryID <= 0 {
		verr := NewValidationError()
		verr.Add("category_id", "is required")
		return nil, verr
	}
	where, err := filters(q.Where)
	if err != nil {
		return nil, err
	}

	today := s.now().Truncate(24 * time.Hour)
	from, to := today, today
	if q.FromDate != nil {
		from = q.FromDate.UTC().Truncate(24 * time.Hour)
	}
	if q.ToDate != nil {
		to = q.ToDate.UTC().Truncate(24 * time.Hour)
	}

	rows, _, err := s.store.ListItems(ctx, NewListItemsParams(
		WithCategoryIDs(q.CategoryID),
		WithLanguage(s.language(actor, q.Language)),
		WithVariants(ListedVariants...),
		WithCreatedBetween(from, to.Add(24*time.Hour)),
		WithEquals(where),
		WithOrder(OrderTerm{Column: "created_at"}, OrderTerm{Column: "id"}),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to export category %d: %w", q.CategoryID, err)
	}
	return rows, nil
}

func (s *service) paginate(ctx context.Context, q PageQuery, opts ...ListItemsOption) (*Page, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = s.settings.PerPage
	}

	order, err := ParseOrder(s.settings.PaginationOrder)
	if err != nil {
		return nil, err
	}
	if q.Sort != "" {
		if term, err := NewOrderTerm(q.Sort, q.Direction); err == nil {
			order = []OrderTerm{term}
		}
	}
	where, err := filters(q.Where)
	if err != nil {
		return nil, err
	}

	opts = append(opts,
		WithEquals(where),
		WithOrder(order...),
		WithLimit(perPage),
		WithOffset((page-1)*perPage),
	)
	rows, total, err := s.store.ListItems(ctx, NewListItemsParams(opts...))
	if err != nil {
		return nil, err
	}
	return &Page{Items: rows, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *service) language(actor Actor, requested string) string {
	if requested != "" {
		return requested
	}
	if actor.Language != "" {
		return actor.Language
	}
	return s.localizer.Languages()[0].Code
}

// filters rejects equality filters on columns that may not be filtered.
func filters(where map[string]any) (map[string]any, error) {
	verr := NewValidationError()
	for column := range where {
		if !IsFilterColumn(column) {
			verr.Add("where."+column, "column cannot be filtered")
		}
	}
	if !verr.Empty() {
		return nil, verr
	}
	return where, nil
}

func nonZero(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	return out
}
