package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/tendant/simple-items/pkg/items"
)

// CategoryStore reads the category tree from the categories table.
type CategoryStore struct {
	db DBTX
	sq sq.StatementBuilderType
}

func NewCategoryStore(db DBTX) *CategoryStore {
	return &CategoryStore{db: db, sq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

func (s *CategoryStore) FindBySource(ctx context.Context, id int64) (*items.Category, error) {
	found, err := s.FindBySources(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, items.ErrCategoryNotFound
	}
	return found[0], nil
}

func (s *CategoryStore) FindBySources(ctx context.Context, ids []int64) ([]*items.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := s.sq.Select("id", "root_id", "slug", "multilingual", "active", "grants").
		From("categories").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	byID, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*items.Category, error) {
		var c items.Category
		err := row.Scan(&c.ID, &c.RootID, &c.Slug, &c.Multilingual, &c.Active, &c.Grants)
		return &c, err
	})
	if err != nil {
		return nil, err
	}

	index := make(map[int64]*items.Category, len(byID))
	for _, c := range byID {
		index[c.ID] = c
	}
	result := make([]*items.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := index[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

// PutCategory inserts or replaces a category row.
func (s *CategoryStore) PutCategory(ctx context.Context, c *items.Category) error {
	query, args, err := s.sq.Insert("categories").
		Columns("id", "root_id", "slug", "multilingual", "active", "grants").
		Values(c.ID, c.RootID, c.Slug, c.Multilingual, c.Active, c.Grants).
		Suffix("ON CONFLICT (id) DO UPDATE SET root_id = excluded.root_id, slug = excluded.slug, " +
			"multilingual = excluded.multilingual, active = excluded.active, grants = excluded.grants").
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, query, args...)
	return err
}
