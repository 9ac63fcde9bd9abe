package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-items/pkg/items"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const itemColumns = "id, source_id, language, type, category_id, root_id, title, slug, status, priority, " +
	"publish_at, expire_at, user_id, fields, locked, created_at, updated_at"

var canonicalTypes = []string{string(items.VariantPage), string(items.VariantItem)}

// Repository implements items.Store using PostgreSQL
type Repository struct {
	db DBTX
	sq sq.StatementBuilderType
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db, sq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return New(pool)
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return items.ErrItemNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "canonical") {
				return fmt.Errorf("canonical row already exists for source and language")
			}
			return fmt.Errorf("duplicate entry")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "23514": // check_violation
			return fmt.Errorf("%w: %s", items.ErrValidation, pgErr.ConstraintName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) CreateItem(ctx context.Context, item *items.Item) error {
	query, args, err := r.sq.Insert("items").
		Columns("source_id", "language", "type", "category_id", "root_id", "title", "slug", "status", "priority",
			"publish_at", "expire_at", "user_id", "fields", "locked", "created_at", "updated_at").
		Values(values(item)...).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&item.ID); err != nil {
		return r.handlePostgresError("create item", err)
	}
	return nil
}

func (r *Repository) UpdateItem(ctx context.Context, item *items.Item) error {
	tag, err := r.update(ctx, item, sq.Eq{"type": canonicalTypes, "locked": false})
	if err != nil {
		return r.handlePostgresError("update item", err)
	}
	if tag.RowsAffected() == 0 {
		current, err := r.GetItem(ctx, item.ID)
		if err != nil {
			return err
		}
		return items.EnsureMutable(current)
	}
	return nil
}

func (r *Repository) update(ctx context.Context, item *items.Item, guard sq.Sqlizer) (pgconn.CommandTag, error) {
	query, args, err := r.sq.Update("items").
		SetMap(map[string]interface{}{
			"source_id":   item.SourceID,
			"language":    item.Language,
			"type":        string(item.Variant),
			"category_id": item.CategoryID,
			"root_id":     item.RootID,
			"title":       item.Title,
			"slug":        item.Slug,
			"status":      string(item.Status),
			"priority":    item.Priority,
			"publish_at":  item.PublishAt,
			"expire_at":   item.ExpireAt,
			"user_id":     item.UserID,
			"fields":      item.Fields,
			"locked":      item.Locked,
			"updated_at":  item.UpdatedAt,
		}).
		Where(sq.Eq{"id": item.ID}).
		Where(guard).
		ToSql()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return r.db.Exec(ctx, query, args...)
}

func (r *Repository) DeleteItem(ctx context.Context, id int64) error {
	// Soft delete: canonical rows move to the deleted status
	query, args, err := r.sq.Update("items").
		Set("status", string(items.StatusDeleted)).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id, "type": canonicalTypes}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return r.handlePostgresError("delete item", err)
	}
	if tag.RowsAffected() == 0 {
		current, err := r.GetItem(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: cannot delete %s row %d", items.ErrNotCanonical, current.Variant, id)
	}
	return nil
}

func (r *Repository) GetItem(ctx context.Context, id int64) (*items.Item, error) {
	return r.one(ctx, "get item", r.selectItems().Where(sq.Eq{"id": id}))
}

func (r *Repository) FindCanonical(ctx context.Context, sourceID int64, language string) (*items.Item, error) {
	return r.one(ctx, "find canonical", r.selectItems().
		Where(sq.Eq{"source_id": sourceID, "language": language, "type": canonicalTypes}).
		OrderBy("id ASC").
		Limit(1))
}

func (r *Repository) ListCanonical(ctx context.Context, sourceIDs []int64, language string) ([]*items.Item, error) {
	b := r.selectItems().Where(sq.Eq{"source_id": sourceIDs, "type": canonicalTypes}).OrderBy("id ASC")
	if language != "" {
		b = b.Where(sq.Eq{"language": language})
	}
	return r.many(ctx, "list canonical", b)
}

func (r *Repository) FindBySlug(ctx context.Context, slug, language string) (*items.Item, error) {
	b := r.selectItems().Where(sq.Eq{"slug": slug, "type": canonicalTypes}).OrderBy("id ASC").Limit(1)
	if language != "" {
		b = b.Where(sq.Eq{"language": language})
	}
	return r.one(ctx, "find by slug", b)
}

func (r *Repository) SlugTaken(ctx context.Context, slug, language string, excludeID int64) (bool, error) {
	query, args, err := r.sq.Select("COUNT(*)").From("items").
		Where(sq.Eq{"slug": slug, "language": language, "type": canonicalTypes}).
		Where(sq.NotEq{"id": excludeID}).
		ToSql()
	if err != nil {
		return false, err
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, r.handlePostgresError("slug taken", err)
	}
	return count > 0, nil
}

func (r *Repository) ListRevisions(ctx context.Context, sourceID int64, language string) ([]*items.Item, error) {
	return r.many(ctx, "list revisions", r.selectItems().
		Where(sq.Eq{"source_id": sourceID, "language": language, "type": string(items.VariantRevision)}).
		OrderBy("created_at DESC", "id DESC"))
}

func (r *Repository) ListMirrors(ctx context.Context, sourceID int64, language string) ([]*items.Item, error) {
	b := r.selectItems().
		Where(sq.Eq{"source_id": sourceID, "type": string(items.VariantMirror)}).
		OrderBy("id ASC")
	if language != "" {
		b = b.Where(sq.Eq{"language": language})
	}
	return r.many(ctx, "list mirrors", b)
}

func (r *Repository) SaveMirror(ctx context.Context, item *items.Item) error {
	if item.Variant != items.VariantMirror {
		return fmt.Errorf("%s row %d is not a mirror", item.Variant, item.ID)
	}
	if item.ID == 0 {
		return r.CreateItem(ctx, item)
	}

	tag, err := r.update(ctx, item, sq.Eq{"type": string(items.VariantMirror)})
	if err != nil {
		return r.handlePostgresError("save mirror", err)
	}
	if tag.RowsAffected() == 0 {
		return items.ErrItemNotFound
	}
	return nil
}

func (r *Repository) DeleteMirrors(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := r.sq.Delete("items").
		Where(sq.Eq{"id": ids, "type": string(items.VariantMirror)}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return r.handlePostgresError("delete mirrors", err)
	}
	return nil
}

func (r *Repository) ListItems(ctx context.Context, params items.ListItemsParams) ([]*items.Item, int, error) {
	where, err := filters(params)
	if err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := r.sq.Select("COUNT(*)").From("items").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, r.handlePostgresError("count items", err)
	}

	b := r.selectItems().Where(where)
	for _, term := range params.Order {
		if !isSortable(term.Column) {
			return nil, 0, fmt.Errorf("column %q is not sortable", term.Column)
		}
		if term.Desc {
			b = b.OrderBy(term.Column + " DESC NULLS LAST")
		} else {
			b = b.OrderBy(term.Column + " ASC NULLS FIRST")
		}
	}
	b = b.OrderBy("id ASC")
	if params.Limit != nil {
		b = b.Limit(uint64(*params.Limit))
	}
	if params.Offset != nil {
		b = b.Offset(uint64(*params.Offset))
	}

	rows, err := r.many(ctx, "list items", b)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func filters(p items.ListItemsParams) (sq.And, error) {
	where := sq.And{}
	if p.Language != nil {
		where = append(where, sq.Eq{"language": *p.Language})
	}
	if len(p.IDs) > 0 {
		where = append(where, sq.Eq{"id": p.IDs})
	}
	if len(p.SourceIDs) > 0 {
		where = append(where, sq.Eq{"source_id": p.SourceIDs})
	}
	if len(p.CategoryIDs) > 0 {
		where = append(where, sq.Or{sq.Eq{"category_id": p.CategoryIDs}, sq.Eq{"root_id": p.CategoryIDs}})
	}
	if len(p.Variants) > 0 {
		where = append(where, sq.Eq{"type": strs(p.Variants)})
	}
	if len(p.Statuses) > 0 {
		where = append(where, sq.Eq{"status": strs(p.Statuses)})
	}
	if len(p.ExcludeStatuses) > 0 {
		where = append(where, sq.NotEq{"status": strs(p.ExcludeStatuses)})
	}
	if p.CreatedFrom != nil {
		where = append(where, sq.GtOrEq{"created_at": *p.CreatedFrom})
	}
	if p.CreatedTo != nil {
		where = append(where, sq.Lt{"created_at": *p.CreatedTo})
	}
	for column, value := range p.Equals {
		if !items.IsFilterColumn(column) {
			return nil, fmt.Errorf("column %q cannot be filtered", column)
		}
		where = append(where, sq.Eq{column: value})
	}
	return where, nil
}

func isSortable(column string) bool {
	for _, c := range items.SortableColumns {
		if c == column {
			return true
		}
	}
	return false
}

func strs[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func values(item *items.Item) []interface{} {
	return []interface{}{
		item.SourceID, item.Language, string(item.Variant), item.CategoryID, item.RootID,
		item.Title, item.Slug, string(item.Status), item.Priority,
		item.PublishAt, item.ExpireAt, item.UserID, item.Fields, item.Locked,
		item.CreatedAt, item.UpdatedAt,
	}
}

func (r *Repository) selectItems() sq.SelectBuilder {
	return r.sq.Select(itemColumns).From("items")
}

func (r *Repository) one(ctx context.Context, operation string, b sq.SelectBuilder) (*items.Item, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	item, err := scanItem(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	return item, nil
}

func (r *Repository) many(ctx context.Context, operation string, b sq.SelectBuilder) ([]*items.Item, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	defer rows.Close()

	var result []*items.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan item", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate item rows", err)
	}
	return result, nil
}

func scanItem(row pgx.Row) (*items.Item, error) {
	var (
		item            items.Item
		variant, status string
	)
	if err := row.Scan(
		&item.ID, &item.SourceID, &item.Language, &variant, &item.CategoryID, &item.RootID,
		&item.Title, &item.Slug, &status, &item.Priority,
		&item.PublishAt, &item.ExpireAt, &item.UserID, &item.Fields, &item.Locked,
		&item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.Variant = items.Variant(variant)
	item.Status = items.Status(status)
	return &item, nil
}
