package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-items/pkg/items"
	"github.com/tendant/simple-items/pkg/items/repo/memory"
)

func seed(t *testing.T, repo *memory.Repository, rows ...*items.Item) {
	t.Helper()
	for _, row := range rows {
		require.NoError(t, repo.CreateItem(context.Background(), row))
	}
}

func TestRepository_ItemOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	item := &items.Item{SourceID: 1, Language: "en", Variant: items.VariantItem, Title: "Hello", Status: items.StatusActive}
	require.NoError(t, repo.CreateItem(ctx, item))
	assert.Equal(t, int64(1), item.ID)

	item.Title = "changed outside"
	stored, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", stored.Title, "store keeps its own copy")

	stored.Title = "Updated"
	require.NoError(t, repo.UpdateItem(ctx, stored))
	stored, err = repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated", stored.Title)

	require.NoError(t, repo.DeleteItem(ctx, item.ID))
	stored, err = repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, items.StatusDeleted, stored.Status, "canonical rows are soft deleted")

	_, err = repo.GetItem(ctx, 999)
	assert.ErrorIs(t, err, items.ErrItemNotFound)
	assert.ErrorIs(t, repo.UpdateItem(ctx, &items.Item{ID: 999}), items.ErrItemNotFound)
}

func TestRepository_Mirrors(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	mirror := &items.Item{SourceID: 1, Language: "en", Variant: items.VariantMirror, Locked: true, CategoryID: 2}
	require.NoError(t, repo.SaveMirror(ctx, mirror))
	require.NotZero(t, mirror.ID)

	mirror.Title = "in place"
	require.NoError(t, repo.SaveMirror(ctx, mirror))

	mirrors, err := repo.ListMirrors(ctx, 1, "en")
	require.NoError(t, err)
	require.Len(t, mirrors, 1)
	assert.Equal(t, "in place", mirrors[0].Title)

	assert.ErrorIs(t, repo.UpdateItem(ctx, mirror), items.ErrMirrorLocked)
	assert.Error(t, repo.DeleteItem(ctx, mirror.ID))
	assert.Error(t, repo.SaveMirror(ctx, &items.Item{Variant: items.VariantItem}))

	require.NoError(t, repo.DeleteMirrors(ctx, []int64{mirror.ID}))
	mirrors, err = repo.ListMirrors(ctx, 1, "")
	require.NoError(t, err)
	assert.Empty(t, mirrors)
}

func TestRepository_Lookups(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seed(t, repo,
		&items.Item{SourceID: 1, Language: "en", Variant: items.VariantItem, Slug: "hello"},
		&items.Item{SourceID: 1, Language: "fr", Variant: items.VariantItem, Slug: "bonjour"},
		&items.Item{SourceID: 1, Language: "en", Variant: items.VariantRevision, Slug: "hello", CreatedAt: t0},
		&items.Item{SourceID: 1, Language: "en", Variant: items.VariantRevision, Slug: "hello", CreatedAt: t0.Add(time.Hour)},
		&items.Item{SourceID: 1, Language: "en", Variant: items.VariantMirror, Slug: "hello-2"},
	)

	row, err := repo.FindCanonical(ctx, 1, "fr")
	require.NoError(t, err)
	assert.Equal(t, "bonjour", row.Slug)

	rows, err := repo.ListCanonical(ctx, []int64{1}, "")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	row, err = repo.FindBySlug(ctx, "hello", "en")
	require.NoError(t, err)
	assert.Equal(t, items.VariantItem, row.Variant)

	_, err = repo.FindBySlug(ctx, "hello-2", "en")
	assert.ErrorIs(t, err, items.ErrItemNotFound, "mirrors are not found by slug")

	taken, err := repo.SlugTaken(ctx, "hello", "en", row.ID)
	require.NoError(t, err)
	assert.False(t, taken)
	taken, err = repo.SlugTaken(ctx, "hello", "en", 0)
	require.NoError(t, err)
	assert.True(t, taken)

	revisions, err := repo.ListRevisions(ctx, 1, "en")
	require.NoError(t, err)
	require.Len(t, revisions, 2)
	assert.True(t, revisions[0].CreatedAt.After(revisions[1].CreatedAt), "newest first")
}

func TestRepository_ListItems(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	uid := int64(7)

	seed(t, repo,
		&items.Item{SourceID: 1, Language: "en", Variant: items.VariantItem, CategoryID: 4, RootID: 1, Priority: 2, Title: "b", Status: items.StatusActive, CreatedAt: t0},
		&items.Item{SourceID: 2, Language: "en", Variant: items.VariantItem, CategoryID: 1, RootID: 1, Priority: 1, Title: "a", Status: items.StatusPending, CreatedAt: t0.Add(time.Hour), UserID: &uid},
		&items.Item{SourceID: 3, Language: "en", Variant: items.VariantPage, CategoryID: 3, RootID: 3, Priority: 1, Title: "c", Status: items.StatusDeleted, CreatedAt: t0.Add(2 * time.Hour)},
		&items.Item{SourceID: 1, Language: "fr", Variant: items.VariantItem, CategoryID: 4, RootID: 1, Title: "d", Status: items.StatusActive, CreatedAt: t0},
		&items.Item{SourceID: 1, Language: "en", Variant: items.VariantRevision, CategoryID: 4, RootID: 1, Title: "e", CreatedAt: t0},
	)

	tests := []struct {
		name      string
		opts      []items.ListItemsOption
		wantTitle []string
		wantTotal int
	}{
		{
			name:      "language and variants",
			opts:      []items.ListItemsOption{items.WithLanguage("en"), items.WithVariants(items.CanonicalVariants...)},
			wantTitle: []string{"b", "a", "c"},
			wantTotal: 3,
		},
		{
			name:      "category or root",
			opts:      []items.ListItemsOption{items.WithCategoryIDs(1), items.WithLanguage("en"), items.WithVariants(items.VariantItem)},
			wantTitle: []string{"b", "a"},
			wantTotal: 2,
		},
		{
			name: "excluded status with order",
			opts: []items.ListItemsOption{
				items.WithLanguage("en"),
				items.WithVariants(items.CanonicalVariants...),
				items.WithoutStatuses(items.StatusDeleted),
				items.WithOrder(items.OrderTerm{Column: "priority"}, items.OrderTerm{Column: "created_at", Desc: true}),
			},
			wantTitle: []string{"a", "b"},
			wantTotal: 2,
		},
		{
			name:      "equality filter",
			opts:      []items.ListItemsOption{items.WithEquals(map[string]any{"user_id": 7})},
			wantTitle: []string{"a"},
			wantTotal: 1,
		},
		{
			name:      "created range",
			opts:      []items.ListItemsOption{items.WithCreatedBetween(t0.Add(time.Hour), t0.Add(2 * time.Hour))},
			wantTitle: []string{"a"},
			wantTotal: 1,
		},
		{
			name: "limit and offset",
			opts: []items.ListItemsOption{
				items.WithVariants(items.VariantItem),
				items.WithOrder(items.OrderTerm{Column: "title", Desc: true}),
				items.WithLimit(2),
				items.WithOffset(1),
			},
			wantTitle: []string{"b", "a"},
			wantTotal: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, total, err := repo.ListItems(ctx, items.NewListItemsParams(tt.opts...))
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			var titles []string
			for _, row := range rows {
				titles = append(titles, row.Title)
			}
			assert.Equal(t, tt.wantTitle, titles)
		})
	}

	_, _, err := repo.ListItems(ctx, items.NewListItemsParams(items.WithEquals(map[string]any{"slug": "x"})))
	assert.Error(t, err)
}
