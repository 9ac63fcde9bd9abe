package items_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-items/pkg/items"
	"github.com/tendant/simple-items/pkg/items/repo/memory"
)

func TestNormalizeTargets(t *testing.T) {
	tests := []struct {
		name string
		ids  []int64
		max  int
		want []int64
	}{
		{"empty", nil, 5, []int64{}},
		{"drops zero and duplicates", []int64{3, 0, 3, 1}, 5, []int64{3, 1}},
		{"first seen wins at cap", []int64{9, 8, 7, 6}, 2, []int64{9, 8}},
		{"duplicates do not count towards cap", []int64{9, 9, 9, 8}, 2, []int64{9, 8}},
		{"no cap", []int64{1, 2, 3}, 0, []int64{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, items.NormalizeTargets(tt.ids, tt.max))
		})
	}
}

func TestMirrorSynchronizer_Reconcile(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sync := items.NewMirrorSynchronizer(store, testCategories(), items.MirrorSettings{Enabled: true, Max: 2}, nil, func() time.Time { return at })

	owner := &items.Item{Language: "en", Variant: items.VariantItem, CategoryID: 1, RootID: 1, Title: "Hello", Slug: "hello", Status: items.StatusActive}
	require.NoError(t, store.CreateItem(ctx, owner))
	owner.SourceID = owner.ID
	require.NoError(t, store.UpdateItem(ctx, owner))

	actor := items.Actor{User: &items.User{ID: 42}}
	require.NoError(t, sync.Reconcile(ctx, actor, owner, []int64{4, 2, 5}))

	mirrors, err := store.ListMirrors(ctx, owner.SourceID, "en")
	require.NoError(t, err)
	require.Len(t, mirrors, 2, "capped at two")
	assert.Equal(t, int64(4), mirrors[0].CategoryID)
	assert.Equal(t, int64(1), mirrors[0].RootID)
	assert.Equal(t, "hello-4", mirrors[0].Slug)
	assert.Equal(t, int64(2), mirrors[1].CategoryID)
	assert.Equal(t, items.StatusActive, mirrors[1].Status)
	require.NotNil(t, mirrors[1].UserID)
	assert.Equal(t, int64(42), *mirrors[1].UserID)

	require.NoError(t, sync.Reconcile(ctx, actor, owner, []int64{4, 2, 5}))
	again, err := store.ListMirrors(ctx, owner.SourceID, "en")
	require.NoError(t, err)
	assert.Equal(t, mirrors, again, "reconciling twice is a no-op")

	require.NoError(t, sync.Reconcile(ctx, actor, owner, nil))
	left, err := store.ListMirrors(ctx, owner.SourceID, "")
	require.NoError(t, err)
	assert.Empty(t, left)

	_, err = store.GetItem(ctx, mirrors[0].ID)
	assert.ErrorIs(t, err, items.ErrItemNotFound, "mirrors are hard deleted")
}

func TestMirrorSynchronizer_RejectsNonCanonicalOwner(t *testing.T) {
	sync := items.NewMirrorSynchronizer(memory.New(), testCategories(), items.MirrorSettings{Enabled: true, Max: 2}, nil, nil)
	err := sync.Reconcile(context.Background(), items.Actor{}, &items.Item{Variant: items.VariantMirror}, []int64{2})
	assert.ErrorIs(t, err, items.ErrNotCanonical)
}
