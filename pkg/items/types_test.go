package items_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-items/pkg/items"
)

func TestItemVisibility(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name        string
		item        items.Item
		allowFuture bool
		active      bool
		expired     bool
	}{
		{"active", items.Item{Status: items.StatusActive}, false, true, false},
		{"pending", items.Item{Status: items.StatusPending}, false, false, false},
		{"expired", items.Item{Status: items.StatusActive, ExpireAt: &past}, false, false, true},
		{"scheduled", items.Item{Status: items.StatusActive, PublishAt: &future}, false, false, false},
		{"scheduled allowed", items.Item{Status: items.StatusActive, PublishAt: &future}, true, true, false},
		{"published", items.Item{Status: items.StatusActive, PublishAt: &past, ExpireAt: &future}, false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.active, tt.item.IsActive(now, tt.allowFuture))
			assert.Equal(t, tt.expired, tt.item.IsExpired(now))
		})
	}
}

func TestIdentity(t *testing.T) {
	tests := []struct {
		variant   items.Variant
		canonical bool
		revision  bool
		mirror    bool
	}{
		{items.VariantPage, true, false, false},
		{items.VariantItem, true, false, false},
		{items.VariantRevision, false, true, false},
		{items.VariantMirror, false, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			item := &items.Item{Variant: tt.variant, Locked: tt.variant == items.VariantMirror}
			assert.Equal(t, tt.canonical, items.IsCanonical(item))
			assert.Equal(t, tt.revision, items.IsRevision(item))
			assert.Equal(t, tt.mirror, items.IsMirror(item))
			assert.Equal(t, tt.mirror, tt.variant.Lockable())
			assert.Equal(t, tt.canonical, items.EnsureMutable(item) == nil)
		})
	}
}

func TestItemClone(t *testing.T) {
	at := time.Now()
	uid := int64(3)
	item := &items.Item{PublishAt: &at, UserID: &uid, Fields: map[string]any{"a": 1}}

	c := item.Clone()
	*c.PublishAt = at.Add(time.Hour)
	*c.UserID = 4
	c.Fields["a"] = 2

	assert.Equal(t, at, *item.PublishAt)
	assert.Equal(t, int64(3), *item.UserID)
	assert.Equal(t, 1, item.Fields["a"])
}

func TestParseOrder(t *testing.T) {
	terms, err := items.ParseOrder("priority ASC, created_at DESC")
	require.NoError(t, err)
	assert.Equal(t, []items.OrderTerm{
		{Column: "priority"},
		{Column: "created_at", Desc: true},
	}, terms)

	_, err = items.ParseOrder("password desc")
	assert.Error(t, err)

	_, err = items.ParseOrder("title sideways")
	assert.Error(t, err)
}

func TestStructValidator(t *testing.T) {
	v := items.NewStructValidator()
	ctx := context.Background()
	publish := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	before := publish.Add(-time.Hour)

	err := v.Validate(ctx, items.CreateRequest{CategoryID: 1, Languages: map[string]items.Payload{"en": {Title: "ok"}}})
	assert.NoError(t, err)

	err = v.Validate(ctx, items.CreateRequest{CategoryID: 1, Languages: map[string]items.Payload{
		"en": {Title: "ok", PublishAt: &publish, ExpireAt: &before},
	}})
	var verr *items.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"must be after publish_at"}, verr.Fields["languages[en].expire_at"])

	err = v.Validate(ctx, items.UpdateRequest{Languages: map[string]items.Payload{
		"en": {Title: "ok", PublishAt: &publish, ExpireAt: &before, DisableExpireAt: true},
	}})
	assert.NoError(t, err)

	err = v.Validate(ctx, items.UpdateRequest{})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "languages")
}
