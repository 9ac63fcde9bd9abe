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

func TestURLBuilder_URL(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	categories := memory.NewCategoryStore(
		&items.Category{ID: 1, Slug: "news", Multilingual: true},
		&items.Category{ID: 3, Slug: "pages", Multilingual: true},
		&items.Category{ID: 6, Slug: "shop"},
	)

	active := &items.Item{SourceID: 12, Language: "fr", Variant: items.VariantItem, RootID: 1, Slug: "bonjour", Status: items.StatusActive}
	page := &items.Item{SourceID: 3, Language: "en", Variant: items.VariantPage, RootID: 3, Slug: "about", Status: items.StatusActive}
	scheduled := &items.Item{SourceID: 13, Language: "en", Variant: items.VariantItem, RootID: 1, Slug: "soon", Status: items.StatusActive, PublishAt: &future}
	shop := &items.Item{SourceID: 14, Language: "en", Variant: items.VariantItem, RootID: 6, Slug: "shoes", Status: items.StatusActive}
	external := &items.Item{SourceID: 15, Language: "en", Variant: items.VariantItem, RootID: 1, Slug: "https://example.com/x"}

	tests := []struct {
		name     string
		settings items.Settings
		item     *items.Item
		want     string
	}{
		{"id only", items.Settings{}, active, "/fr/news/12"},
		{"seo url", items.Settings{SEOURL: true}, active, "/fr/news/bonjour"},
		{"seo url with id", items.Settings{SEOURL: true, SEOURLWithID: true}, active, "/fr/news/bonjour-12"},
		{"page", items.Settings{}, page, "/en/about"},
		{"scheduled item is previewed", items.Settings{SEOURL: true}, scheduled, "/preview/en/news/soon"},
		{"future items allowed", items.Settings{SEOURL: true, AllowFutureItems: true}, scheduled, "/en/news/soon"},
		{"non multilingual uses actor language", items.Settings{SEOURL: true}, shop, "/de/shop/shoes"},
		{"absolute url", items.Settings{}, external, "https://example.com/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := items.NewURLBuilder(categories, tt.settings, func() time.Time { return now })
			got, err := b.URL(context.Background(), items.Actor{Language: "de"}, tt.item)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURLBuilder_ParseSegment(t *testing.T) {
	tests := []struct {
		name     string
		settings items.Settings
		segment  string
		wantSlug string
		wantID   int64
	}{
		{"id only", items.Settings{}, "12", "", 12},
		{"id only with slug", items.Settings{}, "hello", "hello", 0},
		{"seo url", items.Settings{SEOURL: true}, "hello-12", "hello-12", 0},
		{"seo url with id", items.Settings{SEOURLWithID: true}, "hello-12", "hello", 12},
		{"seo url with id, no id", items.Settings{SEOURLWithID: true}, "hello", "hello", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := items.NewURLBuilder(nil, tt.settings, nil)
			slug, id := b.ParseSegment(tt.segment)
			assert.Equal(t, tt.wantSlug, slug)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
