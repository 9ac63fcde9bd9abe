package items

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// URLBuilder renders public paths of items.
type URLBuilder struct {
	categories CategoryStore
	settings   Settings
	now        func() time.Time
}

func NewURLBuilder(categories CategoryStore, settings Settings, now func() time.Time) *URLBuilder {
	if now == nil {
		now = time.Now
	}
	return &URLBuilder{categories: categories, settings: settings, now: now}
}

// Segment returns the path segment identifying an item.
func (b *URLBuilder) Segment(item *Item) string {
	switch {
	case b.settings.SEOURLWithID:
		return AppendID(item.Slug, item.SourceID)
	case b.settings.SEOURL:
		return item.Slug
	default:
		return strconv.FormatInt(item.SourceID, 10)
	}
}

// URL returns the public path of item as seen by actor. Inactive items are
// served from the preview area. A slug holding an absolute URL is returned
// verbatim.
func (b *URLBuilder) URL(ctx context.Context, actor Actor, item *Item) (string, error) {
	if strings.HasPrefix(item.Slug, "http://") || strings.HasPrefix(item.Slug, "https://") {
		return item.Slug, nil
	}
	root, err := b.categories.FindBySource(ctx, item.RootID)
	if err != nil {
		return "", fmt.Errorf("failed to load root category %d: %w", item.RootID, err)
	}

	language := item.Language
	if !root.Multilingual && actor.Language != "" {
		language = actor.Language
	}

	var path string
	if item.Variant == VariantPage {
		path = "/" + language + "/" + item.Slug
	} else {
		path = "/" + language + "/" + root.Slug + "/" + b.Segment(item)
	}
	if !item.IsActive(b.now(), b.settings.AllowFutureItems) {
		path = "/preview" + path
	}
	return path, nil
}

// ParseSegment extracts what identifies an item from a path segment: the
// source ID when ids are part of URLs, otherwise the slug.
func (b *URLBuilder) ParseSegment(segment string) (slug string, sourceID int64) {
	switch {
	case b.settings.SEOURLWithID:
		if s, id, ok := SplitSlugID(segment); ok {
			return s, id
		}
		return segment, 0
	case b.settings.SEOURL:
		return segment, 0
	default:
		id, err := strconv.ParseInt(segment, 10, 64)
		if err != nil {
			return segment, 0
		}
		return "", id
	}
}
