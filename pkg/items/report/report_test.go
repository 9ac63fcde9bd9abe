package report_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-items/pkg/items"
	"github.com/tendant/simple-items/pkg/items/report"
	"github.com/tendant/simple-items/pkg/items/report/memory"
)

func sampleItems() []*items.Item {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	uid := int64(7)
	return []*items.Item{
		{ID: 1, SourceID: 1, Language: "en", Variant: items.VariantItem, CategoryID: 4, RootID: 1,
			Title: "Hello", Slug: "hello", Status: items.StatusActive, UserID: &uid, CreatedAt: at, UpdatedAt: at},
		{ID: 2, SourceID: 1, Language: "en", Variant: items.VariantMirror, CategoryID: 2, RootID: 2,
			Title: "Hello, again", Slug: "hello-2", Status: items.StatusActive, PublishAt: &at, CreatedAt: at, UpdatedAt: at},
	}
}

func TestEncodeCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.EncodeCSV(&buf, sampleItems()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,source_id,language,type,category_id,root_id,title,slug,status,priority,publish_at,expire_at,user_id,created_at,updated_at", lines[0])
	assert.Equal(t, "1,1,en,item,4,1,Hello,hello,active,0,,,7,2024-05-01T09:00:00Z,2024-05-01T09:00:00Z", lines[1])
	assert.Contains(t, lines[2], `"Hello, again"`)
	assert.Contains(t, lines[2], "second_category")
}

func TestRows_EmptyTimes(t *testing.T) {
	rows := report.Rows([]*items.Item{{ID: 3}})
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].CreatedAt)
	assert.Empty(t, rows[0].UserID)
}

func TestPublish(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)

	published, err := report.Publish(ctx, store, sampleItems(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, published.Count)
	assert.True(t, strings.HasPrefix(published.Key, "exports/2024/05/01/"))
	assert.True(t, strings.HasSuffix(published.Key, ".csv"))
	assert.Equal(t, "memory://"+published.Key, published.URL)
	assert.Equal(t, report.ContentTypeCSV, store.ContentType(published.Key))

	rc, err := store.Get(ctx, published.Key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,source_id"))

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, report.ErrReportNotFound)
}
