// Package report encodes item exports and publishes them to blob storage.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/tendant/simple-items/pkg/items"
)

// ContentTypeCSV is the content type of published exports.
const ContentTypeCSV = "text/csv"

// ErrReportNotFound is returned when a report key does not exist in a store.
var ErrReportNotFound = errors.New("report not found")

// Store persists published reports.
type Store interface {
	Put(ctx context.Context, key, contentType string, reader io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// URL returns a location the report can be downloaded from.
	URL(ctx context.Context, key string) (string, error)
}

// Row is one exported item.
type Row struct {
	ID         int64  `csv:"id"`
	SourceID   int64  `csv:"source_id"`
	Language   string `csv:"language"`
	Type       string `csv:"type"`
	CategoryID int64  `csv:"category_id"`
	RootID     int64  `csv:"root_id"`
	Title      string `csv:"title"`
	Slug       string `csv:"slug"`
	Status     string `csv:"status"`
	Priority   int    `csv:"priority"`
	PublishAt  string `csv:"publish_at"`
	ExpireAt   string `csv:"expire_at"`
	UserID     string `csv:"user_id"`
	CreatedAt  string `csv:"created_at"`
	UpdatedAt  string `csv:"updated_at"`
}

// Rows converts items into export rows.
func Rows(list []*items.Item) []*Row {
	rows := make([]*Row, 0, len(list))
	for _, item := range list {
		row := &Row{
			ID:         item.ID,
			SourceID:   item.SourceID,
			Language:   item.Language,
			Type:       string(item.Variant),
			CategoryID: item.CategoryID,
			RootID:     item.RootID,
			Title:      item.Title,
			Slug:       item.Slug,
			Status:     string(item.Status),
			Priority:   item.Priority,
			PublishAt:  timestamp(item.PublishAt),
			ExpireAt:   timestamp(item.ExpireAt),
			CreatedAt:  timestamp(&item.CreatedAt),
			UpdatedAt:  timestamp(&item.UpdatedAt),
		}
		if item.UserID != nil {
			row.UserID = fmt.Sprint(*item.UserID)
		}
		rows = append(rows, row)
	}
	return rows
}

func timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// EncodeCSV writes list as CSV with a header line.
func EncodeCSV(w io.Writer, list []*items.Item) error {
	return gocsv.Marshal(Rows(list), w)
}

// Published describes a stored export.
type Published struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// Publish encodes list as CSV and stores it under a new key.
func Publish(ctx context.Context, store Store, list []*items.Item, now time.Time) (*Published, error) {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, list); err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	key := fmt.Sprintf("exports/%s/%s.csv", now.UTC().Format("2006/01/02"), uuid.New())
	if err := store.Put(ctx, key, ContentTypeCSV, &buf); err != nil {
		return nil, fmt.Errorf("store export: %w", err)
	}

	url, err := store.URL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("export url: %w", err)
	}
	return &Published{Key: key, URL: url, Count: len(list)}, nil
}
