package items

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// attributes is the schema projection of an item used for diffing. Row
// identity, timestamps and the lock flag are not tracked.
type attributes struct {
	Language   string         `json:"language"`
	CategoryID int64          `json:"category_id"`
	RootID     int64          `json:"root_id"`
	Title      string         `json:"title"`
	Slug       string         `json:"slug"`
	Status     Status         `json:"status"`
	Priority   int            `json:"priority"`
	PublishAt  *string        `json:"publish_at"`
	ExpireAt   *string        `json:"expire_at"`
	UserID     *int64         `json:"user_id"`
	Fields     map[string]any `json:"fields,omitempty"`
}

func projectAttributes(item *Item) attributes {
	return attributes{
		Language:   item.Language,
		CategoryID: item.CategoryID,
		RootID:     item.RootID,
		Title:      item.Title,
		Slug:       item.Slug,
		Status:     item.Status,
		Priority:   item.Priority,
		PublishAt:  formatTime(item.PublishAt),
		ExpireAt:   formatTime(item.ExpireAt),
		UserID:     item.UserID,
		Fields:     item.Fields,
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Truncate(time.Second).Format(time.RFC3339)
	return &s
}

// RevisionRecorder snapshots canonical rows before they change.
type RevisionRecorder struct {
	store Store
	now   func() time.Time
}

func NewRevisionRecorder(store Store, now func() time.Time) *RevisionRecorder {
	if now == nil {
		now = time.Now
	}
	return &RevisionRecorder{store: store, now: now}
}

// Diff returns the tracked attributes that differ between previous and
// next as a JSON merge patch. Removed attributes map to nil. An empty map
// means nothing tracked changed.
func (r *RevisionRecorder) Diff(previous, next *Item) (map[string]any, error) {
	before, err := json.Marshal(projectAttributes(previous))
	if err != nil {
		return nil, fmt.Errorf("failed to encode previous state: %w", err)
	}
	after, err := json.Marshal(projectAttributes(next))
	if err != nil {
		return nil, fmt.Errorf("failed to encode next state: %w", err)
	}
	patch, err := jsonpatch.CreateMergePatch(before, after)
	if err != nil {
		return nil, fmt.Errorf("failed to diff item %d: %w", previous.ID, err)
	}
	diff := make(map[string]any)
	if err := json.Unmarshal(patch, &diff); err != nil {
		return nil, fmt.Errorf("failed to decode diff: %w", err)
	}
	return diff, nil
}

// Capture stores a full copy of previous as a new revision row and returns
// its ID.
func (r *RevisionRecorder) Capture(ctx context.Context, previous *Item) (int64, error) {
	if !IsCanonical(previous) {
		return 0, fmt.Errorf("%w: cannot snapshot %s row %d", ErrNotCanonical, previous.Variant, previous.ID)
	}
	revision := previous.Clone()
	revision.ID = 0
	revision.Variant = VariantRevision
	revision.Locked = false
	now := r.now()
	revision.CreatedAt = now
	revision.UpdatedAt = now

	if err := r.store.CreateItem(ctx, revision); err != nil {
		return 0, &ItemError{ItemID: previous.ID, Op: "capture_revision", Err: err}
	}
	return revision.ID, nil
}
