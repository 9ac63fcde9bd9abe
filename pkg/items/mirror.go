package items

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// MirrorSynchronizer keeps the second category mirrors of an item in step
// with its canonical rows.
type MirrorSynchronizer struct {
	store      Store
	categories CategoryStore
	settings   MirrorSettings
	logger     *slog.Logger
	now        func() time.Time
}

func NewMirrorSynchronizer(store Store, categories CategoryStore, settings MirrorSettings, logger *slog.Logger, now func() time.Time) *MirrorSynchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &MirrorSynchronizer{
		store:      store,
		categories: categories,
		settings:   settings,
		logger:     logger,
		now:        now,
	}
}

// NormalizeTargets drops zero and duplicate IDs and keeps at most max of the
// remaining IDs in their given order. max <= 0 disables the cap.
func NormalizeTargets(ids []int64, max int) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		if max > 0 && len(out) >= max {
			break
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Reconcile rewrites the mirrors of owner so that every language row of the
// owner has exactly one mirror per normalized target category, excluding
// the row's own category. Mirrors outside that set are deleted.
func (m *MirrorSynchronizer) Reconcile(ctx context.Context, actor Actor, owner *Item, targets []int64) error {
	if !m.settings.Enabled {
		return nil
	}
	if !IsCanonical(owner) {
		return fmt.Errorf("%w: cannot mirror %s row %d", ErrNotCanonical, owner.Variant, owner.ID)
	}
	targets = NormalizeTargets(targets, m.settings.Max)

	var categories []*Category
	if len(targets) > 0 {
		var err error
		categories, err = m.categories.FindBySources(ctx, targets)
		if err != nil {
			return fmt.Errorf("failed to load mirror categories: %w", err)
		}
	}

	languages, err := m.store.ListCanonical(ctx, []int64{owner.SourceID}, "")
	if err != nil {
		return fmt.Errorf("failed to load languages of item %d: %w", owner.SourceID, err)
	}

	kept := make(map[int64]struct{})
	for _, row := range languages {
		existing, err := m.store.ListMirrors(ctx, row.SourceID, row.Language)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to list mirrors", "source_id", row.SourceID, "language", row.Language, "error", err)
			continue
		}
		if len(categories) == 0 {
			continue
		}

		current := make(map[int64]*Item, len(existing))
		for _, mirror := range existing {
			current[mirror.CategoryID] = mirror
		}

		written := make(map[int64]struct{})
		for _, category := range categories {
			if m.settings.Max > 0 && len(written) >= m.settings.Max {
				break
			}
			if category.ID == row.CategoryID {
				continue
			}
			if _, ok := written[category.ID]; ok {
				continue
			}
			mirror := m.project(actor, row, category, current[category.ID])
			if err := m.store.SaveMirror(ctx, mirror); err != nil {
				m.logger.ErrorContext(ctx, "failed to save mirror",
					"source_id", row.SourceID,
					"language", row.Language,
					"category_id", category.ID,
					"error", err)
				continue
			}
			written[category.ID] = struct{}{}
			kept[mirror.ID] = struct{}{}
		}
	}

	return m.prune(ctx, owner.SourceID, kept)
}

// prune hard deletes every mirror of the source that was not just written.
func (m *MirrorSynchronizer) prune(ctx context.Context, sourceID int64, kept map[int64]struct{}) error {
	mirrors, err := m.store.ListMirrors(ctx, sourceID, "")
	if err != nil {
		return fmt.Errorf("failed to list mirrors of item %d: %w", sourceID, err)
	}
	var stale []int64
	for _, mirror := range mirrors {
		if _, ok := kept[mirror.ID]; !ok {
			stale = append(stale, mirror.ID)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := m.store.DeleteMirrors(ctx, stale); err != nil {
		return fmt.Errorf("failed to delete mirrors of item %d: %w", sourceID, err)
	}
	return nil
}

// project copies the mirrored field set of row onto a mirror placed in
// category. existing is reused in place when present.
func (m *MirrorSynchronizer) project(actor Actor, row *Item, category *Category, existing *Item) *Item {
	now := m.now()
	mirror := &Item{CreatedAt: now}
	if existing != nil {
		mirror = existing.Clone()
	}
	mirror.SourceID = row.SourceID
	mirror.Language = row.Language
	mirror.Variant = VariantMirror
	mirror.Locked = true
	mirror.CategoryID = category.ID
	mirror.RootID = category.Root()
	mirror.Title = row.Title
	mirror.Slug = row.Slug + "-" + strconv.FormatInt(category.ID, 10)
	mirror.Status = row.Status
	mirror.Priority = row.Priority
	mirror.PublishAt = cloneTime(row.PublishAt)
	mirror.ExpireAt = cloneTime(row.ExpireAt)
	if uid := actor.userID(); uid != nil {
		mirror.UserID = uid
	}
	mirror.Fields = nil
	for _, name := range m.settings.CustomFields {
		v, ok := row.Fields[name]
		if !ok {
			continue
		}
		if mirror.Fields == nil {
			mirror.Fields = make(map[string]any)
		}
		mirror.Fields[name] = v
	}
	mirror.UpdatedAt = now
	return mirror
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
