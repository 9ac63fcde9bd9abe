package items

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"
)

// service implements the Service interface
type service struct {
	store      Store
	categories CategoryStore
	localizer  Localizer
	validator  Validator
	audit      AuditLogger
	notifier   Notifier
	hooks      *Hooks
	settings   Settings
	logger     *slog.Logger
	now        func() time.Time

	slugs     *SlugResolver
	revisions *RevisionRecorder
	mirrors   *MirrorSynchronizer
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithStore sets the item store for the service
func WithStore(store Store) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithCategoryStore sets the category lookup for the service
func WithCategoryStore(categories CategoryStore) Option {
	return func(s *service) {
		s.categories = categories
	}
}

// WithLocalizer sets the configured languages
func WithLocalizer(localizer Localizer) Option {
	return func(s *service) {
		s.localizer = localizer
	}
}

// WithValidator replaces the default struct tag validator
func WithValidator(validator Validator) Option {
	return func(s *service) {
		s.validator = validator
	}
}

// WithAuditLogger sets the audit log
func WithAuditLogger(audit AuditLogger) Option {
	return func(s *service) {
		s.audit = audit
	}
}

// WithNotifier sets the event notifier
func WithNotifier(notifier Notifier) Option {
	return func(s *service) {
		s.notifier = notifier
	}
}

// WithHooks sets the lifecycle hooks
func WithHooks(hooks *Hooks) Option {
	return func(s *service) {
		s.hooks = hooks
	}
}

// WithSettings sets the service settings
func WithSettings(settings Settings) Option {
	return func(s *service) {
		s.settings = settings
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		settings: DefaultSettings(),
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if s.categories == nil {
		return nil, fmt.Errorf("category store is required")
	}
	if s.localizer == nil || len(s.localizer.Languages()) == 0 {
		return nil, fmt.Errorf("at least one language is required")
	}
	if s.validator == nil {
		s.validator = NewStructValidator()
	}
	if s.audit == nil {
		s.audit = NewNoopAuditLogger()
	}
	if s.notifier == nil {
		s.notifier = NewNoopNotifier()
	}
	if s.settings.PerPage <= 0 {
		s.settings.PerPage = DefaultSettings().PerPage
	}
	if _, err := ParseOrder(s.settings.PaginationOrder); err != nil {
		return nil, fmt.Errorf("invalid pagination order: %w", err)
	}

	s.slugs = NewSlugResolver(s.store)
	s.revisions = NewRevisionRecorder(s.store, s.now)
	s.mirrors = NewMirrorSynchronizer(s.store, s.categories, s.settings.Mirror, s.logger, s.now)

	return s, nil
}

func (s *service) Settings() Settings {
	return s.settings
}

func (s *service) CanChangeStatus(actor Actor, category *Category) bool {
	return CanChangeStatus(actor, category, s.settings.AutoPendingItems)
}

// rowWrite describes one language row of a write.
type rowWrite struct {
	language string
	payload  Payload
	status   Status
	sourceID int64
	category *Category
	root     *Category
}

// Write operations

func (s *service) Create(ctx context.Context, actor Actor, req CreateRequest) (*Item, error) {
	if err := s.validate(ctx, req, req.Languages); err != nil {
		return nil, err
	}
	category, root, err := s.placement(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	order := s.createOrder(req.Languages)
	if len(order) == 0 {
		return nil, nil
	}

	capable := s.CanChangeStatus(actor, category)

	var source *Item
	for _, code := range order {
		hctx := NewHookContext(ctx, actor)
		payload := req.Languages[code]
		w := rowWrite{
			language: code,
			payload:  payload,
			status:   createStatus(payload.Status, capable),
			category: category,
			root:     root,
		}
		if source != nil {
			w.sourceID = source.SourceID
		}

		item, err := s.build(hctx, actor, nil, w)
		if err == nil {
			err = s.persist(ctx, item)
		}
		if err != nil {
			err = &ItemError{ItemID: w.sourceID, Op: "create", Err: err}
			s.hooks.runOnError(hctx, "create", err)
			if source == nil {
				return nil, err
			}
			s.logger.ErrorContext(ctx, "failed to create language row",
				"source_id", source.SourceID, "language", code, "error", err)
			continue
		}
		if source == nil {
			source = item
		}

		s.afterSave(hctx, item, nil, EventSaved)
		s.log(ctx, AuditCreate, map[string]any{
			"id":        item.ID,
			"source_id": item.SourceID,
		}, item.ID)
	}

	s.fire(ctx, EventSavedSource, source, nil)
	s.fire(ctx, EventCreate, source, nil)

	if err := s.mirrors.Reconcile(ctx, actor, source, req.SecondCategories); err != nil {
		s.logger.WarnContext(ctx, "mirror reconciliation failed", "source_id", source.SourceID, "error", err)
	}

	return s.refresh(ctx, source), nil
}

func (s *service) Update(ctx context.Context, actor Actor, item *Item, req UpdateRequest) (*Item, error) {
	if err := EnsureMutable(item); err != nil {
		return nil, &ItemError{ItemID: idOf(item), Op: "update", Err: err}
	}
	owner, err := s.store.FindCanonical(ctx, item.SourceID, item.Language)
	if err != nil {
		return nil, &ItemError{ItemID: item.ID, Op: "update", Err: err}
	}

	if req.CategoryID == 0 {
		req.CategoryID = owner.CategoryID
	}
	if err := s.validate(ctx, req, req.Languages); err != nil {
		if !req.RestoredFromRevision || !errors.Is(err, ErrValidation) {
			return nil, err
		}
		s.logger.InfoContext(ctx, "ignoring validation failure of restored revision", "source_id", owner.SourceID, "error", err)
	}
	category, root, err := s.placement(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListCanonical(ctx, []int64{owner.SourceID}, "")
	if err != nil {
		return nil, &ItemError{ItemID: owner.ID, Op: "update", Err: err}
	}
	existing := make(map[string]*Item, len(rows))
	for _, row := range rows {
		existing[row.Language] = row
	}

	capable := s.CanChangeStatus(actor, category)

	for _, lang := range s.localizer.Languages() {
		payload, ok := req.Languages[lang.Code]
		if !ok || !payload.HasContent() {
			continue
		}
		hctx := NewHookContext(ctx, actor)
		previous := existing[lang.Code]
		w := rowWrite{
			language: lang.Code,
			payload:  payload,
			status:   updateStatus(payload.Status, previous, owner, capable),
			sourceID: owner.SourceID,
			category: category,
			root:     root,
		}
		if err := s.updateRow(ctx, hctx, actor, previous, w, req.RestoredFromRevision); err != nil {
			err = &ItemError{ItemID: owner.SourceID, Op: "update", Err: err}
			s.hooks.runOnError(hctx, "update", err)
			s.logger.ErrorContext(ctx, "failed to update language row",
				"source_id", owner.SourceID, "language", lang.Code, "error", err)
		}
	}

	refreshed := s.refresh(ctx, owner)
	if err := s.mirrors.Reconcile(ctx, actor, refreshed, req.SecondCategories); err != nil {
		s.logger.WarnContext(ctx, "mirror reconciliation failed", "source_id", owner.SourceID, "error", err)
	}
	s.fire(ctx, EventSavedSource, refreshed, owner)

	return refreshed, nil
}

// updateRow writes one language of an update. A missing row is created, an
// existing row is snapshotted first when a tracked attribute changes.
func (s *service) updateRow(ctx context.Context, hctx *HookContext, actor Actor, previous *Item, w rowWrite, restored bool) error {
	item, err := s.build(hctx, actor, previous, w)
	if err != nil {
		return err
	}

	if previous == nil {
		if err := s.persist(ctx, item); err != nil {
			return err
		}
		s.log(ctx, AuditCreate, map[string]any{
			"id":        item.ID,
			"source_id": item.SourceID,
		}, item.ID)
		s.fire(ctx, EventUpdateCreate, item, nil)
		s.afterSave(hctx, item, nil, EventSaved)
		return nil
	}

	// An existing row knows its disambiguator, so the slug is final before
	// it is compared.
	s.resolveSlug(ctx, item)
	diff, err := s.revisions.Diff(previous, item)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to diff item", "id", previous.ID, "error", err)
		diff = nil
	}

	var revisionID *int64
	if len(diff) > 0 && !restored {
		id, err := s.revisions.Capture(ctx, previous)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to capture revision", "id", previous.ID, "error", err)
		} else {
			revisionID = &id
		}
	}

	item.UpdatedAt = s.now()
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return err
	}

	if len(diff) > 0 {
		s.log(ctx, AuditUpdate, map[string]any{
			"id":          item.ID,
			"source_id":   item.SourceID,
			"revision_id": revisionID,
			"changes":     diff,
		}, item.ID)
		s.fire(ctx, EventUpdate, item, previous)
	}
	s.afterSave(hctx, item, previous, EventSaved)
	return nil
}

func (s *service) Delete(ctx context.Context, actor Actor, item *Item, languages []string) error {
	if err := EnsureMutable(item); err != nil {
		return &ItemError{ItemID: idOf(item), Op: "delete", Err: err}
	}
	rows, err := s.store.ListCanonical(ctx, []int64{item.SourceID}, "")
	if err != nil {
		return &ItemError{ItemID: item.ID, Op: "delete", Err: err}
	}

	for _, row := range rows {
		if !slices.Contains(languages, row.Language) {
			continue
		}
		hctx := NewHookContext(ctx, actor)
		s.log(ctx, AuditDelete, map[string]any{
			"id":        row.ID,
			"source_id": row.SourceID,
			"title":     row.Title,
		}, row.ID)

		if err := s.store.DeleteItem(ctx, row.ID); err != nil {
			err = &ItemError{ItemID: row.ID, Op: "delete", Err: err}
			s.hooks.runOnError(hctx, "delete", err)
			s.logger.ErrorContext(ctx, "failed to delete language row",
				"source_id", row.SourceID, "language", row.Language, "error", err)
			continue
		}
		s.dropMirrors(ctx, row)

		deleted := row.Clone()
		deleted.Status = StatusDeleted
		s.fire(ctx, EventDelete, deleted, row)
		if err := s.hooks.runAfterDelete(hctx, deleted); err != nil {
			s.logger.WarnContext(ctx, "after delete hook failed", "id", row.ID, "error", err)
		}
	}
	return nil
}

// dropMirrors removes the mirrors of a deleted language row.
func (s *service) dropMirrors(ctx context.Context, row *Item) {
	mirrors, err := s.store.ListMirrors(ctx, row.SourceID, row.Language)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list mirrors", "source_id", row.SourceID, "language", row.Language, "error", err)
		return
	}
	if len(mirrors) == 0 {
		return
	}
	ids := make([]int64, 0, len(mirrors))
	for _, m := range mirrors {
		ids = append(ids, m.ID)
	}
	if err := s.store.DeleteMirrors(ctx, ids); err != nil {
		s.logger.WarnContext(ctx, "failed to delete mirrors", "source_id", row.SourceID, "language", row.Language, "error", err)
	}
}

func (s *service) RestoreRevision(ctx context.Context, actor Actor, item *Item, revisionID int64) (*Item, error) {
	if err := EnsureMutable(item); err != nil {
		return nil, &ItemError{ItemID: idOf(item), Op: "restore_revision", Err: err}
	}
	revision, err := s.FindRevision(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	if revision.SourceID != item.SourceID {
		return nil, &ItemError{ItemID: item.ID, Op: "restore_revision", Err: ErrRevisionNotFound}
	}
	owner, err := s.store.FindCanonical(ctx, revision.SourceID, revision.Language)
	if err != nil {
		return nil, &ItemError{ItemID: item.ID, Op: "restore_revision", Err: err}
	}

	mirrors, err := s.store.ListMirrors(ctx, owner.SourceID, "")
	if err != nil {
		return nil, &ItemError{ItemID: owner.ID, Op: "restore_revision", Err: err}
	}
	var targets []int64
	for _, m := range mirrors {
		targets = append(targets, m.CategoryID)
	}

	restored, err := s.Update(ctx, actor, owner, UpdateRequest{
		CategoryID:           revision.CategoryID,
		Languages:            map[string]Payload{revision.Language: payloadFromItem(revision)},
		SecondCategories:     targets,
		RestoredFromRevision: true,
	})
	if err != nil {
		return nil, err
	}

	s.log(ctx, AuditRestoreRevision, map[string]any{
		"id":          owner.ID,
		"source_id":   owner.SourceID,
		"revision_id": revision.ID,
	}, owner.ID)
	s.fire(ctx, EventRestore, restored, owner)
	return restored, nil
}

func payloadFromItem(item *Item) Payload {
	return Payload{
		Title:           item.Title,
		Slug:            item.Slug,
		Status:          item.Status,
		Priority:        item.Priority,
		PublishAt:       cloneTime(item.PublishAt),
		ExpireAt:        cloneTime(item.ExpireAt),
		DisableExpireAt: item.ExpireAt == nil,
		Fields:          item.Clone().Fields,
	}
}

// Helpers

// validate runs the configured validator and checks the language codes.
func (s *service) validate(ctx context.Context, req any, languages map[string]Payload) error {
	verr := NewValidationError()
	if err := s.validator.Validate(ctx, req); err != nil {
		if !errors.As(err, &verr) {
			return err
		}
	}
	configured := s.localizer.Languages()
	for code := range languages {
		if !slices.ContainsFunc(configured, func(l Language) bool { return l.Code == code }) {
			verr.Add("languages["+code+"]", "unsupported language")
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// placement loads a category and its root. A missing category is reported
// as a validation failure.
func (s *service) placement(ctx context.Context, categoryID int64) (*Category, *Category, error) {
	category, err := s.categories.FindBySource(ctx, categoryID)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			verr := NewValidationError()
			verr.Add("category_id", "category not found")
			return nil, nil, verr
		}
		return nil, nil, fmt.Errorf("failed to load category %d: %w", categoryID, err)
	}
	if category.Root() == category.ID {
		return category, category, nil
	}
	root, err := s.categories.FindBySource(ctx, category.Root())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load root category %d: %w", category.Root(), err)
	}
	return category, root, nil
}

// createOrder returns the languages to write, defining language first. The
// defining language is the first active language with content, falling back
// to the first language with content.
func (s *service) createOrder(languages map[string]Payload) []string {
	var order []string
	defining := -1
	for _, lang := range s.localizer.Languages() {
		if !languages[lang.Code].HasContent() {
			continue
		}
		if lang.Active && defining < 0 {
			defining = len(order)
		}
		order = append(order, lang.Code)
	}
	if defining > 0 {
		code := order[defining]
		order = append(order[:defining], order[defining+1:]...)
		order = append([]string{code}, order...)
	}
	return order
}

// build returns the state a language row will have after the write.
func (s *service) build(hctx *HookContext, actor Actor, existing *Item, w rowWrite) (*Item, error) {
	payload, err := s.hooks.runBeforeSave(hctx, SaveInput{
		Language: w.language,
		Payload:  w.payload,
		Existing: existing,
	})
	if err != nil {
		return nil, fmt.Errorf("before save hook: %w", err)
	}

	now := s.now()
	item := &Item{CreatedAt: now, UpdatedAt: now}
	if existing != nil {
		item = existing.Clone()
	}
	item.Language = w.language
	item.Title = payload.Title
	item.Priority = payload.Priority
	item.Status = w.status
	item.PublishAt = cloneTime(payload.PublishAt)
	item.ExpireAt = cloneTime(payload.ExpireAt)
	if payload.DisableExpireAt {
		item.ExpireAt = nil
	}
	if w.sourceID != 0 {
		item.SourceID = w.sourceID
	}
	item.CategoryID = w.category.ID
	item.RootID = w.category.Root()
	item.Variant = canonicalVariantFor(w.root, s.settings.PagesRootSlug)
	if item.UserID == nil {
		item.UserID = actor.userID()
	}
	if len(payload.Fields) > 0 {
		if item.Fields == nil {
			item.Fields = make(map[string]any, len(payload.Fields))
		}
		for k, v := range payload.Fields {
			item.Fields[k] = v
		}
	}

	slug := MakeSlug(payload.Slug)
	if slug == "" {
		slug = MakeSlug(payload.Title)
	}
	if slug == "" && existing != nil {
		slug = existing.Slug
	}
	item.Slug = slug
	return item, nil
}

// persist creates item and resolves its slug. Rows that do not know their
// disambiguator yet are saved once, then resolved and saved again.
func (s *service) persist(ctx context.Context, item *Item) error {
	if item.SourceID == 0 {
		if err := s.store.CreateItem(ctx, item); err != nil {
			return err
		}
		item.SourceID = item.ID
		s.resolveSlug(ctx, item)
		return s.store.UpdateItem(ctx, item)
	}

	s.resolveSlug(ctx, item)
	return s.store.CreateItem(ctx, item)
}

func (s *service) resolveSlug(ctx context.Context, item *Item) {
	disambiguator := item.SourceID
	if disambiguator == 0 {
		disambiguator = item.ID
	}
	if item.Slug == "" {
		if disambiguator == 0 {
			return
		}
		item.Slug = strconv.FormatInt(disambiguator, 10)
	}
	slug, err := s.slugs.Resolve(ctx, item.Slug, item.Language, item.ID, disambiguator)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to resolve slug", "slug", item.Slug, "language", item.Language, "error", err)
		return
	}
	item.Slug = slug
}

// idOf returns the ID of item, zero for nil.
func idOf(item *Item) int64 {
	if item == nil {
		return 0
	}
	return item.ID
}

// refresh reloads a canonical row, falling back to the given copy.
func (s *service) refresh(ctx context.Context, item *Item) *Item {
	fresh, err := s.store.FindCanonical(ctx, item.SourceID, item.Language)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to reload item", "source_id", item.SourceID, "language", item.Language, "error", err)
		return item
	}
	return fresh
}

func (s *service) afterSave(hctx *HookContext, item, previous *Item, event string) {
	s.fire(hctx.Context, event, item, previous)
	if err := s.hooks.runAfterSave(hctx, item); err != nil {
		s.logger.WarnContext(hctx.Context, "after save hook failed", "id", item.ID, "error", err)
	}
}

func (s *service) fire(ctx context.Context, name string, item, previous *Item) {
	if err := s.notifier.Notify(ctx, NewEvent(name, item, previous, s.now())); err != nil {
		// Log error but don't fail the operation
		s.logger.WarnContext(ctx, "failed to notify", "event", name, "error", err)
	}
}

func (s *service) log(ctx context.Context, event string, payload map[string]any, subjectID int64) {
	if err := s.audit.Log(ctx, event, payload, subjectID); err != nil {
		s.logger.WarnContext(ctx, "failed to write audit log", "event", event, "subject_id", subjectID, "error", err)
	}
}
