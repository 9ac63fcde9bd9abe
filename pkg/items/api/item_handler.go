package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-items/pkg/items"
	"github.com/tendant/simple-items/pkg/items/report"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// PageResponse is the response body for paginated listings
type PageResponse struct {
	Items      []*items.Item `json:"items"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
}

// URLResponse is the response body for the public path of an item
type URLResponse struct {
	URL     string `json:"url"`
	Segment string `json:"segment"`
}

// ItemHandler handles HTTP requests for items
type ItemHandler struct {
	service items.Service
	reports report.Store
	urls    *items.URLBuilder
	logger  *slog.Logger
	now     func() time.Time
}

// HandlerOption configures an ItemHandler
type HandlerOption func(*ItemHandler)

// WithReports enables publishing exports to a report store
func WithReports(store report.Store) HandlerOption {
	return func(h *ItemHandler) { h.reports = store }
}

// WithURLBuilder enables the item URL endpoint
func WithURLBuilder(b *items.URLBuilder) HandlerOption {
	return func(h *ItemHandler) { h.urls = b }
}

// WithLogger sets the handler logger
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *ItemHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewItemHandler creates a new item handler
func NewItemHandler(service items.Service, opts ...HandlerOption) *ItemHandler {
	h := &ItemHandler{
		service: service,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the routes for items. Reads are public; writes require an
// acting user.
func (h *ItemHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListItems)
	r.Get("/trash", h.ListTrashed)
	r.Get("/export", h.ExportItems)
	r.Get("/slug/{slug}", h.GetItemBySlug)
	r.Get("/category/{categoryID}", h.ListCategoryItems)
	r.Get("/{id}", h.GetItem)
	r.Get("/{id}/languages", h.ListLanguages)
	r.Get("/{id}/revisions", h.ListRevisions)
	r.Get("/{id}/mirrors", h.ListMirrors)
	r.Get("/{id}/url", h.GetItemURL)

	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Post("/", h.CreateItem)
		r.Put("/{id}", h.UpdateItem)
		r.Delete("/{id}", h.DeleteItem)
		r.Post("/{id}/revisions/{revisionID}/restore", h.RestoreRevision)
	})

	return r
}

// CreateItem creates an item in every language carrying a title
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req items.CreateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}

	item, err := h.service.Create(r.Context(), ActorFromRequest(r), req)
	if err != nil {
		h.handleError(w, r, "Failed to create item", err)
		return
	}
	if item == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, item)
}

// GetItem returns the canonical row of an item. The lang query parameter
// selects a translation; without it the primary row is returned.
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, item)
}

// GetItemBySlug resolves a slug in the request language
func (h *ItemHandler) GetItemBySlug(w http.ResponseWriter, r *http.Request) {
	actor := ActorFromRequest(r)
	item, err := h.service.FindBySlug(r.Context(), chi.URLParam(r, "slug"), actor.Language)
	if err != nil {
		h.handleError(w, r, "Failed to find item by slug", err)
		return
	}
	render.JSON(w, r, item)
}

// UpdateItem replaces the translations of an item
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}

	var req items.UpdateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}

	updated, err := h.service.Update(r.Context(), ActorFromRequest(r), item, req)
	if err != nil {
		h.handleError(w, r, "Failed to update item", err)
		return
	}
	if updated == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	render.JSON(w, r, updated)
}

// DeleteItem moves translations of an item to the trash. Repeated lang
// parameters select the translations; without them every one is removed.
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}

	languages := r.URL.Query()["lang"]
	if len(languages) == 0 {
		rows, err := h.service.Languages(r.Context(), item)
		if err != nil {
			h.handleError(w, r, "Failed to list item languages", err)
			return
		}
		for _, row := range rows {
			languages = append(languages, row.Language)
		}
	}

	if err := h.service.Delete(r.Context(), ActorFromRequest(r), item, languages); err != nil {
		h.handleError(w, r, "Failed to delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreRevision replays a revision onto the item
func (h *ItemHandler) RestoreRevision(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	revisionID, err := strconv.ParseInt(chi.URLParam(r, "revisionID"), 10, 64)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, errors.New("invalid revision ID"))
		return
	}

	restored, err := h.service.RestoreRevision(r.Context(), ActorFromRequest(r), item, revisionID)
	if err != nil {
		h.handleError(w, r, "Failed to restore revision", err)
		return
	}
	render.JSON(w, r, restored)
}

// ListItems returns a page of items in the request language
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q, err := pageQuery(r)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	page, err := h.service.Paginate(r.Context(), ActorFromRequest(r), q)
	if err != nil {
		h.handleError(w, r, "Failed to list items", err)
		return
	}
	render.JSON(w, r, newPageResponse(page))
}

// ListCategoryItems returns a page of items placed in a category or under a root
func (h *ItemHandler) ListCategoryItems(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.ParseInt(chi.URLParam(r, "categoryID"), 10, 64)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, errors.New("invalid category ID"))
		return
	}
	q, err := pageQuery(r)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	page, err := h.service.PaginateByCategory(r.Context(), ActorFromRequest(r), categoryID, q)
	if err != nil {
		h.handleError(w, r, "Failed to list category items", err)
		return
	}
	render.JSON(w, r, newPageResponse(page))
}

// ListTrashed returns a page of deleted items
func (h *ItemHandler) ListTrashed(w http.ResponseWriter, r *http.Request) {
	q, err := pageQuery(r)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	page, err := h.service.PaginateTrashed(r.Context(), ActorFromRequest(r), q)
	if err != nil {
		h.handleError(w, r, "Failed to list trashed items", err)
		return
	}
	render.JSON(w, r, newPageResponse(page))
}

// ListLanguages returns the canonical row of every translation
func (h *ItemHandler) ListLanguages(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Languages(r.Context(), item)
	if err != nil {
		h.handleError(w, r, "Failed to list item languages", err)
		return
	}
	render.JSON(w, r, rows)
}

// ListRevisions returns the revision history of an item translation, newest first
func (h *ItemHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Revisions(r.Context(), item)
	if err != nil {
		h.handleError(w, r, "Failed to list revisions", err)
		return
	}
	render.JSON(w, r, rows)
}

// ListMirrors returns the second category mirrors of an item translation
func (h *ItemHandler) ListMirrors(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Mirrors(r.Context(), item, item.Language)
	if err != nil {
		h.handleError(w, r, "Failed to list mirrors", err)
		return
	}
	render.JSON(w, r, rows)
}

// GetItemURL returns the public path of an item
func (h *ItemHandler) GetItemURL(w http.ResponseWriter, r *http.Request) {
	if h.urls == nil {
		h.fail(w, r, http.StatusNotImplemented, errors.New("item URLs are not configured"))
		return
	}
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	u, err := h.urls.URL(r.Context(), ActorFromRequest(r), item)
	if err != nil {
		h.handleError(w, r, "Failed to build item URL", err)
		return
	}
	render.JSON(w, r, URLResponse{URL: u, Segment: h.urls.Segment(item)})
}

// ExportItems streams the items of a category created in a date range as
// CSV. With publish=true the CSV is stored and a link to it is returned.
func (h *ItemHandler) ExportItems(w http.ResponseWriter, r *http.Request) {
	q, err := exportQuery(r)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	rows, err := h.service.Export(r.Context(), ActorFromRequest(r), q)
	if err != nil {
		h.handleError(w, r, "Failed to export items", err)
		return
	}

	if publish, _ := strconv.ParseBool(r.URL.Query().Get("publish")); publish {
		if h.reports == nil {
			h.fail(w, r, http.StatusNotImplemented, errors.New("report storage is not configured"))
			return
		}
		published, err := report.Publish(r.Context(), h.reports, rows, h.now())
		if err != nil {
			h.handleError(w, r, "Failed to publish export", err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, published)
		return
	}

	w.Header().Set("Content-Type", report.ContentTypeCSV)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("items-%d.csv", q.CategoryID)))
	if err := report.EncodeCSV(w, rows); err != nil {
		h.logger.Error("Failed to write export", "category_id", q.CategoryID, "error", err)
	}
}

// load finds the item addressed by the id URL parameter
func (h *ItemHandler) load(w http.ResponseWriter, r *http.Request) (*items.Item, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.fail(w, r, http.StatusBadRequest, errors.New("invalid item ID"))
		return nil, false
	}

	var item *items.Item
	if lang := r.URL.Query().Get("lang"); lang != "" && r.Method != http.MethodDelete {
		item, err = h.service.FindBySource(r.Context(), id, lang)
	} else {
		item, err = h.service.FindByID(r.Context(), id)
	}
	if err != nil {
		h.handleError(w, r, "Failed to find item", err)
		return nil, false
	}
	return item, true
}

// handleError maps service errors to HTTP statuses
func (h *ItemHandler) handleError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var verr *items.ValidationError
	switch {
	case errors.As(err, &verr):
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ErrorResponse{Error: items.ErrValidation.Error(), Fields: verr.Fields})
		return
	case errors.Is(err, items.ErrItemNotFound),
		errors.Is(err, items.ErrRevisionNotFound),
		errors.Is(err, items.ErrCategoryNotFound):
		h.fail(w, r, http.StatusNotFound, err)
		return
	case errors.Is(err, items.ErrMirrorLocked),
		errors.Is(err, items.ErrRevisionImmutable),
		errors.Is(err, items.ErrNotCanonical):
		h.fail(w, r, http.StatusConflict, err)
		return
	case errors.Is(err, report.ErrReportNotFound):
		h.fail(w, r, http.StatusNotFound, err)
		return
	}

	h.logger.Error(msg, "path", r.URL.Path, "error", err)
	h.fail(w, r, http.StatusInternalServerError, errors.New(msg))
}

func (h *ItemHandler) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: rootCause(err).Error()})
}

// rootCause hides operation wrappers from clients.
func rootCause(err error) error {
	var ierr *items.ItemError
	if errors.As(err, &ierr) && ierr.Err != nil {
		return ierr.Err
	}
	return err
}

func newPageResponse(page *items.Page) PageResponse {
	rows := page.Items
	if rows == nil {
		rows = []*items.Item{}
	}
	return PageResponse{
		Items:      rows,
		Total:      page.Total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: page.TotalPages(),
	}
}

// pageQuery reads page, per_page, sort, direction and filter.<column>
// query parameters.
func pageQuery(r *http.Request) (items.PageQuery, error) {
	values := r.URL.Query()
	q := items.PageQuery{
		Language:  values.Get("lang"),
		Sort:      values.Get("sort"),
		Direction: values.Get("direction"),
		Where:     whereFilters(r),
	}
	var err error
	if v := values.Get("page"); v != "" {
		if q.Page, err = strconv.Atoi(v); err != nil {
			return q, fmt.Errorf("invalid page: %s", v)
		}
	}
	if v := values.Get("per_page"); v != "" {
		if q.PerPage, err = strconv.Atoi(v); err != nil {
			return q, fmt.Errorf("invalid per_page: %s", v)
		}
	}
	return q, nil
}

// exportQuery reads category_id, from and to (YYYY-MM-DD) and filter.<column>.
func exportQuery(r *http.Request) (items.ExportQuery, error) {
	values := r.URL.Query()
	q := items.ExportQuery{
		Language: values.Get("lang"),
		Where:    whereFilters(r),
	}
	if v := values.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return q, fmt.Errorf("invalid category_id: %s", v)
		}
		q.CategoryID = id
	}
	for name, dst := range map[string]**time.Time{"from": &q.FromDate, "to": &q.ToDate} {
		v := values.Get(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return q, fmt.Errorf("invalid %s date: %s", name, v)
		}
		*dst = &t
	}
	return q, nil
}

func whereFilters(r *http.Request) map[string]any {
	var where map[string]any
	for key, vals := range r.URL.Query() {
		column, ok := strings.CutPrefix(key, "filter.")
		if !ok || len(vals) == 0 {
			continue
		}
		if where == nil {
			where = make(map[string]any)
		}
		where[column] = filterValue(vals[0])
	}
	return where
}

// filterValue types a query value the way the columns store it.
func filterValue(v string) any {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}
