package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-items/pkg/items"
	"github.com/tendant/simple-items/pkg/items/repo/memory"
	memoryreport "github.com/tendant/simple-items/pkg/items/report/memory"
)

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type handlerTest struct {
	router  chi.Router
	auth    *jwtauth.JWTAuth
	reports *memoryreport.Store
}

func setupItemHandlerTest(t *testing.T) *handlerTest {
	t.Helper()

	categories := memory.NewCategoryStore(
		&items.Category{ID: 1, Slug: "news", Multilingual: true, Active: true},
		&items.Category{ID: 2, Slug: "sports", Multilingual: true, Active: true},
	)
	settings := items.DefaultSettings()
	clock := testNow
	svc, err := items.New(
		items.WithStore(memory.New()),
		items.WithCategoryStore(categories),
		items.WithLocalizer(items.NewStaticLocalizer(
			items.Language{Code: "en", Active: true},
			items.Language{Code: "fr", Active: true},
		)),
		items.WithSettings(settings),
		items.WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)
	require.NoError(t, err)

	ht := &handlerTest{
		auth:    jwtauth.New("HS256", []byte("test-secret"), nil),
		reports: memoryreport.New(),
	}
	handler := NewItemHandler(svc,
		WithReports(ht.reports),
		WithURLBuilder(items.NewURLBuilder(categories, settings, func() time.Time { return testNow })),
	)
	handler.now = func() time.Time { return testNow }

	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(ht.auth))
	r.Mount("/items", handler.Routes())
	ht.router = r
	return ht
}

func (ht *handlerTest) token(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	_, token, err := ht.auth.Encode(claims)
	require.NoError(t, err)
	return token
}

func (ht *handlerTest) do(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ht.router.ServeHTTP(w, req)
	return w
}

func (ht *handlerTest) admin(t *testing.T) string {
	return ht.token(t, map[string]interface{}{ClaimUserID: 1, ClaimSuper: true})
}

func (ht *handlerTest) createItem(t *testing.T, token, title string) *items.Item {
	t.Helper()
	w := ht.do(t, http.MethodPost, "/items/", token, items.CreateRequest{
		CategoryID: 1,
		Languages: map[string]items.Payload{
			"en": {Title: title, Status: items.StatusActive},
			"fr": {Title: title + " FR", Status: items.StatusActive},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var item items.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	return &item
}

func TestItemHandler_CreateRequiresUser(t *testing.T) {
	ht := setupItemHandlerTest(t)

	w := ht.do(t, http.MethodPost, "/items/", "", items.CreateRequest{CategoryID: 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ht.do(t, http.MethodPost, "/items/", "not-a-token", items.CreateRequest{CategoryID: 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestItemHandler_CreateAndGet(t *testing.T) {
	ht := setupItemHandlerTest(t)
	token := ht.admin(t)

	item := ht.createItem(t, token, "Hello World")
	assert.Equal(t, "hello-world", item.Slug)
	assert.Equal(t, "en", item.Language)
	assert.Equal(t, item.ID, item.SourceID)

	w := ht.do(t, http.MethodGet, fmt.Sprintf("/items/%d", item.SourceID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got items.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Hello World", got.Title)

	w = ht.do(t, http.MethodGet, fmt.Sprintf("/items/%d?lang=fr", item.SourceID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "fr", got.Language)
	assert.Equal(t, "hello-world-fr", got.Slug)

	w = ht.do(t, http.MethodGet, "/items/slug/hello-world-fr?lang=fr", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, item.SourceID, got.SourceID)

	w = ht.do(t, http.MethodGet, fmt.Sprintf("/items/%d/languages", item.SourceID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rows []*items.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	assert.Len(t, rows, 2)
}

func TestItemHandler_Errors(t *testing.T) {
	ht := setupItemHandlerTest(t)
	token := ht.admin(t)

	tests := []struct {
		name   string
		method string
		target string
		body   interface{}
		want   int
	}{
		{"invalid id", http.MethodGet, "/items/abc", nil, http.StatusBadRequest},
		{"missing item", http.MethodGet, "/items/999", nil, http.StatusNotFound},
		{"missing slug", http.MethodGet, "/items/slug/nothing", nil, http.StatusNotFound},
		{"invalid page", http.MethodGet, "/items/?page=x", nil, http.StatusBadRequest},
		{"unknown filter column", http.MethodGet, "/items/?filter.password=x", nil, http.StatusUnprocessableEntity},
		{"invalid json", http.MethodPost, "/items/", "{", http.StatusBadRequest},
		{"export without category", http.MethodGet, "/items/export", nil, http.StatusUnprocessableEntity},
		{"export bad date", http.MethodGet, "/items/export?category_id=1&from=May", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ht.do(t, tt.method, tt.target, token, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestItemHandler_ValidationError(t *testing.T) {
	ht := setupItemHandlerTest(t)

	w := ht.do(t, http.MethodPost, "/items/", ht.admin(t), items.CreateRequest{
		Languages: map[string]items.Payload{"en": {Title: "No category"}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation failed", resp.Error)
	assert.Contains(t, resp.Fields, "category_id")
}

func TestItemHandler_UpdateAndRestore(t *testing.T) {
	ht := setupItemHandlerTest(t)
	token := ht.admin(t)
	item := ht.createItem(t, token, "Original")

	w := ht.do(t, http.MethodPut, fmt.Sprintf("/items/%d", item.SourceID), token, items.UpdateRequest{
		Languages: map[string]items.Payload{"en": {Title: "Changed", Status: items.StatusActive}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated items.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Changed", updated.Title)
	assert.Equal(t, item.ID, updated.ID)

	w = ht.do(t, http.MethodGet, fmt.Sprintf("/items/%d/revisions", item.SourceID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var revisions []*items.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &revisions))
	require.NotEmpty(t, revisions)
	assert.Equal(t, items.VariantRevision, revisions[0].Variant)
	assert.Equal(t, "Original", revisions[0].Title)

	target := fmt.Sprintf("/items/%d/revisions/%d/restore", item.SourceID, revisions[0].ID)
	w = ht.do(t, http.MethodPost, target, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var restored items.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &restored))
	assert.Equal(t, "Original", restored.Title)

	w = ht.do(t, http.MethodPost, fmt.Sprintf("/items/%d/revisions/999/restore", item.SourceID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestItemHandler_ListAndDelete(t *testing.T) {
	ht := setupItemHandlerTest(t)
	token := ht.admin(t)
	first := ht.createItem(t, token, "First")
	ht.createItem(t, token, "Second")

	w := ht.do(t, http.MethodGet, "/items/?per_page=1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page PageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 1)

	w = ht.do(t, http.MethodGet, "/items/category/1?lang=fr", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	for _, row := range page.Items {
		assert.Equal(t, "fr", row.Language)
	}

	w = ht.do(t, http.MethodDelete, fmt.Sprintf("/items/%d", first.SourceID), token, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = ht.do(t, http.MethodGet, "/items/", token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)

	w = ht.do(t, http.MethodGet, "/items/trash", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Equal(t, 1, page.Total)
	assert.Equal(t, first.SourceID, page.Items[0].SourceID)
}

func TestItemHandler_Export(t *testing.T) {
	ht := setupItemHandlerTest(t)
	token := ht.admin(t)
	ht.createItem(t, token, "Exported")

	w := ht.do(t, http.MethodGet, "/items/export?category_id=1&from=2024-05-01&to=2024-05-01", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,source_id,language"))
	assert.Contains(t, lines[1], "exported")

	w = ht.do(t, http.MethodGet, "/items/export?category_id=1&from=2024-05-01&to=2024-05-01&publish=true", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var published struct {
		Key   string `json:"key"`
		URL   string `json:"url"`
		Count int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &published))
	assert.Equal(t, 1, published.Count)
	assert.True(t, strings.HasPrefix(published.Key, "exports/2024/05/01/"))

	rc, err := ht.reports.Get(context.Background(), published.Key)
	require.NoError(t, err)
	defer rc.Close()
}

func TestItemHandler_URL(t *testing.T) {
	ht := setupItemHandlerTest(t)
	item := ht.createItem(t, ht.admin(t), "Linked")

	w := ht.do(t, http.MethodGet, fmt.Sprintf("/items/%d/url", item.SourceID), "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp URLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, fmt.Sprintf("/en/news/%d", item.SourceID), resp.URL)
}

func TestItemHandler_DefaultActor(t *testing.T) {
	ht := setupItemHandlerTest(t)
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := items.Actor{User: &items.User{ID: 1, Super: true}}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	})
	router.Mount("/", ht.router)
	ht.router = router

	ht.createItem(t, "", "Without token")
}
