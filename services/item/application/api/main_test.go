package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/inventorystorage/pkg/app"
	"github.com/ghuser/inventorystorage/pkg/config"
	"github.com/ghuser/inventorystorage/pkg/logger"
	"github.com/ghuser/inventorystorage/pkg/tenant"
	"github.com/ghuser/inventorystorage/services/item/application/handlers"
)

const tenantHeader = "X-Okapi-Tenant"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	a := &app.Application{
		Config: &config.Config{
			StoreBackend: config.BackendMemory,
			RemapBackend: config.BackendMemory,
			Environment:  config.EnvTesting,
		},
		Logger:  logger.Discard(),
		Tenants: tenant.NewResolver(tenant.DefaultHeader, tenant.DefaultShared),
	}
	r := chi.NewRouter()
	require.NoError(t, ItemRoutes(r, a))
	return r
}

func do(t *testing.T, h http.Handler, method, path, tenantID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if tenantID != "" {
		req.Header.Set(tenantHeader, tenantID)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func TestCreateWithID_ThenGet(t *testing.T) {
	h := newTestRouter(t)
	id := uuid.New()
	instanceID := uuid.New()
	body := fmt.Sprintf(`{"id":%q,"instanceId":%q,"title":"Nod","barcode":"565578437802"}`, id, instanceID)

	w := do(t, h, http.MethodPost, "/items", "diku", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/items/"+id.String(), w.Header().Get("Location"))
	created := decode[handlers.ItemResponse](t, w)
	assert.Equal(t, id, created.ID)

	w = do(t, h, http.MethodGet, "/items/"+id.String(), "diku", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[handlers.ItemResponse](t, w)
	assert.Equal(t, created, got)
	assert.Equal(t, instanceID, got.InstanceID)
	assert.Equal(t, "Nod", got.Title)
	assert.Equal(t, "565578437802", got.Barcode)
}

func TestCreateWithoutID_ThenGet(t *testing.T) {
	h := newTestRouter(t)
	body := fmt.Sprintf(`{"instanceId":%q,"title":"Uprooted"}`, uuid.New())

	w := do(t, h, http.MethodPost, "/items", "diku", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[handlers.ItemResponse](t, w)
	assert.NotEqual(t, uuid.Nil, created.ID)

	w = do(t, h, http.MethodGet, "/items/"+created.ID.String(), "diku", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[handlers.ItemResponse](t, w).ID)
}

func TestCollection_FiveItems(t *testing.T) {
	h := newTestRouter(t)
	var ids []uuid.UUID
	for i := range 5 {
		body := fmt.Sprintf(`{"instanceId":%q,"title":"Item %d"}`, uuid.New(), i)
		w := do(t, h, http.MethodPost, "/items", "diku", body)
		require.Equal(t, http.StatusCreated, w.Code)
		ids = append(ids, decode[handlers.ItemResponse](t, w).ID)
	}

	w := do(t, h, http.MethodGet, "/items", "diku", "")
	require.Equal(t, http.StatusOK, w.Code)
	coll := decode[handlers.ItemCollection](t, w)
	assert.Equal(t, 5, coll.TotalRecords)
	require.Len(t, coll.Items, 5)

	for _, id := range ids {
		w := do(t, h, http.MethodGet, "/items/"+id.String(), "diku", "")
		assert.Equal(t, http.StatusOK, w.Code, "item %s must be resolvable", id)
	}
}

func TestDeleteAll_ThenEmptyCollection(t *testing.T) {
	h := newTestRouter(t)
	for range 3 {
		w := do(t, h, http.MethodPost, "/items", "diku", fmt.Sprintf(`{"instanceId":%q,"title":"Nod"}`, uuid.New()))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := do(t, h, http.MethodDelete, "/items", "diku", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/items", "diku", "")
	require.Equal(t, http.StatusOK, w.Code)
	coll := decode[handlers.ItemCollection](t, w)
	assert.Equal(t, 0, coll.TotalRecords)
	assert.NotNil(t, coll.Items)
	assert.Contains(t, w.Body.String(), `"items":[]`)
}

func TestMissingTenant_EveryOperation(t *testing.T) {
	h := newTestRouter(t)
	id := uuid.New().String()
	body := fmt.Sprintf(`{"instanceId":%q,"title":"Nod"}`, uuid.New())

	requests := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/items", body},
		{http.MethodGet, "/items/" + id, ""},
		{http.MethodGet, "/items", ""},
		{http.MethodDelete, "/items", ""},
		{http.MethodPut, "/items/" + id, body},
		{http.MethodDelete, "/items/" + id, ""},
	}
	tenants := map[string]string{
		"absent": "",
		"blank":  "   ",
		"shared": "folio_shared",
	}

	for name, tn := range tenants {
		for _, rq := range requests {
			t.Run(name+" "+rq.method+" "+rq.path, func(t *testing.T) {
				w := do(t, h, rq.method, rq.path, tn, rq.body)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Equal(t, "Tenant Must Be Provided", w.Body.String())
			})
		}
	}
}

func TestTenantHeaderCaseInsensitive(t *testing.T) {
	h := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/items", http.NoBody)
	req.Header.Set("x-okapi-tenant", "diku")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGet_NotFound(t *testing.T) {
	h := newTestRouter(t)
	w := do(t, h, http.MethodGet, "/items/"+uuid.NewString(), "diku", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestGet_MalformedID(t *testing.T) {
	h := newTestRouter(t)
	w := do(t, h, http.MethodGet, "/items/not-a-uuid", "diku", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPut_NilPathIDRejected(t *testing.T) {
	h := newTestRouter(t)
	body := fmt.Sprintf(`{"instanceId":%q,"title":"Nod"}`, uuid.New())
	w := do(t, h, http.MethodPut, "/items/"+uuid.Nil.String(), "diku", body)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = do(t, h, http.MethodGet, "/items", "diku", "")
	assert.Zero(t, decode[handlers.ItemCollection](t, w).TotalRecords)
}

func TestUpperCaseIDs(t *testing.T) {
	h := newTestRouter(t)
	id := uuid.New()
	upper := strings.ToUpper(id.String())
	body := fmt.Sprintf(`{"id":%q,"instanceId":%q,"title":"Nod"}`, upper, strings.ToUpper(uuid.NewString()))

	w := do(t, h, http.MethodPost, "/items", "diku", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, id, decode[handlers.ItemResponse](t, w).ID)

	w = do(t, h, http.MethodGet, "/items/"+upper, "diku", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode[handlers.ItemResponse](t, w).ID)

	w = do(t, h, http.MethodGet, "/items/"+id.String(), "diku", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTenantWithKeySeparatorRejected(t *testing.T) {
	h := newTestRouter(t)
	w := do(t, h, http.MethodDelete, "/items", "diku:east", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, tenant.InvalidTenantMessage, w.Body.String())
}

func TestPost_Validation(t *testing.T) {
	h := newTestRouter(t)
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"title":`},
		{"missing instanceId", `{"title":"Nod"}`},
		{"bad id", fmt.Sprintf(`{"id":"x","instanceId":%q,"title":"Nod"}`, uuid.New())},
		{"empty title", fmt.Sprintf(`{"instanceId":%q,"title":""}`, uuid.New())},
		{"blank title", fmt.Sprintf(`{"instanceId":%q,"title":"   "}`, uuid.New())},
		{"trailing document", fmt.Sprintf(`{"instanceId":%q,"title":"Nod"}{}`, uuid.New())},
		{"control character in title", fmt.Sprintf(`{"instanceId":%q,"title":"No\u0000d"}`, uuid.New())},
		{"nil id", fmt.Sprintf(`{"id":%q,"instanceId":%q,"title":"Nod"}`, uuid.Nil, uuid.New())},
		{"nil instanceId", fmt.Sprintf(`{"instanceId":%q,"title":"Nod"}`, uuid.Nil)},
		{"unhyphenated id", fmt.Sprintf(`{"id":%q,"instanceId":%q,"title":"Nod"}`, strings.ReplaceAll(uuid.NewString(), "-", ""), uuid.New())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/items", "diku", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestPost_Duplicate(t *testing.T) {
	h := newTestRouter(t)
	body := fmt.Sprintf(`{"id":%q,"instanceId":%q,"title":"Nod"}`, uuid.New(), uuid.New())
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/items", "diku", body).Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/items", "diku", body).Code)
}

func TestSameIDTwoTenants(t *testing.T) {
	h := newTestRouter(t)
	id := uuid.New()
	for _, tn := range []string{"tenant_a", "tenant_b"} {
		body := fmt.Sprintf(`{"id":%q,"instanceId":%q,"title":%q}`, id, uuid.New(), tn)
		w := do(t, h, http.MethodPost, "/items", tn, body)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, id, decode[handlers.ItemResponse](t, w).ID)
	}

	for _, tn := range []string{"tenant_a", "tenant_b"} {
		w := do(t, h, http.MethodGet, "/items/"+id.String(), tn, "")
		require.Equal(t, http.StatusOK, w.Code)
		got := decode[handlers.ItemResponse](t, w)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, tn, got.Title)

		w = do(t, h, http.MethodGet, "/items", tn, "")
		coll := decode[handlers.ItemCollection](t, w)
		require.Equal(t, 1, coll.TotalRecords)
		assert.Equal(t, id, coll.Items[0].ID)
	}
}

func TestPut_CreatesThenReplaces(t *testing.T) {
	h := newTestRouter(t)
	id := uuid.New()
	instanceID := uuid.New()

	body := fmt.Sprintf(`{"instanceId":%q,"title":"Nod","status":{"name":"Available"}}`, instanceID)
	w := do(t, h, http.MethodPut, "/items/"+id.String(), "diku", body)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = do(t, h, http.MethodGet, "/items/"+id.String(), "diku", "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[handlers.ItemResponse](t, w)
	require.NotNil(t, got.Status)
	assert.Equal(t, "Available", got.Status.Name)

	body = fmt.Sprintf(`{"id":%q,"instanceId":%q,"title":"Uprooted","location":{"name":"Main Library"}}`, id, instanceID)
	w = do(t, h, http.MethodPut, "/items/"+id.String(), "diku", body)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/items/"+id.String(), "diku", "")
	got = decode[handlers.ItemResponse](t, w)
	assert.Equal(t, "Uprooted", got.Title)
	assert.Nil(t, got.Status, "replace drops fields absent from the body")
	require.NotNil(t, got.Location)
	assert.Equal(t, "Main Library", got.Location.Name)

	w = do(t, h, http.MethodGet, "/items", "diku", "")
	assert.Equal(t, 1, decode[handlers.ItemCollection](t, w).TotalRecords)
}

func TestPut_IDMismatch(t *testing.T) {
	h := newTestRouter(t)
	body := fmt.Sprintf(`{"id":%q,"instanceId":%q,"title":"Nod"}`, uuid.New(), uuid.New())
	w := do(t, h, http.MethodPut, "/items/"+uuid.NewString(), "diku", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteByID(t *testing.T) {
	h := newTestRouter(t)
	id := uuid.New()
	body := fmt.Sprintf(`{"id":%q,"instanceId":%q,"title":"Nod"}`, id, uuid.New())
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/items", "diku", body).Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/items/"+id.String(), "diku", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/items/"+id.String(), "diku", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/items/"+id.String(), "diku", "").Code)
}

func TestItemRoutes_UnknownBackend(t *testing.T) {
	a := &app.Application{
		Config:  &config.Config{StoreBackend: "cassandra", RemapBackend: config.BackendMemory},
		Logger:  logger.Discard(),
		Tenants: tenant.NewResolver("", ""),
	}
	assert.Error(t, ItemRoutes(chi.NewRouter(), a))
}

func TestItemRoutes_PostgresWithoutDatabase(t *testing.T) {
	a := &app.Application{
		Config:  &config.Config{StoreBackend: config.BackendPostgres, RemapBackend: config.BackendMemory},
		Logger:  logger.Discard(),
		Tenants: tenant.NewResolver("", ""),
	}
	assert.Error(t, ItemRoutes(chi.NewRouter(), a))
}
