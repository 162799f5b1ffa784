package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CatalogGo/internal/browse"
	"github.com/utafrali/CatalogGo/internal/domain"
	enginememory "github.com/utafrali/CatalogGo/internal/engine/memory"
	"github.com/utafrali/CatalogGo/internal/facet"
	"github.com/utafrali/CatalogGo/internal/index"
	"github.com/utafrali/CatalogGo/internal/outbox"
	"github.com/utafrali/CatalogGo/internal/repository/memory"
	"github.com/utafrali/CatalogGo/internal/service"
	"github.com/utafrali/CatalogGo/pkg/health"
	"github.com/utafrali/CatalogGo/pkg/logger"
)

// response mirrors httputil.Response with raw data for per-test decoding.
type response struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	relay   *outbox.Relay
	reindex *ReindexHandler
	engine  *enginememory.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.NewStore(memory.NewDB())
	eng := enginememory.New()
	adapter := index.NewAdapter(eng, store.Graphs, store.Products, logger)
	facets := facet.NewEngine(adapter, logger)
	controller := browse.NewController(adapter, facets, store.Products, store.Graphs, logger)
	svc := service.NewCatalogService(store, logger)

	reindex := NewReindexHandler(t.Context(), adapter, 2, logger)
	router := NewRouter(
		t.Context(),
		RouterConfig{AllowedOrigins: []string{"*"}},
		NewBrowseHandler(controller, svc, logger),
		NewAdminHandler(svc, logger),
		reindex,
		health.NewHandler(),
		logger,
	)

	return &testServer{
		t:       t,
		handler: router,
		relay:   outbox.NewRelay(store.Outbox, outbox.NewInlineDispatcher(adapter, logger), time.Second, 1000, logger),
		reindex: reindex,
		engine:  eng,
	}
}

func (s *testServer) do(method, target string, body any) (*httptest.ResponseRecorder, response) {
	s.t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	var resp response
	if w.Code != http.StatusNoContent && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

// create posts body and returns the id of the created resource.
func (s *testServer) create(path string, body any) string {
	s.t.Helper()
	w, resp := s.do(http.MethodPost, "/api/v1/admin/"+path, body)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal(resp.Data, &created))
	return created.ID
}

// sync relays every pending reindex job into the search engine.
func (s *testServer) sync() {
	s.t.Helper()
	_, err := s.relay.RunOnce(context.Background())
	require.NoError(s.t, err)
}

// seedCatalog creates two manufacturers, two distributors and three products.
func (s *testServer) seedCatalog() map[string]string {
	s.t.Helper()
	ids := map[string]string{
		"acme":   s.create("manufacturers", NameRequest{Name: "Acme"}),
		"globex": s.create("manufacturers", NameRequest{Name: "Globex"}),
		"north":  s.create("distributors", NameRequest{Name: "North"}),
		"south":  s.create("distributors", NameRequest{Name: "South"}),
	}
	ids["anvil"] = s.create("products", CreateProductRequest{ManufacturerID: ids["acme"], Name: "Anvil", EAN: "40063813"})
	ids["rocket"] = s.create("products", CreateProductRequest{ManufacturerID: ids["acme"], Name: "Rocket Skates", EAN: "40063814", Description: "fast"})
	ids["lamp"] = s.create("products", CreateProductRequest{ManufacturerID: ids["globex"], Name: "Lamp", EAN: "40063815"})

	s.create("items", CreateItemRequest{ProductID: ids["anvil"], DistributorID: ids["north"], Price: "10.00", SKU: "AN-N", Available: true})
	s.create("items", CreateItemRequest{ProductID: ids["anvil"], DistributorID: ids["south"], Price: "11.50", SKU: "AN-S"})
	s.create("items", CreateItemRequest{ProductID: ids["rocket"], DistributorID: ids["north"], Price: "99.99", SKU: "RS-N"})
	s.create("items", CreateItemRequest{ProductID: ids["lamp"], DistributorID: ids["south"], Price: "5", SKU: "LP-S"})
	s.sync()
	return ids
}

type browseData struct {
	Products []struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		ItemsCount int    `json:"items_count"`
	} `json:"products"`
	Meta struct {
		Total int `json:"total"`
		Page  int `json:"page"`
	} `json:"meta"`
	Facets           domain.Facets `json:"facets"`
	State            browse.State  `json:"state"`
	HasActiveFilters bool          `json:"has_active_filters"`
	Query            string        `json:"query"`
}

func (s *testServer) browse(query url.Values) browseData {
	s.t.Helper()
	w, resp := s.do(http.MethodGet, "/api/v1/products?"+query.Encode(), nil)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var data browseData
	require.NoError(s.t, json.Unmarshal(resp.Data, &data))
	return data
}

func facetCounts(d browseData, field string) map[string]int {
	return d.Facets.Counts(field)
}

// --- Browse ---

func TestBrowse_AllProductsWithFacets(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog()

	data := s.browse(url.Values{})

	assert.Equal(t, 3, data.Meta.Total)
	assert.Len(t, data.Products, 3)
	assert.False(t, data.HasActiveFilters)
	assert.Equal(t, map[string]int{"Acme": 2, "Globex": 1}, facetCounts(data, "manufacturer_name"))
	assert.Equal(t, map[string]int{"North": 2, "South": 2}, facetCounts(data, "distributor_names"))
}

func TestBrowse_SelectionsKeepFacetsStable(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog()

	data := s.browse(url.Values{"manufacturers": {"Acme"}, "distributors": {"South"}})

	require.Len(t, data.Products, 1)
	assert.Equal(t, "Anvil", data.Products[0].Name)
	assert.Equal(t, 2, data.Products[0].ItemsCount)
	assert.True(t, data.HasActiveFilters)
	assert.Equal(t, map[string]int{"Acme": 2, "Globex": 1}, facetCounts(data, "manufacturer_name"))
}

func TestBrowse_ActionIsAppliedToState(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog()

	data := s.browse(url.Values{
		"manufacturers": {"Acme"},
		"page":          {"3"},
		"action":        {browse.ActionToggleManufacturer},
		"value":         {"Globex"},
	})

	assert.Equal(t, []string{"Acme", "Globex"}, data.State.Manufacturers)
	assert.Equal(t, 1, data.State.Page)
	assert.Equal(t, 3, data.Meta.Total)
	assert.Equal(t, "manufacturers=Acme&manufacturers=Globex", data.Query)

	cleared := s.browse(url.Values{"q": {"anvil"}, "manufacturers": {"Acme"}, "action": {browse.ActionClearAll}})
	assert.Empty(t, cleared.State.Search)
	assert.Empty(t, cleared.State.Manufacturers)
	assert.False(t, cleared.HasActiveFilters)
}

func TestBrowse_TextSearch(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog()

	for _, q := range []string{"rocket", "RS-N", "fast", "40063814"} {
		data := s.browse(url.Values{"q": {q}})
		require.Len(t, data.Products, 1, q)
		assert.Equal(t, "Rocket Skates", data.Products[0].Name, q)
	}
}

func TestBrowse_UnknownAction(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(http.MethodGet, "/api/v1/products?action=explode", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestBrowse_ReflectsAdminMutationsAfterSync(t *testing.T) {
	s := newTestServer(t)
	ids := s.seedCatalog()

	w, _ := s.do(http.MethodPut, "/api/v1/admin/manufacturers/"+ids["globex"], NameRequest{Name: "Globex Corp"})
	require.Equal(t, http.StatusOK, w.Code)

	// The index lags until the outbox is relayed.
	assert.Equal(t, map[string]int{"Acme": 2, "Globex": 1}, facetCounts(s.browse(url.Values{}), "manufacturer_name"))

	s.sync()
	assert.Equal(t, map[string]int{"Acme": 2, "Globex Corp": 1}, facetCounts(s.browse(url.Values{}), "manufacturer_name"))

	w, _ = s.do(http.MethodDelete, "/api/v1/admin/manufacturers/"+ids["acme"], nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	s.sync()

	data := s.browse(url.Values{})
	assert.Equal(t, 1, data.Meta.Total)
	assert.Equal(t, 1, s.engine.Len())
}

// --- Product detail ---

func TestGetProductBySlug(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog()

	w, resp := s.do(http.MethodGet, "/api/v1/products/rocket-skates", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var detail struct {
		Name         string `json:"name"`
		Manufacturer struct {
			Name string `json:"name"`
		} `json:"manufacturer"`
		Items []struct {
			SKU         string `json:"sku"`
			Price       string `json:"price"`
			Distributor struct {
				Name string `json:"name"`
			} `json:"distributor"`
		} `json:"items"`
		ItemsCount int `json:"items_count"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &detail))
	assert.Equal(t, "Rocket Skates", detail.Name)
	assert.Equal(t, "Acme", detail.Manufacturer.Name)
	assert.Equal(t, 1, detail.ItemsCount)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, "RS-N", detail.Items[0].SKU)
	assert.Equal(t, "99.99", detail.Items[0].Price)
	assert.Equal(t, "North", detail.Items[0].Distributor.Name)

	w, resp = s.do(http.MethodGet, "/api/v1/products/no-such-product", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

// --- Admin ---

func TestAdmin_CreateValidation(t *testing.T) {
	s := newTestServer(t)
	ids := s.seedCatalog()

	tests := []struct {
		name      string
		path      string
		body      any
		wantCode  int
		wantError string
		wantField string
	}{
		{
			name:      "manufacturer without name",
			path:      "manufacturers",
			body:      map[string]string{"name": ""},
			wantCode:  http.StatusBadRequest,
			wantError: "VALIDATION_ERROR",
			wantField: "name",
		},
		{
			name:      "duplicate manufacturer",
			path:      "manufacturers",
			body:      NameRequest{Name: "Acme"},
			wantCode:  http.StatusConflict,
			wantError: "ALREADY_EXISTS",
		},
		{
			name:      "product with malformed ean",
			path:      "products",
			body:      CreateProductRequest{ManufacturerID: ids["acme"], Name: "Hammer", EAN: "12ab"},
			wantCode:  http.StatusBadRequest,
			wantError: "VALIDATION_ERROR",
			wantField: "ean",
		},
		{
			name:      "product with unknown manufacturer",
			path:      "products",
			body:      CreateProductRequest{ManufacturerID: "7f1f7b4e-1c2d-4c39-9d59-111111111111", Name: "Hammer", EAN: "40063899"},
			wantCode:  http.StatusUnprocessableEntity,
			wantError: "MISSING_RELATION",
		},
		{
			name:      "item with three decimals",
			path:      "items",
			body:      CreateItemRequest{ProductID: ids["anvil"], DistributorID: ids["north"], Price: "1.005", SKU: "X"},
			wantCode:  http.StatusBadRequest,
			wantError: "VALIDATION_ERROR",
			wantField: "price",
		},
		{
			name:      "item with negative price",
			path:      "items",
			body:      CreateItemRequest{ProductID: ids["anvil"], DistributorID: ids["north"], Price: "-1", SKU: "X"},
			wantCode:  http.StatusBadRequest,
			wantError: "VALIDATION_ERROR",
			wantField: "price",
		},
		{
			name:      "duplicate sku",
			path:      "items",
			body:      CreateItemRequest{ProductID: ids["lamp"], DistributorID: ids["north"], Price: "1", SKU: "AN-N"},
			wantCode:  http.StatusConflict,
			wantError: "ALREADY_EXISTS",
		},
		{
			name:      "unknown field",
			path:      "distributors",
			body:      map[string]string{"name": "East", "color": "red"},
			wantCode:  http.StatusBadRequest,
			wantError: "INVALID_INPUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := s.do(http.MethodPost, "/api/v1/admin/"+tt.path, tt.body)

			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantError, resp.Error.Code)
			if tt.wantField != "" {
				assert.Contains(t, resp.Error.Fields, tt.wantField)
			}
		})
	}
}

func TestAdmin_RequiresJSON(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/manufacturers", strings.NewReader(`name=Acme`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestAdmin_InvalidID(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(http.MethodGet, "/api/v1/admin/products/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}

func TestAdmin_ListAndUpdateItems(t *testing.T) {
	s := newTestServer(t)
	ids := s.seedCatalog()

	w, _ := s.do(http.MethodGet, "/api/v1/admin/items?per_page=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(http.MethodGet, "/api/v1/admin/items?page=9223372036854775807", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/items?product_id="+ids["anvil"], nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Data []struct {
			ID  string `json:"id"`
			SKU string `json:"sku"`
		} `json:"data"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Data, 2)

	price := "12.75"
	w, resp := s.do(http.MethodPut, "/api/v1/admin/items/"+page.Data[0].ID, UpdateItemRequest{Price: &price})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var item struct {
		Price string `json:"price"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &item))
	assert.Equal(t, "12.75", item.Price)

	w, _ = s.do(http.MethodDelete, "/api/v1/admin/items/"+page.Data[0].ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = s.do(http.MethodGet, "/api/v1/admin/items/"+page.Data[0].ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_UpdateProductKeepsSlug(t *testing.T) {
	s := newTestServer(t)
	ids := s.seedCatalog()

	name := "Anvil Deluxe"
	w, resp := s.do(http.MethodPut, "/api/v1/admin/products/"+ids["anvil"], UpdateProductRequest{Name: &name})
	require.Equal(t, http.StatusOK, w.Code)

	var p struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &p))
	assert.Equal(t, "Anvil Deluxe", p.Name)
	assert.Equal(t, "anvil", p.Slug)

	s.sync()
	data := s.browse(url.Values{"q": {"deluxe"}})
	require.Len(t, data.Products, 1)
	assert.Equal(t, ids["anvil"], data.Products[0].ID)
}

// --- Reindex ---

type blockingReindexer struct {
	release chan struct{}
	calls   atomic.Int32
	err     error
}

func (b *blockingReindexer) ReindexAll(context.Context, int) (int, error) {
	b.calls.Add(1)
	<-b.release
	return 3, b.err
}

func TestReindex_RunsInBackgroundOneAtATime(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rx := &blockingReindexer{release: make(chan struct{}), err: errors.New("engine down")}
	h := NewReindexHandler(context.Background(), rx, 100, logger)

	w := httptest.NewRecorder()
	h.Reindex(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/reindex", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = httptest.NewRecorder()
	h.Reindex(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/reindex", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	close(rx.release)
	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("reindex did not finish")
	}
	assert.Equal(t, int32(1), rx.calls.Load())

	w = httptest.NewRecorder()
	h.Reindex(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/reindex", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	<-h.done
}

type ctxReindexer struct {
	started       chan struct{}
	correlationID chan string
}

func (c *ctxReindexer) ReindexAll(ctx context.Context, _ int) (int, error) {
	c.correlationID <- logger.CorrelationIDFromContext(ctx)
	close(c.started)
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestReindex_StopsWithBaseContextNotRequest(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	base, cancel := context.WithCancel(context.Background())
	defer cancel()
	rx := &ctxReindexer{started: make(chan struct{}), correlationID: make(chan string, 1)}
	h := NewReindexHandler(base, rx, 100, log)

	reqCtx, cancelReq := context.WithCancel(logger.WithCorrelationID(context.Background(), "corr-42"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reindex", nil).WithContext(reqCtx)
	w := httptest.NewRecorder()
	h.Reindex(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	<-rx.started
	assert.Equal(t, "corr-42", <-rx.correlationID)

	// The request ending does not stop the run.
	cancelReq()
	select {
	case <-h.done:
		t.Fatal("reindex stopped with the request")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("reindex ignored base context cancellation")
	}
}

func TestReindex_RebuildsIndexThroughRouter(t *testing.T) {
	s := newTestServer(t)
	ids := s.seedCatalog()

	for _, name := range []string{"anvil", "rocket", "lamp"} {
		require.NoError(t, s.engine.Delete(context.Background(), ids[name]))
	}
	require.Equal(t, 0, s.engine.Len())

	w, _ := s.do(http.MethodPost, "/api/v1/admin/reindex", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	select {
	case <-s.reindex.done:
	case <-time.After(time.Second):
		t.Fatal("reindex did not finish")
	}
	assert.Equal(t, 3, s.engine.Len())
}

// --- Health ---

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
