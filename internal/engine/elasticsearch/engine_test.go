package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/engine"
	"github.com/utafrali/CatalogGo/internal/filter"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
	"github.com/utafrali/CatalogGo/pkg/pagination"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeTransport answers every request with the response produced by respond
// and records what was sent.
type fakeTransport struct {
	mu       sync.Mutex
	requests []recordedRequest
	respond  func(r *http.Request) (int, string)
}

func (f *fakeTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	var body string
	if r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: body})
	f.mu.Unlock()

	status, payload := f.respond(r)
	header := http.Header{}
	header.Set("X-Elastic-Product", "Elasticsearch")
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(payload)),
		Request:    r,
	}, nil
}

func (f *fakeTransport) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, respond func(r *http.Request) (int, string)) (*Engine, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{respond: func(r *http.Request) (int, string) {
		if r.Method == http.MethodHead {
			return http.StatusOK, ""
		}
		return respond(r)
	}}
	e, err := NewWithTransport("http://es.local:9200", "", ft, testLogger())
	require.NoError(t, err)
	return e, ft
}

func TestNew_CreatesMissingIndex(t *testing.T) {
	ft := &fakeTransport{respond: func(r *http.Request) (int, string) {
		if r.Method == http.MethodHead {
			return http.StatusNotFound, ""
		}
		return http.StatusOK, `{"acknowledged":true}`
	}}
	_, err := NewWithTransport("http://es.local:9200", "", ft, testLogger())
	require.NoError(t, err)

	created := ft.last()
	assert.Equal(t, http.MethodPut, created.Method)
	assert.Equal(t, "/"+DefaultIndexName, created.Path)
	assert.Contains(t, created.Body, `"distributor_names": { "type": "keyword" }`)
}

func TestBuildSearchQuery_TranslatesFilterGroups(t *testing.T) {
	expr := filter.And(
		filter.Equals(domain.FieldManufacturerName, "Acme", "Bolt"),
		filter.Contains(domain.FieldDistributorNames, "Global"),
	)
	q := buildSearchQuery(&engine.SearchRequest{
		Text:           "drill",
		FacetBy:        domain.FacetFields,
		MaxFacetValues: 100,
		Page:           2,
		PerPage:        12,
	}, expr)

	data, err := json.Marshal(q)
	require.NoError(t, err)

	var decoded struct {
		From  int `json:"from"`
		Size  int `json:"size"`
		Query struct {
			Bool struct {
				Must   []map[string]any `json:"must"`
				Filter []struct {
					Bool struct {
						Should             []map[string]map[string]any `json:"should"`
						MinimumShouldMatch int                         `json:"minimum_should_match"`
					} `json:"bool"`
				} `json:"filter"`
			} `json:"bool"`
		} `json:"query"`
		Aggs map[string]struct {
			Terms struct {
				Field string `json:"field"`
				Size  int    `json:"size"`
			} `json:"terms"`
		} `json:"aggs"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, 12, decoded.From)
	assert.Equal(t, 12, decoded.Size)
	require.Len(t, decoded.Query.Bool.Must, 1)
	assert.Contains(t, decoded.Query.Bool.Must[0], "multi_match")

	require.Len(t, decoded.Query.Bool.Filter, 2)
	first := decoded.Query.Bool.Filter[0].Bool
	assert.Equal(t, 1, first.MinimumShouldMatch)
	require.Len(t, first.Should, 2)
	assert.Equal(t, "Acme", first.Should[0]["term"][domain.FieldManufacturerName])
	assert.Equal(t, "Bolt", first.Should[1]["term"][domain.FieldManufacturerName])

	membership := decoded.Query.Bool.Filter[1].Bool.Should[0]["term"][domain.FieldDistributorNames].(map[string]any)
	assert.Equal(t, "Global", membership["value"])
	assert.Equal(t, true, membership["case_insensitive"])

	assert.Equal(t, domain.FieldManufacturerName, decoded.Aggs[domain.FieldManufacturerName].Terms.Field)
	assert.Equal(t, 100, decoded.Aggs[domain.FieldDistributorNames].Terms.Size)
}

func TestBuildSearchQuery_MatchAllWithoutFilterOrFacets(t *testing.T) {
	q := buildSearchQuery(&engine.SearchRequest{Text: "*", PerPage: 0}, nil)

	boolQuery := q["query"].(map[string]any)["bool"].(map[string]any)
	assert.Contains(t, boolQuery["must"].([]any)[0], "match_all")
	assert.NotContains(t, boolQuery, "filter")
	assert.NotContains(t, q, "aggs")
	assert.Equal(t, 0, q["size"])
	assert.Equal(t, 0, q["from"])
}

func TestBuildSearchQuery_ClampsPage(t *testing.T) {
	q := buildSearchQuery(&engine.SearchRequest{Text: "*", Page: math.MaxInt64, PerPage: 12}, nil)
	assert.Equal(t, (pagination.MaxPage-1)*12, q["from"])
	assert.Equal(t, 12, q["size"])
}

func TestSearch_DecodesHitsAndAggregations(t *testing.T) {
	e, ft := newTestEngine(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{
			"hits": {"total": {"value": 5}, "hits": [{"_source": {"id": "p1", "name": "Drill", "distributor_names": ["Global"]}}]},
			"aggregations": {
				"manufacturer_name": {"buckets": [{"key": "Acme", "doc_count": 5}, {"key": "Bolt", "doc_count": 3}]},
				"distributor_names": {"buckets": []}
			}
		}`
	})

	resp, err := e.Search(context.Background(), &engine.SearchRequest{
		Text:     "drill",
		FilterBy: "manufacturer_name:=`Acme`",
		FacetBy:  domain.FacetFields,
		Page:     1,
		PerPage:  12,
	})
	require.NoError(t, err)
	assert.Equal(t, "/"+DefaultIndexName+"/_search", ft.last().Path)

	assert.Equal(t, 5, resp.Found)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, []string{"Global"}, resp.Hits[0].DistributorNames)
	require.Len(t, resp.FacetCounts, 2)
	assert.Equal(t, "Acme", *resp.FacetCounts[0].Counts[0].Value)
	assert.JSONEq(t, "5", string(resp.FacetCounts[0].Counts[0].Count))
	assert.Empty(t, resp.FacetCounts[1].Counts)
}

func TestSearch_InvalidFilter(t *testing.T) {
	e, _ := newTestEngine(t, func(r *http.Request) (int, string) { return http.StatusOK, `{}` })

	_, err := e.Search(context.Background(), &engine.SearchRequest{FilterBy: "(manufacturer_name:=`A`"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSearch_ServerErrorIsUnavailable(t *testing.T) {
	e, _ := newTestEngine(t, func(r *http.Request) (int, string) {
		return http.StatusInternalServerError, `{"error":{"type":"search_phase_execution_exception","reason":"all shards failed"},"status":500}`
	})

	_, err := e.Search(context.Background(), &engine.SearchRequest{Text: "drill", PerPage: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}

func TestDelete_IgnoresNotFound(t *testing.T) {
	e, ft := newTestEngine(t, func(r *http.Request) (int, string) {
		return http.StatusNotFound, `{"result":"not_found"}`
	})

	require.NoError(t, e.Delete(context.Background(), "p1"))
	assert.Equal(t, http.MethodDelete, ft.last().Method)
}

func TestBulkUpsert_ReportsItemErrors(t *testing.T) {
	e, ft := newTestEngine(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{"errors": true, "items": [
			{"index": {"_id": "p1", "status": 201}},
			{"index": {"_id": "p2", "status": 400, "error": {"type": "mapper_parsing_exception", "reason": "failed to parse field [created_at]"}}}
		]}`
	})

	err := e.BulkUpsert(context.Background(), []domain.SearchDocument{{ID: "p1"}, {ID: "p2"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id=p2")

	lines := strings.Split(strings.TrimSpace(ft.last().Body), "\n")
	assert.Len(t, lines, 4)
}

func TestUpsert_SendsDocumentID(t *testing.T) {
	e, ft := newTestEngine(t, func(r *http.Request) (int, string) {
		return http.StatusCreated, `{"result":"created"}`
	})

	require.NoError(t, e.Upsert(context.Background(), &domain.SearchDocument{ID: "p1", Name: "Drill"}))
	assert.Equal(t, "/"+DefaultIndexName+"/_doc/p1", ft.last().Path)
}
