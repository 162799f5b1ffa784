package facet

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/engine"
	"github.com/utafrali/CatalogGo/internal/index"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) RawQuery(ctx context.Context, p index.QueryParams) (*engine.SearchResponse, error) {
	args := m.Called(ctx, p)
	resp, _ := args.Get(0).(*engine.SearchResponse)
	return resp, args.Error(1)
}

func facetResponse() *engine.SearchResponse {
	return &engine.SearchResponse{
		Found: 10,
		FacetCounts: []engine.RawFacetCount{
			{FieldName: domain.FieldManufacturerName, Counts: []engine.RawFacetValue{val("Acme", "5"), val("Bolt", "3")}},
			{FieldName: domain.FieldDistributorNames, Counts: []engine.RawFacetValue{val("Global", "6")}},
		},
	}
}

func expectedParams(text string) index.QueryParams {
	return index.QueryParams{
		Text:           text,
		FacetBy:        domain.FacetFields,
		MaxFacetValues: DefaultMaxValues,
		Page:           1,
		PerPage:        0,
	}
}

func TestFacets_QueriesWithoutFilter(t *testing.T) {
	q := new(mockQuerier)
	q.On("RawQuery", mock.Anything, expectedParams("drill")).Return(facetResponse(), nil).Once()

	facets := NewEngine(q, newTestLogger()).Facets(context.Background(), "  drill ")

	assert.Equal(t, map[string]int{"Acme": 5, "Bolt": 3}, facets.Counts(domain.FieldManufacturerName))
	assert.Equal(t, map[string]int{"Global": 6}, facets.Counts(domain.FieldDistributorNames))
	q.AssertExpectations(t)
}

func TestFacets_BlankTextIsMatchAll(t *testing.T) {
	q := new(mockQuerier)
	q.On("RawQuery", mock.Anything, expectedParams("*")).Return(facetResponse(), nil).Once()

	NewEngine(q, newTestLogger()).Facets(context.Background(), "")
	q.AssertExpectations(t)
}

func TestFacets_FailureYieldsEmptyFacets(t *testing.T) {
	q := new(mockQuerier)
	q.On("RawQuery", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()

	facets := NewEngine(q, newTestLogger()).Facets(context.Background(), "drill")

	require.Len(t, facets, 2)
	assert.Empty(t, facets[domain.FieldManufacturerName])
	assert.Empty(t, facets[domain.FieldDistributorNames])
}

func TestFacets_MissingFieldIsEmptyList(t *testing.T) {
	q := new(mockQuerier)
	q.On("RawQuery", mock.Anything, mock.Anything).Return(&engine.SearchResponse{
		FacetCounts: []engine.RawFacetCount{{FieldName: domain.FieldManufacturerName, Counts: []engine.RawFacetValue{val("Acme", "1")}}},
	}, nil)

	facets := NewEngine(q, newTestLogger()).Facets(context.Background(), "drill")
	assert.NotNil(t, facets[domain.FieldDistributorNames])
	assert.Empty(t, facets[domain.FieldDistributorNames])
}

func setupCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, time.Minute), mr
}

func TestFacets_CacheHitSkipsQuery(t *testing.T) {
	cache, mr := setupCache(t)
	q := new(mockQuerier)
	q.On("RawQuery", mock.Anything, mock.Anything).Return(facetResponse(), nil).Once()

	e := NewEngine(q, newTestLogger(), WithCache(cache))
	first := e.Facets(context.Background(), "Drill")
	second := e.Facets(context.Background(), "drill")

	assert.Equal(t, first, second)
	assert.Len(t, mr.Keys(), 1)
	ttl := mr.TTL(mr.Keys()[0])
	assert.Equal(t, time.Minute, ttl)
	q.AssertExpectations(t)
}

func TestFacets_FailedComputationIsNotCached(t *testing.T) {
	cache, mr := setupCache(t)
	q := new(mockQuerier)
	q.On("RawQuery", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()
	q.On("RawQuery", mock.Anything, mock.Anything).Return(facetResponse(), nil).Once()

	e := NewEngine(q, newTestLogger(), WithCache(cache))
	assert.Empty(t, e.Facets(context.Background(), "drill")[domain.FieldManufacturerName])
	assert.Empty(t, mr.Keys())

	assert.Len(t, e.Facets(context.Background(), "drill")[domain.FieldManufacturerName], 2)
	q.AssertExpectations(t)
}

func TestFacets_CacheErrorIsAMiss(t *testing.T) {
	cache, mr := setupCache(t)
	mr.Close()

	q := new(mockQuerier)
	q.On("RawQuery", mock.Anything, mock.Anything).Return(facetResponse(), nil).Once()

	facets := NewEngine(q, newTestLogger(), WithCache(cache)).Facets(context.Background(), "drill")
	assert.Equal(t, 5, facets.Counts(domain.FieldManufacturerName)["Acme"])
	q.AssertExpectations(t)
}

func TestFacets_StableAcrossSelections(t *testing.T) {
	// Facets take only the text, so two browse states that differ only in
	// their selections see identical counts.
	q := new(mockQuerier)
	q.On("RawQuery", mock.Anything, expectedParams("drill")).Return(facetResponse(), nil).Twice()

	e := NewEngine(q, newTestLogger())
	assert.Equal(t, e.Facets(context.Background(), "drill"), e.Facets(context.Background(), "drill"))
	q.AssertExpectations(t)
}

func TestCacheKey_NormalizesCase(t *testing.T) {
	fields := domain.FacetFields
	assert.Equal(t, cacheKey("Drill", fields, 100), cacheKey("drill", fields, 100))
	assert.NotEqual(t, cacheKey("drill", fields, 100), cacheKey("drill", fields, 10))
}
