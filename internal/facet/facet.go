// Package facet computes facet counts that do not move when the user changes
// their facet selection.
package facet

import (
	"context"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/engine"
	"github.com/utafrali/CatalogGo/internal/index"
)

// DefaultMaxValues caps the number of values returned per facet field.
const DefaultMaxValues = 100

var facetRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_facet_requests_total",
		Help: "Facet count computations by source (cache, engine, failed)",
	},
	[]string{"source"},
)

// Querier runs an unhydrated search.
type Querier interface {
	RawQuery(ctx context.Context, p index.QueryParams) (*engine.SearchResponse, error)
}

// Cache stores computed facets. Implementations report misses as ok=false.
type Cache interface {
	Get(ctx context.Context, key string) (domain.Facets, bool, error)
	Set(ctx context.Context, key string, facets domain.Facets) error
}

// Engine computes facet counts for a search term with no filter applied.
type Engine struct {
	querier   Querier
	cache     Cache
	fields    []string
	maxValues int
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache enables caching of computed facets.
func WithCache(c Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithMaxValues overrides the per-field value cap.
func WithMaxValues(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxValues = n
		}
	}
}

// WithFields overrides the facet fields.
func WithFields(fields ...string) Option {
	return func(e *Engine) {
		if len(fields) > 0 {
			e.fields = fields
		}
	}
}

// NewEngine creates a facet engine over q.
func NewEngine(q Querier, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		querier:   q,
		fields:    domain.FacetFields,
		maxValues: DefaultMaxValues,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Facets returns the counts for text. The active filter selection is never
// applied, so counts stay put while the user toggles facets. Failures are
// logged and yield empty facets.
func (e *Engine) Facets(ctx context.Context, text string) domain.Facets {
	text = normalizeText(text)
	key := cacheKey(text, e.fields, e.maxValues)

	if e.cache != nil {
		cached, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			e.logger.WarnContext(ctx, "facet cache read failed", slog.String("error", err.Error()))
		}
		if ok {
			facetRequestsTotal.WithLabelValues("cache").Inc()
			return cached
		}
	}

	resp, err := e.querier.RawQuery(ctx, index.QueryParams{
		Text:           text,
		FacetBy:        e.fields,
		MaxFacetValues: e.maxValues,
		Page:           1,
		PerPage:        0,
	})
	if err != nil {
		facetRequestsTotal.WithLabelValues("failed").Inc()
		e.logger.WarnContext(ctx, "facet query failed, returning empty facets",
			slog.String("text", text),
			slog.String("error", err.Error()),
		)
		return empty(e.fields)
	}
	facetRequestsTotal.WithLabelValues("engine").Inc()

	facets := empty(e.fields)
	for field, values := range Normalize(resp.FacetCounts) {
		facets[field] = values
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, facets); err != nil {
			e.logger.WarnContext(ctx, "facet cache write failed", slog.String("error", err.Error()))
		}
	}
	return facets
}

func normalizeText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if engine.IsMatchAll(text) {
		return engine.MatchAll
	}
	return text
}
