// Package browse answers catalog browse requests: free text, manufacturer and
// distributor selections, and facet counts.
package browse

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/facet"
	"github.com/utafrali/CatalogGo/internal/index"
	"github.com/utafrali/CatalogGo/internal/repository"
	"github.com/utafrali/CatalogGo/pkg/pagination"
)

// DefaultPerPage is the fixed browse page size.
const DefaultPerPage = 12

// Mode selects how Browse answers.
type Mode string

const (
	// ModeFaceted searches the index and computes facets.
	ModeFaceted Mode = "faceted"
	// ModeLegacy searches the store by name and description, newest first,
	// with no facets and no selections.
	ModeLegacy Mode = "legacy"
)

// Searcher runs a hydrated index query.
type Searcher interface {
	Query(ctx context.Context, p index.QueryParams) (*index.QueryResult, error)
}

// FacetSource computes selection-independent facet counts.
type FacetSource interface {
	Facets(ctx context.Context, text string) domain.Facets
}

// LegacySearcher is the plain store search.
type LegacySearcher interface {
	Search(ctx context.Context, q repository.LegacyQuery) ([]domain.Product, int, error)
}

// Result is one page of browse results.
type Result struct {
	Products         []domain.ProductDetail `json:"products"`
	Meta             pagination.Meta        `json:"meta"`
	Facets           domain.Facets          `json:"facets"`
	State            State                  `json:"state"`
	HasActiveFilters bool                   `json:"has_active_filters"`
	Mode             Mode                   `json:"mode"`
}

// Controller orchestrates the results and facet queries of a browse request.
// It holds no per-session state.
type Controller struct {
	index     Searcher
	facets    FacetSource
	products  LegacySearcher
	graphs    repository.GraphLoader
	mode      Mode
	perPage   int
	maxFacets int
	logger    *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithMode sets the browse mode. Unknown modes fall back to faceted.
func WithMode(m Mode) Option {
	return func(c *Controller) {
		if m == ModeLegacy {
			c.mode = ModeLegacy
		}
	}
}

// WithPerPage overrides the page size.
func WithPerPage(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.perPage = n
		}
	}
}

// WithMaxFacetValues caps facet values requested on the results query.
func WithMaxFacetValues(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxFacets = n
		}
	}
}

// NewController creates a browse controller. products and graphs serve the
// legacy mode.
func NewController(idx Searcher, facets FacetSource, products LegacySearcher, graphs repository.GraphLoader, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		index:     idx,
		facets:    facets,
		products:  products,
		graphs:    graphs,
		mode:      ModeFaceted,
		perPage:   DefaultPerPage,
		maxFacets: facet.DefaultMaxValues,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns the configured browse mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Browse runs the results query and the facet query concurrently. A failed
// results query fails the call; facets degrade to empty on their own.
func (c *Controller) Browse(ctx context.Context, s State) (*Result, error) {
	s = NewState(s.Search, s.Manufacturers, s.Distributors, s.Page)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if c.mode == ModeLegacy {
		return c.browseLegacy(ctx, s)
	}

	expr := s.Filter()

	var (
		res    *index.QueryResult
		facets domain.Facets
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := c.index.Query(gctx, index.QueryParams{
			Text:           s.Search,
			FilterBy:       expr.String(),
			FacetBy:        domain.FacetFields,
			MaxFacetValues: c.maxFacets,
			PerPage:        c.perPage,
			Page:           s.Page,
		})
		res = r
		return err
	})
	g.Go(func() error {
		facets = c.facets.Facets(gctx, s.Search)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("browse products: %w", err)
	}

	c.logger.DebugContext(ctx, "browse executed",
		slog.String("search", s.Search),
		slog.String("filter_by", expr.String()),
		slog.Int("page", s.Page),
		slog.Int("total", res.Total),
	)

	return &Result{
		Products:         res.Hits,
		Meta:             pagination.NewMeta(res.Total, s.Page, c.perPage),
		Facets:           facets,
		State:            s,
		HasActiveFilters: s.HasActiveFilters(),
		Mode:             ModeFaceted,
	}, nil
}

func (c *Controller) browseLegacy(ctx context.Context, s State) (*Result, error) {
	products, total, err := c.products.Search(ctx, repository.LegacyQuery{
		Text:    s.Search,
		Page:    s.Page,
		PerPage: c.perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("browse products: %w", err)
	}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	graphs, err := c.graphs.LoadGraphs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[string]domain.ProductDetail, len(graphs))
	for _, g := range graphs {
		byID[g.ID] = g
	}

	details := make([]domain.ProductDetail, 0, len(ids))
	for _, id := range ids {
		if g, ok := byID[id]; ok {
			details = append(details, g)
		}
	}

	return &Result{
		Products:         details,
		Meta:             pagination.NewMeta(total, s.Page, c.perPage),
		Facets:           domain.Facets{},
		State:            s,
		HasActiveFilters: s.HasActiveFilters(),
		Mode:             ModeLegacy,
	}, nil
}
