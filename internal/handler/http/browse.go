package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/CatalogGo/internal/browse"
	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/pkg/httputil"
)

// Browser answers browse requests.
type Browser interface {
	Browse(ctx context.Context, s browse.State) (*browse.Result, error)
}

// DetailLoader loads a product with its relations by slug.
type DetailLoader interface {
	GetProductDetail(ctx context.Context, slug string) (*domain.ProductDetail, error)
}

// BrowseHandler serves the public catalog endpoints.
type BrowseHandler struct {
	browser Browser
	details DetailLoader
	logger  *slog.Logger
}

// NewBrowseHandler creates a new browse HTTP handler.
func NewBrowseHandler(browser Browser, details DetailLoader, logger *slog.Logger) *BrowseHandler {
	return &BrowseHandler{
		browser: browser,
		details: details,
		logger:  logger,
	}
}

// BrowseResponse is a browse result plus the query string that reproduces
// its state, for building the next request.
type BrowseResponse struct {
	*browse.Result
	Query string `json:"query"`
}

// Browse handles GET /api/v1/products
//
// The state is read from q, manufacturers, distributors and page. An optional
// action (with value) is applied to that state before querying.
func (h *BrowseHandler) Browse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state, err := browse.FromQuery(q).Apply(q.Get("action"), q.Get("value"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.browser.Browse(r.Context(), state)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, BrowseResponse{
		Result: result,
		Query:  result.State.Query().Encode(),
	})
}

// GetProduct handles GET /api/v1/products/{slug}
func (h *BrowseHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeInvalidParameter(w, "product slug is required")
		return
	}

	detail, err := h.details.GetProductDetail(r.Context(), slug)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, detail)
}
