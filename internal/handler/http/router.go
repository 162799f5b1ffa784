package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/utafrali/CatalogGo/pkg/health"
	"github.com/utafrali/CatalogGo/pkg/middleware"
)

const serviceName = "catalog"

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all catalog routes registered. ctx
// bounds background work owned by the middleware.
func NewRouter(
	ctx context.Context,
	cfg RouterConfig,
	browseHandler *BrowseHandler,
	adminHandler *AdminHandler,
	reindexHandler *ReindexHandler,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", middleware.MetricsHandler())

	// Public catalog endpoints
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(middleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, logger))

		r.Get("/", browseHandler.Browse)
		r.Get("/{slug}", browseHandler.GetProduct)
	})

	// Admin endpoints
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Post("/reindex", reindexHandler.Reindex)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Route("/manufacturers", func(r chi.Router) {
				r.Get("/", adminHandler.ListManufacturers)
				r.Post("/", adminHandler.CreateManufacturer)
				r.Get("/{id}", adminHandler.GetManufacturer)
				r.Put("/{id}", adminHandler.UpdateManufacturer)
				r.Delete("/{id}", adminHandler.DeleteManufacturer)
			})
			r.Route("/distributors", func(r chi.Router) {
				r.Get("/", adminHandler.ListDistributors)
				r.Post("/", adminHandler.CreateDistributor)
				r.Get("/{id}", adminHandler.GetDistributor)
				r.Put("/{id}", adminHandler.UpdateDistributor)
				r.Delete("/{id}", adminHandler.DeleteDistributor)
			})
			r.Route("/products", func(r chi.Router) {
				r.Get("/", adminHandler.ListProducts)
				r.Post("/", adminHandler.CreateProduct)
				r.Get("/{id}", adminHandler.GetProduct)
				r.Put("/{id}", adminHandler.UpdateProduct)
				r.Delete("/{id}", adminHandler.DeleteProduct)
			})
			r.Route("/items", func(r chi.Router) {
				r.Get("/", adminHandler.ListItems)
				r.Post("/", adminHandler.CreateItem)
				r.Get("/{id}", adminHandler.GetItem)
				r.Put("/{id}", adminHandler.UpdateItem)
				r.Delete("/{id}", adminHandler.DeleteItem)
			})
		})
	})

	return r
}
