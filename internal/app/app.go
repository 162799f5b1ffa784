package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/CatalogGo/internal/browse"
	"github.com/utafrali/CatalogGo/internal/config"
	"github.com/utafrali/CatalogGo/internal/engine"
	esengine "github.com/utafrali/CatalogGo/internal/engine/elasticsearch"
	"github.com/utafrali/CatalogGo/internal/engine/memory"
	"github.com/utafrali/CatalogGo/internal/engine/typesense"
	"github.com/utafrali/CatalogGo/internal/event"
	"github.com/utafrali/CatalogGo/internal/facet"
	handler "github.com/utafrali/CatalogGo/internal/handler/http"
	"github.com/utafrali/CatalogGo/internal/index"
	"github.com/utafrali/CatalogGo/internal/outbox"
	"github.com/utafrali/CatalogGo/internal/service"
	"github.com/utafrali/CatalogGo/pkg/database"
	"github.com/utafrali/CatalogGo/pkg/health"
	pkgkafka "github.com/utafrali/CatalogGo/pkg/kafka"
	"github.com/utafrali/CatalogGo/pkg/tracing"
)

const (
	serviceName   = "catalog-service"
	consumerGroup = "catalog-indexer"
)

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumer       *pkgkafka.Consumer
	relay          *outbox.Relay
	httpServer     *http.Server
	shutdownTracer func(context.Context) error

	// cancelBackground stops the rate limiter sweeper started with the router.
	cancelBackground context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		_ = a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	traceCfg := tracing.DefaultConfig(serviceName)
	traceCfg.Environment = cfg.Environment
	traceCfg.Enabled = cfg.OTELEnabled
	traceCfg.OTLPEndpoint = cfg.OTELEndpoint
	traceCfg.SampleRate = cfg.OTELSampleRate
	shutdownTracer, err := tracing.InitTracer(ctx, traceCfg)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.shutdownTracer = shutdownTracer

	// Catalog store.
	store, pool, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	a.pool = pool
	if pool != nil {
		database.RegisterPoolMetrics(pool, serviceName)
	}

	// Search engine and index adapter.
	eng, err := newEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	adapter := index.NewAdapter(eng, store.Graphs, store.Products, logger)

	// Facets, optionally cached in Redis.
	var facetOpts []facet.Option
	facetOpts = append(facetOpts, facet.WithMaxValues(cfg.FacetMaxValues))
	if cfg.FacetCacheEnabled() {
		client, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		facetOpts = append(facetOpts, facet.WithCache(facet.NewRedisCache(client, cfg.FacetCacheTTL)))
		logger.Info("facet cache enabled",
			slog.String("addr", cfg.Redis().Addr()),
			slog.Duration("ttl", cfg.FacetCacheTTL),
		)
	}
	facets := facet.NewEngine(adapter, logger, facetOpts...)

	controller := browse.NewController(adapter, facets, store.Products, store.Graphs, logger,
		browse.WithMode(browse.Mode(cfg.BrowseMode)),
		browse.WithPerPage(cfg.BrowsePerPage),
		browse.WithMaxFacetValues(cfg.FacetMaxValues),
	)

	catalogService := service.NewCatalogService(store, logger)

	// Reindex pipeline: outbox relay feeding Kafka, or the index directly.
	var dispatcher outbox.Dispatcher
	switch cfg.IndexDispatch {
	case config.DispatchKafka:
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  consumerGroup,
			Topic:    event.TopicProductReindex,
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}, event.NewConsumer(adapter, logger).Handle, a.dlq, logger)
		dispatcher = event.NewProducer(a.producer, logger)
		logger.Info("kafka reindex pipeline initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic", event.TopicProductReindex),
		)
	default:
		dispatcher = outbox.NewInlineDispatcher(adapter, logger)
		logger.Info("inline reindex dispatch enabled")
	}
	a.relay = outbox.NewRelay(store.Outbox, dispatcher, cfg.OutboxPollInterval, cfg.OutboxBatchSize, logger,
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBackoff(cfg.OutboxPollInterval, cfg.OutboxMaxBackoff),
	)

	// Health checks.
	healthHandler := health.NewHandler()
	if pool != nil {
		healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
	}
	healthHandler.RegisterCritical("search_engine", adapter.Ping)
	if a.redis != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	// HTTP router.
	bgCtx, cancelBackground := context.WithCancel(context.Background())
	a.cancelBackground = cancelBackground
	router := handler.NewRouter(bgCtx,
		handler.RouterConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		},
		handler.NewBrowseHandler(controller, catalogService, logger),
		handler.NewAdminHandler(catalogService, logger),
		handler.NewReindexHandler(bgCtx, adapter, cfg.OutboxBatchSize, logger),
		healthHandler,
		logger,
	)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return nil
}

// newEngine builds the configured search engine.
func newEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engine.SearchEngine, error) {
	switch cfg.SearchEngine {
	case config.EngineTypesense:
		eng, err := typesense.New(ctx, typesense.Config{
			URL:        cfg.TypesenseURL,
			APIKey:     cfg.TypesenseAPIKey,
			Collection: cfg.TypesenseCollection,
			Timeout:    5 * time.Second,
			MaxRetries: 2,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init typesense engine: %w", err)
		}
		logger.Info("typesense search engine initialized",
			slog.String("url", cfg.TypesenseURL),
			slog.String("collection", cfg.TypesenseCollection),
		)
		return eng, nil
	case config.EngineElasticsearch:
		eng, err := esengine.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		logger.Info("elasticsearch search engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
		return eng, nil
	default:
		logger.Warn("using in-memory search engine, the index is lost on restart")
		return memory.New(), nil
	}
}

// Run starts the HTTP server, the outbox relay and, with Kafka dispatch, the
// reindex consumer. It blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 3)

	go func() {
		if err := a.relay.Run(ctx); err != nil {
			errCh <- fmt.Errorf("outbox relay: %w", err)
		}
	}()

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("component failed, shutting down", slog.String("error", runErr.Error()))
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(shutdownCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeResources())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases connections. Safe on a partially built App.
func (a *App) closeResources() error {
	var errs []error

	if a.cancelBackground != nil {
		a.cancelBackground()
	}
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
