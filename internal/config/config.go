package config

import (
	"fmt"
	"slices"
	"time"

	pkgconfig "github.com/utafrali/CatalogGo/pkg/config"
	"github.com/utafrali/CatalogGo/pkg/database"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Search engines.
const (
	EngineTypesense     = "typesense"
	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"
)

// Index dispatch modes.
const (
	DispatchKafka  = "kafka"
	DispatchInline = "inline"
)

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"CATALOG_HTTP_PORT" envDefault:"8020"`

	// Store backend (postgres or memory)
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB   string `env:"CATALOG_DB_NAME" envDefault:"catalog"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Search engine selection (typesense, elasticsearch or memory)
	SearchEngine string `env:"SEARCH_ENGINE" envDefault:"typesense"`

	// Typesense
	TypesenseURL        string `env:"TYPESENSE_URL" envDefault:"http://localhost:8108"`
	TypesenseAPIKey     string `env:"TYPESENSE_API_KEY"`
	TypesenseCollection string `env:"TYPESENSE_COLLECTION" envDefault:"products"`

	// Elasticsearch
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"catalog_products"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Reindex pipeline
	IndexDispatch      string        `env:"INDEX_DISPATCH" envDefault:"kafka"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
	OutboxMaxAttempts  int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"5"`
	OutboxMaxBackoff   time.Duration `env:"OUTBOX_MAX_BACKOFF" envDefault:"5m"`

	// Redis facet cache
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	FacetCacheTTL time.Duration `env:"FACET_CACHE_TTL" envDefault:"0s"`

	// Browsing
	BrowseMode     string `env:"BROWSE_MODE" envDefault:"faceted"`
	BrowsePerPage  int    `env:"BROWSE_PER_PAGE" envDefault:"12"`
	FacetMaxValues int    `env:"FACET_MAX_VALUES" envDefault:"100"`

	// Public endpoint protection
	RateLimitRPS       float64  `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst     int      `env:"RATE_LIMIT_BURST" envDefault:"100"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if !slices.Contains([]string{StorePostgres, StoreMemory}, c.StoreBackend) {
		return fmt.Errorf("STORE_BACKEND must be postgres or memory, got %q", c.StoreBackend)
	}
	if !slices.Contains([]string{EngineTypesense, EngineElasticsearch, EngineMemory}, c.SearchEngine) {
		return fmt.Errorf("SEARCH_ENGINE must be typesense, elasticsearch or memory, got %q", c.SearchEngine)
	}
	if !slices.Contains([]string{DispatchKafka, DispatchInline}, c.IndexDispatch) {
		return fmt.Errorf("INDEX_DISPATCH must be kafka or inline, got %q", c.IndexDispatch)
	}
	if c.BrowseMode != "faceted" && c.BrowseMode != "legacy" {
		return fmt.Errorf("BROWSE_MODE must be faceted or legacy, got %q", c.BrowseMode)
	}
	if c.StoreBackend == StorePostgres && c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.SearchEngine == EngineTypesense && c.TypesenseAPIKey == "" {
		return fmt.Errorf("TYPESENSE_API_KEY is required when SEARCH_ENGINE is typesense")
	}
	if c.IndexDispatch == DispatchKafka && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.BrowsePerPage < 1 {
		return fmt.Errorf("BROWSE_PER_PAGE must be positive, got %d", c.BrowsePerPage)
	}
	if c.FacetMaxValues < 1 {
		return fmt.Errorf("FACET_MAX_VALUES must be positive, got %d", c.FacetMaxValues)
	}
	if c.FacetCacheTTL < 0 {
		return fmt.Errorf("FACET_CACHE_TTL must not be negative")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// Postgres returns the connection settings for database.NewPostgresPool.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:               c.PostgresHost,
		Port:               c.PostgresPort,
		User:               c.PostgresUser,
		Password:           c.PostgresPass,
		DBName:             c.PostgresDB,
		SSLMode:            c.PostgresSSL,
		MaxConns:           c.DBMaxConns,
		MinConns:           c.DBMinConns,
		MaxConnLifetime:    time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime:    time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
		SlowQueryThreshold: time.Duration(c.SlowQueryThresholdMs) * time.Millisecond,
	}
}

// Redis returns the connection settings for database.NewRedisClient.
func (c *Config) Redis() database.RedisConfig {
	cfg := database.DefaultRedisConfig()
	cfg.Host = c.RedisHost
	cfg.Port = c.RedisPort
	cfg.Password = c.RedisPassword
	cfg.DB = c.RedisDB
	return cfg
}

// FacetCacheEnabled reports whether facet counts are cached in Redis.
func (c *Config) FacetCacheEnabled() bool {
	return c.FacetCacheTTL > 0
}
