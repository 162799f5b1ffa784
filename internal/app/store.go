package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/utafrali/CatalogGo/internal/config"
	"github.com/utafrali/CatalogGo/internal/repository"
	"github.com/utafrali/CatalogGo/internal/repository/memory"
	"github.com/utafrali/CatalogGo/internal/repository/postgres"
	"github.com/utafrali/CatalogGo/pkg/database"
)

// OpenStore opens the configured catalog store. For PostgreSQL the schema is
// migrated before returning; the pool is nil for the memory backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, *pgxpool.Pool, error) {
	if cfg.StoreBackend == config.StoreMemory {
		logger.Warn("using in-memory catalog store, data is lost on restart")
		return memory.NewStore(memory.NewDB()), nil, nil
	}

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return repository.Store{}, nil, err
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), logger); err != nil {
		pool.Close()
		return repository.Store{}, nil, fmt.Errorf("run migrations: %w", err)
	}

	return postgres.NewStore(pool), pool, nil
}
