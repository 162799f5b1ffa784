// Command seed fills the configured catalog store with demo manufacturers,
// products, distributors and items. The running service picks the new
// products up from the reindex outbox.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/utafrali/CatalogGo/internal/app"
	"github.com/utafrali/CatalogGo/internal/config"
	"github.com/utafrali/CatalogGo/internal/seed"
	"github.com/utafrali/CatalogGo/internal/service"
	pkgconfig "github.com/utafrali/CatalogGo/pkg/config"
	"github.com/utafrali/CatalogGo/pkg/logger"
)

func main() {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.Manufacturers, "manufacturers", opts.Manufacturers, "manufacturers to create")
	flag.IntVar(&opts.ProductsPerManufacturer, "products", opts.ProductsPerManufacturer, "products per manufacturer")
	flag.IntVar(&opts.DistributorsPerProduct, "distributors", opts.DistributorsPerProduct, "new distributors (one item each) per product")
	flag.Parse()

	if err := pkgconfig.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("catalog-seed", cfg.LogLevel)

	if err := run(cfg, opts, log); err != nil {
		log.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, opts seed.Options, log *slog.Logger) error {
	if cfg.StoreBackend == config.StoreMemory {
		log.Warn("STORE_BACKEND is memory, seeded data disappears when this command exits")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, 5*time.Minute)
	defer cancelTimeout()

	store, pool, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	_, err = seed.New(service.NewCatalogService(store, log), nil, log).Run(ctx, opts)
	return err
}
