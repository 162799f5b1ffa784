// Package seed populates a catalog with demo data through the catalog
// service, so every write goes through validation and the reindex outbox.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/CatalogGo/internal/service"
)

var (
	namePrefixes = []string{"Volt", "North", "Ampere", "Brightline", "Copper", "Delta", "Helix", "Lumen", "Ohm", "Sparrow"}
	nameSuffixes = []string{"Electric", "Systems", "Industries", "Components", "Supply", "Works", "Trading", "Solutions"}
	productKinds = []string{"Circuit Breaker", "Cable Reel", "Junction Box", "LED Panel", "Socket Outlet", "Switch", "Transformer", "Contactor", "Fuse Holder", "Surge Protector"}
	descWords    = []string{"rated", "for", "indoor", "outdoor", "use", "with", "high", "durability", "and", "low", "loss", "compact", "housing", "certified", "installation"}
)

// Options sizes a seeding run.
type Options struct {
	Manufacturers           int
	ProductsPerManufacturer int
	DistributorsPerProduct  int
}

// DefaultOptions creates four manufacturers with five products each, every
// product stocked by two new distributors.
func DefaultOptions() Options {
	return Options{Manufacturers: 4, ProductsPerManufacturer: 5, DistributorsPerProduct: 2}
}

// Summary counts what a run created.
type Summary struct {
	Manufacturers int `json:"manufacturers"`
	Products      int `json:"products"`
	Distributors  int `json:"distributors"`
	Items         int `json:"items"`
}

// Seeder writes demo data through the catalog service.
type Seeder struct {
	svc    *service.CatalogService
	rng    *rand.Rand
	tag    string
	seq    int
	logger *slog.Logger
}

// New creates a Seeder. Names carry a per-run tag so repeated runs against
// the same store do not collide on unique names.
func New(svc *service.CatalogService, rng *rand.Rand, logger *slog.Logger) *Seeder {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Seeder{
		svc:    svc,
		rng:    rng,
		tag:    strings.ToUpper(uuid.NewString()[:6]),
		logger: logger,
	}
}

// Run creates the catalog described by opts.
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	for range opts.Manufacturers {
		m, err := s.svc.CreateManufacturer(ctx, s.companyName())
		if err != nil {
			return sum, fmt.Errorf("seed manufacturer: %w", err)
		}
		sum.Manufacturers++

		for range opts.ProductsPerManufacturer {
			p, err := s.svc.CreateProduct(ctx, service.CreateProductInput{
				ManufacturerID: m.ID,
				Name:           s.productName(),
				EAN:            s.ean13(),
				Description:    s.description(),
			})
			if err != nil {
				return sum, fmt.Errorf("seed product: %w", err)
			}
			sum.Products++

			for range opts.DistributorsPerProduct {
				d, err := s.svc.CreateDistributor(ctx, s.companyName())
				if err != nil {
					return sum, fmt.Errorf("seed distributor: %w", err)
				}
				sum.Distributors++

				if _, err := s.svc.CreateItem(ctx, service.CreateItemInput{
					ProductID:     p.ID,
					DistributorID: d.ID,
					Price:         decimal.New(s.rng.Int64N(100001), -2),
					SKU:           s.sku(),
					Available:     s.rng.IntN(4) > 0,
				}); err != nil {
					return sum, fmt.Errorf("seed item: %w", err)
				}
				sum.Items++
			}
		}
	}

	s.logger.InfoContext(ctx, "catalog seeded",
		slog.String("tag", s.tag),
		slog.Int("manufacturers", sum.Manufacturers),
		slog.Int("products", sum.Products),
		slog.Int("distributors", sum.Distributors),
		slog.Int("items", sum.Items),
	)
	return sum, nil
}

func (s *Seeder) next() int {
	s.seq++
	return s.seq
}

func (s *Seeder) pick(words []string) string {
	return words[s.rng.IntN(len(words))]
}

func (s *Seeder) companyName() string {
	return fmt.Sprintf("%s %s %s-%d", s.pick(namePrefixes), s.pick(nameSuffixes), s.tag, s.next())
}

func (s *Seeder) productName() string {
	return fmt.Sprintf("%s %s-%d", s.pick(productKinds), s.tag, s.next())
}

func (s *Seeder) description() string {
	words := make([]string, 8+s.rng.IntN(8))
	for i := range words {
		words[i] = s.pick(descWords)
	}
	text := strings.Join(words, " ")
	return strings.ToUpper(text[:1]) + text[1:] + "."
}

// sku is the run tag followed by a sequence number, unique within a run.
func (s *Seeder) sku() string {
	return fmt.Sprintf("%s-%06d", s.tag, s.next())
}

// ean13 returns twelve random digits plus the EAN-13 check digit.
func (s *Seeder) ean13() string {
	var b strings.Builder
	sum := 0
	for i := range 12 {
		d := s.rng.IntN(10)
		if i%2 == 1 {
			sum += 3 * d
		} else {
			sum += d
		}
		b.WriteString(strconv.Itoa(d))
	}
	b.WriteString(strconv.Itoa((10 - sum%10) % 10))
	return b.String()
}
