package seed

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CatalogGo/internal/repository/memory"
	"github.com/utafrali/CatalogGo/internal/service"
)

func newTestSeeder(seed uint64) (*Seeder, *service.CatalogService) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewCatalogService(memory.NewStore(memory.NewDB()), logger)
	return New(svc, rand.New(rand.NewPCG(seed, seed)), logger), svc
}

func TestRun_DefaultShape(t *testing.T) {
	s, svc := newTestSeeder(1)
	ctx := context.Background()

	sum, err := s.Run(ctx, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Summary{Manufacturers: 4, Products: 20, Distributors: 40, Items: 40}, sum)

	manufacturers, total, err := svc.ListManufacturers(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	products, total, err := svc.ListProducts(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 20, total)

	perManufacturer := map[string]int{}
	for _, p := range products {
		perManufacturer[p.ManufacturerID]++

		items, n, err := svc.ListItems(ctx, service.ItemListFilter{ProductID: p.ID, Page: 1, PerPage: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.NotEqual(t, items[0].DistributorID, items[1].DistributorID)
		for _, it := range items {
			assert.True(t, it.Price.Equal(it.Price.Round(2)))
			assert.False(t, it.Price.IsNegative())
		}
	}
	for _, m := range manufacturers {
		assert.Equal(t, 5, perManufacturer[m.ID], m.Name)
	}
}

func TestRun_RepeatedRunsDoNotCollide(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewCatalogService(memory.NewStore(memory.NewDB()), logger)
	opts := Options{Manufacturers: 2, ProductsPerManufacturer: 2, DistributorsPerProduct: 1}

	for i := range 3 {
		s := New(svc, rand.New(rand.NewPCG(uint64(i), 7)), logger)
		_, err := s.Run(context.Background(), opts)
		require.NoError(t, err, "run %d", i)
	}

	_, total, err := svc.ListProducts(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
}

func TestEAN13_CheckDigit(t *testing.T) {
	s, _ := newTestSeeder(42)

	for range 50 {
		ean := s.ean13()
		require.Len(t, ean, 13)

		sum := 0
		for i, r := range ean[:12] {
			d := int(r - '0')
			if i%2 == 1 {
				d *= 3
			}
			sum += d
		}
		assert.Equal(t, (10-sum%10)%10, int(ean[12]-'0'), ean)
	}
}
