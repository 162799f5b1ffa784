package repository

import (
	"context"
	"time"

	"github.com/utafrali/CatalogGo/internal/domain"
)

// ListParams pages through a table ordered by name.
type ListParams struct {
	Page    int
	PerPage int
}

// Offset returns the row offset for the page.
func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	ProductID     *string
	DistributorID *string
	ListParams
}

// LegacyQuery is a plain store search used when faceted browsing is off.
type LegacyQuery struct {
	Text    string
	Page    int
	PerPage int
}

// Every mutation below that changes a product's searchable document records
// reindex jobs for the affected products in the same transaction.

// ManufacturerRepository persists manufacturers.
type ManufacturerRepository interface {
	Create(ctx context.Context, m *domain.Manufacturer) error
	GetByID(ctx context.Context, id string) (*domain.Manufacturer, error)
	List(ctx context.Context, params ListParams) ([]domain.Manufacturer, int, error)
	// Update reindexes every product of the manufacturer.
	Update(ctx context.Context, m *domain.Manufacturer) error
	// Delete cascades to the manufacturer's products and reindexes them.
	Delete(ctx context.Context, id string) error
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// DistributorRepository persists distributors.
type DistributorRepository interface {
	Create(ctx context.Context, d *domain.Distributor) error
	GetByID(ctx context.Context, id string) (*domain.Distributor, error)
	List(ctx context.Context, params ListParams) ([]domain.Distributor, int, error)
	// Update reindexes every product the distributor has items for.
	Update(ctx context.Context, d *domain.Distributor) error
	// Delete cascades to the distributor's items and reindexes their products.
	Delete(ctx context.Context, id string) error
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// ProductRepository persists products and loads product graphs.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	List(ctx context.Context, params ListParams) ([]domain.Product, int, error)
	Update(ctx context.Context, p *domain.Product) error
	// Delete cascades to the product's items.
	Delete(ctx context.Context, id string) error
	SlugExists(ctx context.Context, slug string) (bool, error)

	// ListIDs returns up to limit product ids greater than afterID, ascending.
	ListIDs(ctx context.Context, afterID string, limit int) ([]string, error)

	// Search is the legacy name/description search ordered by recency.
	Search(ctx context.Context, q LegacyQuery) ([]domain.Product, int, error)
}

// ItemRepository persists items.
type ItemRepository interface {
	// Create reindexes the item's product.
	Create(ctx context.Context, it *domain.Item) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	List(ctx context.Context, f ItemFilter) ([]domain.Item, int, error)
	// Update reindexes the old and the new product when the item moves.
	Update(ctx context.Context, it *domain.Item) error
	Delete(ctx context.Context, id string) error
}

// GraphLoader loads products with their manufacturer and items→distributor in
// one round trip. Unknown ids are omitted; order is unspecified.
type GraphLoader interface {
	LoadGraphs(ctx context.Context, ids []string) ([]domain.ProductDetail, error)
}

// Outbox exposes pending reindex jobs to the relay.
type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]domain.ReindexJob, error)
	MarkDispatched(ctx context.Context, ids []int64) error
	// Retry counts a failed attempt and hides the job until retryAt.
	Retry(ctx context.Context, id int64, retryAt time.Time, reason string) error
	// Bury counts a failed attempt and stops delivering the job.
	Bury(ctx context.Context, id int64, reason string) error
	// Enqueue records jobs outside any catalog mutation, e.g. a full reindex.
	Enqueue(ctx context.Context, productIDs []string) error
}

// Store groups every repository of one backend.
type Store struct {
	Manufacturers ManufacturerRepository
	Distributors  DistributorRepository
	Products      ProductRepository
	Items         ItemRepository
	Graphs        GraphLoader
	Outbox        Outbox
}
