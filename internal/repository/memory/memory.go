// Package memory is an in-process catalog store with the same constraints and
// outbox behaviour as the PostgreSQL store. It backs tests and the demo mode.
package memory

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

const defaultPerPage = 20

type outboxRow struct {
	job         domain.ReindexJob
	dispatched  bool
	buried      bool
	availableAt time.Time
	lastError   string
}

// DB holds every table. Repositories returned by NewStore share one DB so
// cascades and outbox writes happen under a single lock.
type DB struct {
	mu            sync.RWMutex
	manufacturers map[string]domain.Manufacturer
	distributors  map[string]domain.Distributor
	products      map[string]domain.Product
	items         map[string]domain.Item
	outbox        []outboxRow
	nextJobID     int64
	now           func() time.Time
}

// NewDB creates an empty database.
func NewDB() *DB {
	return &DB{
		manufacturers: make(map[string]domain.Manufacturer),
		distributors:  make(map[string]domain.Distributor),
		products:      make(map[string]domain.Product),
		items:         make(map[string]domain.Item),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// NewStore builds every repository on top of db.
func NewStore(db *DB) repository.Store {
	products := &ProductRepository{db: db}
	return repository.Store{
		Manufacturers: &ManufacturerRepository{db: db},
		Distributors:  &DistributorRepository{db: db},
		Products:      products,
		Items:         &ItemRepository{db: db},
		Graphs:        products,
		Outbox:        &OutboxRepository{db: db},
	}
}

// enqueue must be called with mu held for writing.
func (db *DB) enqueue(productIDs ...string) {
	for _, id := range productIDs {
		db.nextJobID++
		db.outbox = append(db.outbox, outboxRow{job: domain.ReindexJob{
			ID:        db.nextJobID,
			ProductID: id,
			CreatedAt: db.now(),
		}, availableAt: db.now()})
	}
}

func (db *DB) productIDsOfManufacturer(manufacturerID string) []string {
	var ids []string
	for _, p := range db.products {
		if p.ManufacturerID == manufacturerID {
			ids = append(ids, p.ID)
		}
	}
	slices.Sort(ids)
	return ids
}

func (db *DB) productIDsOfDistributor(distributorID string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, it := range db.items {
		if it.DistributorID != distributorID {
			continue
		}
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	slices.Sort(ids)
	return ids
}

func (db *DB) deleteProductCascade(id string) {
	delete(db.products, id)
	for itemID, it := range db.items {
		if it.ProductID == id {
			delete(db.items, itemID)
		}
	}
}

func page[T any](all []T, p repository.ListParams) []T {
	if p.PerPage <= 0 {
		p.PerPage = defaultPerPage
	}
	offset := p.Offset()
	if offset >= len(all) {
		return []T{}
	}
	end := min(offset+p.PerPage, len(all))
	return slices.Clone(all[offset:end])
}

func byName[T any](name func(T) string) func(a, b T) int {
	return func(a, b T) int { return strings.Compare(name(a), name(b)) }
}

func newestFirst(a, b domain.Product) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func conflict(resource, field, value string) error {
	return apperrors.AlreadyExists(resource, field, value)
}

func missing(resource, relation string) error {
	return apperrors.MissingRelation(resource + " references a " + relation + " that does not exist")
}
