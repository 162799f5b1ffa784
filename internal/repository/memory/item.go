package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// ItemRepository implements repository.ItemRepository in memory.
type ItemRepository struct {
	db *DB
}

func (r *ItemRepository) validate(it *domain.Item) error {
	if _, ok := r.db.products[it.ProductID]; !ok {
		return missing("item", "product")
	}
	if _, ok := r.db.distributors[it.DistributorID]; !ok {
		return missing("item", "distributor")
	}
	if it.Price.IsNegative() {
		return apperrors.InvalidInput("item price must not be negative")
	}
	for _, existing := range r.db.items {
		if existing.ID != it.ID && existing.SKU == it.SKU {
			return conflict("item", "sku", it.SKU)
		}
	}
	return nil
}

func (r *ItemRepository) Create(_ context.Context, it *domain.Item) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.items[it.ID]; ok {
		return conflict("item", "id", it.ID)
	}
	if err := r.validate(it); err != nil {
		return err
	}
	r.db.items[it.ID] = *it
	r.db.enqueue(it.ProductID)
	return nil
}

func (r *ItemRepository) GetByID(_ context.Context, id string) (*domain.Item, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	it, ok := r.db.items[id]
	if !ok {
		return nil, apperrors.NotFound("item", id)
	}
	return &it, nil
}

func (r *ItemRepository) List(_ context.Context, f repository.ItemFilter) ([]domain.Item, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var all []domain.Item
	for _, it := range r.db.items {
		if f.ProductID != nil && it.ProductID != *f.ProductID {
			continue
		}
		if f.DistributorID != nil && it.DistributorID != *f.DistributorID {
			continue
		}
		all = append(all, it)
	}
	slices.SortFunc(all, func(a, b domain.Item) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return page(all, f.ListParams), len(all), nil
}

func (r *ItemRepository) Update(_ context.Context, it *domain.Item) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.items[it.ID]
	if !ok {
		return apperrors.NotFound("item", it.ID)
	}
	it.CreatedAt = existing.CreatedAt
	it.UpdatedAt = r.db.now()
	if err := r.validate(it); err != nil {
		return err
	}

	r.db.items[it.ID] = *it
	r.db.enqueue(existing.ProductID)
	if existing.ProductID != it.ProductID {
		r.db.enqueue(it.ProductID)
	}
	return nil
}

func (r *ItemRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	it, ok := r.db.items[id]
	if !ok {
		return apperrors.NotFound("item", id)
	}
	delete(r.db.items, id)
	r.db.enqueue(it.ProductID)
	return nil
}
