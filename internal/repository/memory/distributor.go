package memory

import (
	"context"
	"slices"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// DistributorRepository implements repository.DistributorRepository in memory.
type DistributorRepository struct {
	db *DB
}

func (r *DistributorRepository) checkUnique(d *domain.Distributor) error {
	for _, existing := range r.db.distributors {
		if existing.ID == d.ID {
			continue
		}
		if existing.Name == d.Name {
			return conflict("distributor", "name", d.Name)
		}
		if existing.Slug == d.Slug {
			return conflict("distributor", "slug", d.Slug)
		}
	}
	return nil
}

func (r *DistributorRepository) Create(_ context.Context, d *domain.Distributor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.distributors[d.ID]; ok {
		return conflict("distributor", "id", d.ID)
	}
	if err := r.checkUnique(d); err != nil {
		return err
	}
	r.db.distributors[d.ID] = *d
	return nil
}

func (r *DistributorRepository) GetByID(_ context.Context, id string) (*domain.Distributor, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	d, ok := r.db.distributors[id]
	if !ok {
		return nil, apperrors.NotFound("distributor", id)
	}
	return &d, nil
}

func (r *DistributorRepository) List(_ context.Context, params repository.ListParams) ([]domain.Distributor, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	all := make([]domain.Distributor, 0, len(r.db.distributors))
	for _, d := range r.db.distributors {
		all = append(all, d)
	}
	slices.SortFunc(all, byName(func(d domain.Distributor) string { return d.Name }))
	return page(all, params), len(all), nil
}

func (r *DistributorRepository) Update(_ context.Context, d *domain.Distributor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.distributors[d.ID]
	if !ok {
		return apperrors.NotFound("distributor", d.ID)
	}
	d.Slug = existing.Slug
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = r.db.now()
	if err := r.checkUnique(d); err != nil {
		return err
	}

	r.db.distributors[d.ID] = *d
	r.db.enqueue(r.db.productIDsOfDistributor(d.ID)...)
	return nil
}

func (r *DistributorRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.distributors[id]; !ok {
		return apperrors.NotFound("distributor", id)
	}
	r.db.enqueue(r.db.productIDsOfDistributor(id)...)

	delete(r.db.distributors, id)
	for itemID, it := range r.db.items {
		if it.DistributorID == id {
			delete(r.db.items, itemID)
		}
	}
	return nil
}

func (r *DistributorRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, d := range r.db.distributors {
		if d.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}
