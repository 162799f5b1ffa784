package memory

import (
	"context"
	"slices"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// ManufacturerRepository implements repository.ManufacturerRepository in memory.
type ManufacturerRepository struct {
	db *DB
}

func (r *ManufacturerRepository) checkUnique(m *domain.Manufacturer) error {
	for _, existing := range r.db.manufacturers {
		if existing.ID == m.ID {
			continue
		}
		if existing.Name == m.Name {
			return conflict("manufacturer", "name", m.Name)
		}
		if existing.Slug == m.Slug {
			return conflict("manufacturer", "slug", m.Slug)
		}
	}
	return nil
}

func (r *ManufacturerRepository) Create(_ context.Context, m *domain.Manufacturer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.manufacturers[m.ID]; ok {
		return conflict("manufacturer", "id", m.ID)
	}
	if err := r.checkUnique(m); err != nil {
		return err
	}
	r.db.manufacturers[m.ID] = *m
	return nil
}

func (r *ManufacturerRepository) GetByID(_ context.Context, id string) (*domain.Manufacturer, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	m, ok := r.db.manufacturers[id]
	if !ok {
		return nil, apperrors.NotFound("manufacturer", id)
	}
	return &m, nil
}

func (r *ManufacturerRepository) List(_ context.Context, params repository.ListParams) ([]domain.Manufacturer, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	all := make([]domain.Manufacturer, 0, len(r.db.manufacturers))
	for _, m := range r.db.manufacturers {
		all = append(all, m)
	}
	slices.SortFunc(all, byName(func(m domain.Manufacturer) string { return m.Name }))
	return page(all, params), len(all), nil
}

func (r *ManufacturerRepository) Update(_ context.Context, m *domain.Manufacturer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.manufacturers[m.ID]
	if !ok {
		return apperrors.NotFound("manufacturer", m.ID)
	}
	m.Slug = existing.Slug
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = r.db.now()
	if err := r.checkUnique(m); err != nil {
		return err
	}

	r.db.manufacturers[m.ID] = *m
	r.db.enqueue(r.db.productIDsOfManufacturer(m.ID)...)
	return nil
}

func (r *ManufacturerRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.manufacturers[id]; !ok {
		return apperrors.NotFound("manufacturer", id)
	}
	affected := r.db.productIDsOfManufacturer(id)
	r.db.enqueue(affected...)

	delete(r.db.manufacturers, id)
	for _, pid := range affected {
		r.db.deleteProductCascade(pid)
	}
	return nil
}

func (r *ManufacturerRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, m := range r.db.manufacturers {
		if m.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}
