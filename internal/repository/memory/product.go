package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// ProductRepository implements repository.ProductRepository and
// repository.GraphLoader in memory.
type ProductRepository struct {
	db *DB
}

func (r *ProductRepository) validate(p *domain.Product) error {
	if _, ok := r.db.manufacturers[p.ManufacturerID]; !ok {
		return missing("product", "manufacturer")
	}
	for _, existing := range r.db.products {
		if existing.ID == p.ID {
			continue
		}
		switch {
		case existing.Name == p.Name:
			return conflict("product", "name", p.Name)
		case existing.Slug == p.Slug:
			return conflict("product", "slug", p.Slug)
		case existing.EAN == p.EAN:
			return conflict("product", "ean", p.EAN)
		}
	}
	return nil
}

func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.products[p.ID]; ok {
		return conflict("product", "id", p.ID)
	}
	if err := r.validate(p); err != nil {
		return err
	}
	r.db.products[p.ID] = *p
	r.db.enqueue(p.ID)
	return nil
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return &p, nil
}

func (r *ProductRepository) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, p := range r.db.products {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, apperrors.NotFound("product", slug)
}

func (r *ProductRepository) List(_ context.Context, params repository.ListParams) ([]domain.Product, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	all := r.all()
	slices.SortFunc(all, byName(func(p domain.Product) string { return p.Name }))
	return page(all, params), len(all), nil
}

func (r *ProductRepository) all() []domain.Product {
	all := make([]domain.Product, 0, len(r.db.products))
	for _, p := range r.db.products {
		all = append(all, p)
	}
	return all
}

func (r *ProductRepository) Update(_ context.Context, p *domain.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.products[p.ID]
	if !ok {
		return apperrors.NotFound("product", p.ID)
	}
	p.Slug = existing.Slug
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = r.db.now()
	if err := r.validate(p); err != nil {
		return err
	}

	r.db.products[p.ID] = *p
	r.db.enqueue(p.ID)
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.products[id]; !ok {
		return apperrors.NotFound("product", id)
	}
	r.db.deleteProductCascade(id)
	r.db.enqueue(id)
	return nil
}

func (r *ProductRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, p := range r.db.products {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *ProductRepository) ListIDs(_ context.Context, afterID string, limit int) ([]string, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	ids := make([]string, 0, len(r.db.products))
	for id := range r.db.products {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Search matches name and description case-insensitively, newest first.
func (r *ProductRepository) Search(_ context.Context, q repository.LegacyQuery) ([]domain.Product, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	needle := strings.ToLower(q.Text)
	var matched []domain.Product
	for _, p := range r.db.products {
		if needle == "" ||
			strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) {
			matched = append(matched, p)
		}
	}
	slices.SortFunc(matched, newestFirst)
	return page(matched, repository.ListParams{Page: q.Page, PerPage: q.PerPage}), len(matched), nil
}

// LoadGraphs returns the graphs of the known ids ordered by id.
func (r *ProductRepository) LoadGraphs(_ context.Context, ids []string) ([]domain.ProductDetail, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	byProduct := make(map[string][]domain.Item)
	for _, it := range r.db.items {
		if _, ok := wanted[it.ProductID]; ok {
			byProduct[it.ProductID] = append(byProduct[it.ProductID], it)
		}
	}

	out := []domain.ProductDetail{}
	for id := range wanted {
		p, ok := r.db.products[id]
		if !ok {
			continue
		}
		detail := domain.ProductDetail{Product: p, Items: []domain.ItemDetail{}}
		if m, ok := r.db.manufacturers[p.ManufacturerID]; ok {
			detail.Manufacturer = &m
		}

		items := byProduct[id]
		slices.SortFunc(items, func(a, b domain.Item) int {
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		for _, it := range items {
			item := domain.ItemDetail{Item: it}
			if d, ok := r.db.distributors[it.DistributorID]; ok {
				item.Distributor = &d
			}
			detail.Items = append(detail.Items, item)
		}
		detail.ItemsCount = len(detail.Items)
		out = append(out, detail)
	}

	slices.SortFunc(out, func(a, b domain.ProductDetail) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}
