package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
)

// CreateManufacturer creates a manufacturer with a unique slug.
func (s *CatalogService) CreateManufacturer(ctx context.Context, name string) (*domain.Manufacturer, error) {
	name, err := requireName("manufacturer", name)
	if err != nil {
		return nil, err
	}
	slug, err := uniqueSlug(ctx, s.store.Manufacturers, "manufacturer", name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &domain.Manufacturer{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Manufacturers.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create manufacturer: %w", err)
	}

	s.logger.InfoContext(ctx, "manufacturer created",
		slog.String("manufacturer_id", m.ID),
		slog.String("slug", m.Slug),
	)
	return m, nil
}

// GetManufacturer retrieves a manufacturer by its ID.
func (s *CatalogService) GetManufacturer(ctx context.Context, id string) (*domain.Manufacturer, error) {
	m, err := s.store.Manufacturers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get manufacturer: %w", err)
	}
	return m, nil
}

// ListManufacturers returns a page of manufacturers ordered by name.
func (s *CatalogService) ListManufacturers(ctx context.Context, page, perPage int) ([]domain.Manufacturer, int, error) {
	out, total, err := s.store.Manufacturers.List(ctx, repository.ListParams{Page: page, PerPage: perPage})
	if err != nil {
		return nil, 0, fmt.Errorf("list manufacturers: %w", err)
	}
	return out, total, nil
}

// RenameManufacturer changes a manufacturer's name. The slug is kept and
// every product of the manufacturer is reindexed.
func (s *CatalogService) RenameManufacturer(ctx context.Context, id, name string) (*domain.Manufacturer, error) {
	name, err := requireName("manufacturer", name)
	if err != nil {
		return nil, err
	}
	m, err := s.store.Manufacturers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get manufacturer: %w", err)
	}

	m.Name = name
	if err := s.store.Manufacturers.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("update manufacturer: %w", err)
	}

	s.logger.InfoContext(ctx, "manufacturer renamed", slog.String("manufacturer_id", id))
	return m, nil
}

// DeleteManufacturer removes a manufacturer together with its products.
func (s *CatalogService) DeleteManufacturer(ctx context.Context, id string) error {
	if err := s.store.Manufacturers.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete manufacturer: %w", err)
	}
	s.logger.InfoContext(ctx, "manufacturer deleted", slog.String("manufacturer_id", id))
	return nil
}
