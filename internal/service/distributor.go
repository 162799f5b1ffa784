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

// CreateDistributor creates a distributor with a unique slug.
func (s *CatalogService) CreateDistributor(ctx context.Context, name string) (*domain.Distributor, error) {
	name, err := requireName("distributor", name)
	if err != nil {
		return nil, err
	}
	slug, err := uniqueSlug(ctx, s.store.Distributors, "distributor", name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &domain.Distributor{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Distributors.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create distributor: %w", err)
	}

	s.logger.InfoContext(ctx, "distributor created",
		slog.String("distributor_id", m.ID),
		slog.String("slug", m.Slug),
	)
	return m, nil
}

// GetDistributor retrieves a distributor by its ID.
func (s *CatalogService) GetDistributor(ctx context.Context, id string) (*domain.Distributor, error) {
	m, err := s.store.Distributors.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get distributor: %w", err)
	}
	return m, nil
}

// ListDistributors returns a page of distributors ordered by name.
func (s *CatalogService) ListDistributors(ctx context.Context, page, perPage int) ([]domain.Distributor, int, error) {
	out, total, err := s.store.Distributors.List(ctx, repository.ListParams{Page: page, PerPage: perPage})
	if err != nil {
		return nil, 0, fmt.Errorf("list distributors: %w", err)
	}
	return out, total, nil
}

// RenameDistributor changes a distributor's name. The slug is kept and
// every product the distributor has items for is reindexed.
func (s *CatalogService) RenameDistributor(ctx context.Context, id, name string) (*domain.Distributor, error) {
	name, err := requireName("distributor", name)
	if err != nil {
		return nil, err
	}
	m, err := s.store.Distributors.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get distributor: %w", err)
	}

	m.Name = name
	if err := s.store.Distributors.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("update distributor: %w", err)
	}

	s.logger.InfoContext(ctx, "distributor renamed", slog.String("distributor_id", id))
	return m, nil
}

// DeleteDistributor removes a distributor together with its items.
func (s *CatalogService) DeleteDistributor(ctx context.Context, id string) error {
	if err := s.store.Distributors.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete distributor: %w", err)
	}
	s.logger.InfoContext(ctx, "distributor deleted", slog.String("distributor_id", id))
	return nil
}
