package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// CreateProductInput holds the data needed to create a product.
type CreateProductInput struct {
	ManufacturerID string
	Name           string
	EAN            string
	Description    string
}

// UpdateProductInput holds the fields that can be changed on a product.
// Nil fields are left untouched.
type UpdateProductInput struct {
	ManufacturerID *string
	Name           *string
	EAN            *string
	Description    *string
}

// CreateProduct validates the input, assigns a unique slug and stores the product.
func (s *CatalogService) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	name, err := requireName("product", input.Name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.ManufacturerID) == "" {
		return nil, apperrors.InvalidInput("manufacturer_id is required")
	}
	ean := strings.TrimSpace(input.EAN)
	if ean == "" {
		return nil, apperrors.InvalidInput("product ean is required")
	}

	slug, err := uniqueSlug(ctx, s.store.Products, "product", name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &domain.Product{
		ID:             uuid.New().String(),
		ManufacturerID: input.ManufacturerID,
		Name:           name,
		Slug:           slug,
		EAN:            ean,
		Description:    strings.TrimSpace(input.Description),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.String("slug", p.Slug),
	)
	return p, nil
}

// GetProduct retrieves a product by its ID.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.store.Products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetProductDetail returns the product with the given slug together with its
// manufacturer and items, each item with its distributor.
func (s *CatalogService) GetProductDetail(ctx context.Context, slug string) (*domain.ProductDetail, error) {
	p, err := s.store.Products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	graphs, err := s.store.Graphs.LoadGraphs(ctx, []string{p.ID})
	if err != nil {
		return nil, fmt.Errorf("load product graph: %w", err)
	}
	if len(graphs) == 0 {
		// Deleted between the two reads.
		return nil, apperrors.NotFound("product", slug)
	}
	return &graphs[0], nil
}

// ListProducts returns a page of products, newest first.
func (s *CatalogService) ListProducts(ctx context.Context, page, perPage int) ([]domain.Product, int, error) {
	out, total, err := s.store.Products.List(ctx, repository.ListParams{Page: page, PerPage: perPage})
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return out, total, nil
}

// UpdateProduct applies the non-nil fields of input. The slug never changes.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*domain.Product, error) {
	p, err := s.store.Products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	if input.Name != nil {
		name, err := requireName("product", *input.Name)
		if err != nil {
			return nil, err
		}
		p.Name = name
	}
	if input.ManufacturerID != nil {
		if strings.TrimSpace(*input.ManufacturerID) == "" {
			return nil, apperrors.InvalidInput("manufacturer_id must not be empty")
		}
		p.ManufacturerID = *input.ManufacturerID
	}
	if input.EAN != nil {
		ean := strings.TrimSpace(*input.EAN)
		if ean == "" {
			return nil, apperrors.InvalidInput("product ean must not be empty")
		}
		p.EAN = ean
	}
	if input.Description != nil {
		p.Description = strings.TrimSpace(*input.Description)
	}

	if err := s.store.Products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", p.ID))
	return p, nil
}

// DeleteProduct removes a product and its items.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.store.Products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}
