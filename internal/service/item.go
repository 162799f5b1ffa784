package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// CreateItemInput holds the data needed to create an item.
type CreateItemInput struct {
	ProductID     string
	DistributorID string
	Price         decimal.Decimal
	SKU           string
	Available     bool
}

// UpdateItemInput holds the fields that can be changed on an item.
type UpdateItemInput struct {
	ProductID     *string
	DistributorID *string
	Price         *decimal.Decimal
	SKU           *string
	Available     *bool
}

// ItemListFilter narrows ListItems. Empty ids match everything.
type ItemListFilter struct {
	ProductID     string
	DistributorID string
	Page          int
	PerPage       int
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return apperrors.InvalidInput("item price must not be negative")
	}
	if !price.Equal(price.Round(2)) {
		return apperrors.InvalidInput("item price must have at most 2 decimal places")
	}
	return nil
}

// CreateItem validates the input and stores the item.
func (s *CatalogService) CreateItem(ctx context.Context, input CreateItemInput) (*domain.Item, error) {
	if strings.TrimSpace(input.ProductID) == "" || strings.TrimSpace(input.DistributorID) == "" {
		return nil, apperrors.InvalidInput("product_id and distributor_id are required")
	}
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return nil, apperrors.InvalidInput("item sku is required")
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	it := &domain.Item{
		ID:            uuid.New().String(),
		ProductID:     input.ProductID,
		DistributorID: input.DistributorID,
		Price:         input.Price.Round(2),
		SKU:           sku,
		Available:     input.Available,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Items.Create(ctx, it); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	s.logger.InfoContext(ctx, "item created",
		slog.String("item_id", it.ID),
		slog.String("product_id", it.ProductID),
		slog.String("distributor_id", it.DistributorID),
	)
	return it, nil
}

// GetItem retrieves an item by its ID.
func (s *CatalogService) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	it, err := s.store.Items.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// ListItems returns a page of items matching f.
func (s *CatalogService) ListItems(ctx context.Context, f ItemListFilter) ([]domain.Item, int, error) {
	rf := repository.ItemFilter{ListParams: repository.ListParams{Page: f.Page, PerPage: f.PerPage}}
	if f.ProductID != "" {
		rf.ProductID = &f.ProductID
	}
	if f.DistributorID != "" {
		rf.DistributorID = &f.DistributorID
	}

	out, total, err := s.store.Items.List(ctx, rf)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	return out, total, nil
}

// UpdateItem applies the non-nil fields of input.
func (s *CatalogService) UpdateItem(ctx context.Context, id string, input UpdateItemInput) (*domain.Item, error) {
	it, err := s.store.Items.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	if input.ProductID != nil {
		if strings.TrimSpace(*input.ProductID) == "" {
			return nil, apperrors.InvalidInput("product_id must not be empty")
		}
		it.ProductID = *input.ProductID
	}
	if input.DistributorID != nil {
		if strings.TrimSpace(*input.DistributorID) == "" {
			return nil, apperrors.InvalidInput("distributor_id must not be empty")
		}
		it.DistributorID = *input.DistributorID
	}
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return nil, err
		}
		it.Price = input.Price.Round(2)
	}
	if input.SKU != nil {
		sku := strings.TrimSpace(*input.SKU)
		if sku == "" {
			return nil, apperrors.InvalidInput("item sku must not be empty")
		}
		it.SKU = sku
	}
	if input.Available != nil {
		it.Available = *input.Available
	}

	if err := s.store.Items.Update(ctx, it); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	s.logger.InfoContext(ctx, "item updated", slog.String("item_id", it.ID))
	return it, nil
}

// DeleteItem removes an item.
func (s *CatalogService) DeleteItem(ctx context.Context, id string) error {
	if err := s.store.Items.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	s.logger.InfoContext(ctx, "item deleted", slog.String("item_id", id))
	return nil
}
