// Package service implements the catalog's admin operations: validation,
// slug generation and id assignment in front of the store. Reindexing is
// recorded by the store itself in the same transaction as each write.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/utafrali/CatalogGo/internal/filter"
	"github.com/utafrali/CatalogGo/internal/repository"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
	"github.com/utafrali/CatalogGo/pkg/slug"
)

// CatalogService implements the business logic for catalog mutations and reads.
type CatalogService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store repository.Store, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: logger,
	}
}

type slugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// uniqueSlug derives a free slug for name. Slugs are assigned once and kept
// on rename.
func uniqueSlug(ctx context.Context, repo slugChecker, resource, name string) (string, error) {
	base := slug.Generate(name)
	if base == "" {
		return "", apperrors.InvalidInput(fmt.Sprintf("%s name must contain at least one letter or digit", resource))
	}
	s, err := slug.Unique(base, func(candidate string) (bool, error) {
		return repo.SlugExists(ctx, candidate)
	})
	if err != nil {
		return "", fmt.Errorf("generate %s slug: %w", resource, err)
	}
	return s, nil
}

func requireName(resource, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.InvalidInput(resource + " name is required")
	}
	// Names are used as browse filter values.
	if filter.ValidateValue(name) != nil {
		return "", apperrors.InvalidInput(resource + " name must not contain a backtick")
	}
	return name, nil
}
