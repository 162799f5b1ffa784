package index

import (
	"slices"

	"github.com/utafrali/CatalogGo/internal/domain"
)

// BuildDocument derives the searchable document of a product graph. The same
// graph always yields the same document: distributor names and SKUs are
// deduplicated and sorted.
func BuildDocument(detail *domain.ProductDetail) (*domain.SearchDocument, error) {
	if detail.Manufacturer == nil {
		return nil, &domain.MissingRelationError{Entity: "product", ID: detail.ID, Relation: "manufacturer"}
	}

	distributors := make([]string, 0, len(detail.Items))
	skus := make([]string, 0, len(detail.Items))
	for _, it := range detail.Items {
		if it.Distributor == nil {
			return nil, &domain.MissingRelationError{Entity: "item", ID: it.ID, Relation: "distributor"}
		}
		distributors = append(distributors, it.Distributor.Name)
		if it.SKU != "" {
			skus = append(skus, it.SKU)
		}
	}

	return &domain.SearchDocument{
		ID:               detail.ID,
		Name:             detail.Name,
		Slug:             detail.Slug,
		EAN:              detail.EAN,
		Description:      detail.Description,
		ManufacturerID:   detail.Manufacturer.ID,
		ManufacturerName: detail.Manufacturer.Name,
		ManufacturerSlug: detail.Manufacturer.Slug,
		DistributorNames: sortedSet(distributors),
		SKUs:             sortedSet(skus),
		CreatedAt:        detail.CreatedAt.Unix(),
	}, nil
}

func sortedSet(values []string) []string {
	slices.Sort(values)
	return slices.Compact(values)
}
