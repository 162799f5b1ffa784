package domain

import (
	"fmt"
	"time"

	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// Facet fields exposed by the searchable document.
const (
	FieldManufacturerName = "manufacturer_name"
	FieldDistributorNames = "distributor_names"
)

// FacetFields lists the facet fields requested on every browse query.
var FacetFields = []string{FieldManufacturerName, FieldDistributorNames}

// SearchDocument is the denormalized, derived representation of a product
// stored in the search engine. It is never used as a source of truth.
type SearchDocument struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Slug             string   `json:"slug"`
	EAN              string   `json:"ean"`
	Description      string   `json:"description"`
	ManufacturerID   string   `json:"manufacturer_id"`
	ManufacturerName string   `json:"manufacturer_name"`
	ManufacturerSlug string   `json:"manufacturer_slug"`
	DistributorNames []string `json:"distributor_names"`
	SKUs             []string `json:"skus"`
	// CreatedAt is unix seconds.
	CreatedAt int64 `json:"created_at"`
}

// FacetValue is a single value of a facet field with its document count.
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Facets maps a facet field to its values, ordered by count descending.
type Facets map[string][]FacetValue

// Counts returns field's values as a plain map.
func (f Facets) Counts(field string) map[string]int {
	out := make(map[string]int, len(f[field]))
	for _, v := range f[field] {
		out[v.Value] = v.Count
	}
	return out
}

// Values returns field's values in order.
func (f Facets) Values(field string) []string {
	out := make([]string, 0, len(f[field]))
	for _, v := range f[field] {
		out = append(out, v.Value)
	}
	return out
}

// MissingRelationError reports an entity that cannot be indexed because a
// required relation is absent.
type MissingRelationError struct {
	Entity   string
	ID       string
	Relation string
}

func (e *MissingRelationError) Error() string {
	return fmt.Sprintf("%s %s has no %s", e.Entity, e.ID, e.Relation)
}

func (e *MissingRelationError) Unwrap() error {
	return apperrors.ErrMissingRelation
}

// ReindexJob is a pending request to rebuild one product's search document.
type ReindexJob struct {
	ID        int64  `json:"id"`
	ProductID string `json:"product_id"`
	// Attempts counts earlier failed dispatches of this job.
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}
