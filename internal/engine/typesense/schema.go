package typesense

import "github.com/utafrali/CatalogGo/internal/domain"

// DefaultCollection is the default Typesense collection for product documents.
const DefaultCollection = "products"

// queryBy lists the fields searched by free text, in weight order.
var queryBy = []string{"name", "slug", "ean", "description", "manufacturer_name", "skus"}

const sortBy = "_text_match:desc,created_at:desc"

type field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Facet    bool   `json:"facet,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

type collectionSchema struct {
	Name                string  `json:"name"`
	Fields              []field `json:"fields"`
	DefaultSortingField string  `json:"default_sorting_field"`
}

func buildSchema(name string) collectionSchema {
	return collectionSchema{
		Name: name,
		Fields: []field{
			{Name: "name", Type: "string"},
			{Name: "slug", Type: "string"},
			{Name: "ean", Type: "string"},
			{Name: "description", Type: "string", Optional: true},
			{Name: "manufacturer_id", Type: "string"},
			{Name: domain.FieldManufacturerName, Type: "string", Facet: true},
			{Name: "manufacturer_slug", Type: "string"},
			{Name: domain.FieldDistributorNames, Type: "string[]", Facet: true, Optional: true},
			{Name: "skus", Type: "string[]", Optional: true},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: "created_at",
	}
}
