package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Manufacturer owns products. Name and slug are unique.
type Manufacturer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Distributor offers products through items. Name and slug are unique.
type Distributor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product is a catalog entry belonging to exactly one manufacturer.
type Product struct {
	ID             string    `json:"id"`
	ManufacturerID string    `json:"manufacturer_id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	EAN            string    `json:"ean"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Item is a distributor's offer of a product.
type Item struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	DistributorID string          `json:"distributor_id"`
	Price         decimal.Decimal `json:"price"`
	SKU           string          `json:"sku"`
	Available     bool            `json:"available"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ItemDetail is an item with its distributor attached.
type ItemDetail struct {
	Item
	Distributor *Distributor `json:"distributor,omitempty"`
}

// ProductDetail is a product with its manufacturer and items loaded up front.
// A nil Manufacturer means the relation could not be resolved.
type ProductDetail struct {
	Product
	Manufacturer *Manufacturer `json:"manufacturer,omitempty"`
	Items        []ItemDetail  `json:"items"`
	ItemsCount   int           `json:"items_count"`
}
