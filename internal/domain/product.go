package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Product status constants.
const (
	ProductStatusDraft     = "draft"
	ProductStatusPublished = "published"
	ProductStatusArchived  = "archived"
)

// Money amounts are fixed-point with MoneyScale fractional digits and must
// stay below MaxMoney (NUMERIC(10, 2)).
const MoneyScale = 2

// MaxMoney is the exclusive upper bound of a money amount.
var MaxMoney = decimal.New(1, 8)

// Product is a sellable catalog item. AverageRating and ReviewCount are
// derived from approved reviews and written only by the rating package.
type Product struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Slug          string              `json:"slug"`
	Description   string              `json:"description"`
	Price         decimal.Decimal     `json:"price"`
	ComparePrice  decimal.NullDecimal `json:"compare_price"`
	CostPrice     decimal.NullDecimal `json:"cost_price"`
	SKU           string              `json:"sku"`
	Barcode       string              `json:"barcode"`
	Quantity      int                 `json:"quantity"`
	CategoryID    *string             `json:"category_id,omitempty"`
	Status        string              `json:"status"`
	Featured      bool                `json:"featured"`
	CreatedBy     *string             `json:"created_by,omitempty"`
	AverageRating decimal.NullDecimal `json:"average_rating"`
	ReviewCount   int                 `json:"review_count"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// IsPublished reports whether the product is visible to non-administrators.
func (p *Product) IsPublished() bool {
	return p.Status == ProductStatusPublished
}

// OnSale reports whether the product has a compare price above its price.
func (p *Product) OnSale() bool {
	return p.ComparePrice.Valid && p.ComparePrice.Decimal.GreaterThan(p.Price)
}

// InStock reports whether any units are available.
func (p *Product) InStock() bool {
	return p.Quantity > 0
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name         string           `json:"name" validate:"required,min=1,max=200"`
	Slug         *string          `json:"slug" validate:"omitempty,slug,max=200"`
	Description  string           `json:"description"`
	Price        decimal.Decimal  `json:"price" validate:"gte=0"`
	ComparePrice *decimal.Decimal `json:"compare_price" validate:"omitempty,gte=0"`
	CostPrice    *decimal.Decimal `json:"cost_price" validate:"omitempty,gte=0"`
	SKU          string           `json:"sku" validate:"required,max=100"`
	Barcode      string           `json:"barcode" validate:"max=100"`
	Quantity     int              `json:"quantity" validate:"gte=0"`
	CategoryID   *string          `json:"category_id" validate:"omitempty,uuid"`
	Status       string           `json:"status" validate:"omitempty,oneof=draft published archived"`
	Featured     bool             `json:"featured"`
}

// UpdateProductInput holds a partial product update. A nil field is left
// unchanged. The slug is only replaced when Slug is supplied.
type UpdateProductInput struct {
	Name         *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Slug         *string          `json:"slug" validate:"omitempty,slug,max=200"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	ComparePrice *decimal.Decimal `json:"compare_price" validate:"omitempty,gte=0"`
	CostPrice    *decimal.Decimal `json:"cost_price" validate:"omitempty,gte=0"`
	SKU          *string          `json:"sku" validate:"omitempty,min=1,max=100"`
	Barcode      *string          `json:"barcode" validate:"omitempty,max=100"`
	Quantity     *int             `json:"quantity" validate:"omitempty,gte=0"`
	CategoryID   *string          `json:"category_id" validate:"omitempty,uuid"`
	Status       *string          `json:"status" validate:"omitempty,oneof=draft published archived"`
	Featured     *bool            `json:"featured"`
}

// ValidStatuses returns the set of valid product statuses.
func ValidStatuses() []string {
	return []string{ProductStatusDraft, ProductStatusPublished, ProductStatusArchived}
}

// IsValidStatus checks whether the given status string is a valid product status.
func IsValidStatus(status string) bool {
	return slices.Contains(ValidStatuses(), status)
}

// Product list orderings accepted by the ordering query parameter. A leading
// "-" sorts descending.
const (
	OrderingNewest = "-created_at"
)

// ValidOrderings returns every accepted ordering value.
func ValidOrderings() []string {
	return []string{
		"price", "-price",
		"created_at", "-created_at",
		"name", "-name",
		"average_rating", "-average_rating",
	}
}

// IsValidOrdering reports whether ordering is accepted. Empty means the
// default ordering.
func IsValidOrdering(ordering string) bool {
	return ordering == "" || slices.Contains(ValidOrderings(), ordering)
}

// FeaturedLimit caps the featured product listing.
const FeaturedLimit = 10

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategorySlug *string
	Featured     *bool
	Status       *string
	Search       *string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	InStock      *bool
	OnSale       bool
	Ordering     string
	Limit        int
	Offset       int
}
