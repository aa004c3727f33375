package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/rating"
)

// moneyScale is the number of fractional digits rendered for prices.
const moneyScale = 2

// ProductResponse is the JSON representation of a product. Prices and the
// average rating are rendered with two fractional digits.
type ProductResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	Price         string    `json:"price"`
	ComparePrice  *string   `json:"compare_price"`
	CostPrice     *string   `json:"cost_price,omitempty"`
	SKU           string    `json:"sku"`
	Barcode       string    `json:"barcode"`
	Quantity      int       `json:"quantity"`
	InStock       bool      `json:"in_stock"`
	OnSale        bool      `json:"on_sale"`
	CategoryID    *string   `json:"category_id"`
	Status        string    `json:"status"`
	Featured      bool      `json:"featured"`
	CreatedBy     *string   `json:"created_by,omitempty"`
	AverageRating *string   `json:"average_rating"`
	ReviewCount   int       `json:"review_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// newProductResponse renders p. Cost price and creator are internal and
// only shown to administrators.
func newProductResponse(p *domain.Product, admin bool) ProductResponse {
	resp := ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		Price:         p.Price.StringFixed(moneyScale),
		ComparePrice:  fixed(p.ComparePrice, moneyScale),
		SKU:           p.SKU,
		Barcode:       p.Barcode,
		Quantity:      p.Quantity,
		InStock:       p.InStock(),
		OnSale:        p.OnSale(),
		CategoryID:    p.CategoryID,
		Status:        p.Status,
		Featured:      p.Featured,
		AverageRating: fixed(p.AverageRating, rating.Scale),
		ReviewCount:   p.ReviewCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if admin {
		resp.CostPrice = fixed(p.CostPrice, moneyScale)
		resp.CreatedBy = p.CreatedBy
	}
	return resp
}

func newProductResponses(products []domain.Product, admin bool) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = newProductResponse(&products[i], admin)
	}
	return out
}

// ProductDetailResponse is a product with its category, images and latest
// approved reviews.
type ProductDetailResponse struct {
	ProductResponse
	Category *domain.Category      `json:"category"`
	Images   []domain.ProductImage `json:"images"`
	Reviews  []domain.Review       `json:"reviews"`
}

func newProductDetailResponse(d *domain.ProductDetail, admin bool) ProductDetailResponse {
	resp := ProductDetailResponse{
		ProductResponse: newProductResponse(&d.Product, admin),
		Category:        d.Category,
		Images:          d.Images,
		Reviews:         d.Reviews,
	}
	if resp.Images == nil {
		resp.Images = []domain.ProductImage{}
	}
	if resp.Reviews == nil {
		resp.Reviews = []domain.Review{}
	}
	return resp
}

// RatingSummaryResponse renders a rating aggregate.
type RatingSummaryResponse struct {
	AverageRating *string `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

func newRatingSummaryResponse(s rating.Summary) RatingSummaryResponse {
	return RatingSummaryResponse{
		AverageRating: fixed(s.Average, rating.Scale),
		ReviewCount:   s.Count,
	}
}

func fixed(d decimal.NullDecimal, places int32) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(places)
	return &s
}
