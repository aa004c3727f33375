package domain

import (
	"slices"
	"time"
)

// ProductImage references an externally stored image. A product has at most
// one default image, which is listed first; the rest follow by creation time.
type ProductImage struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	URL       string    `json:"url"`
	AltText   string    `json:"alt_text"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// AddImageInput holds the parameters for attaching an image to a product.
type AddImageInput struct {
	URL       string `json:"url" validate:"required,url,max=500"`
	AltText   string `json:"alt_text" validate:"max=200"`
	IsDefault bool   `json:"is_default"`
}

// SortImages orders images default first, then oldest first.
func SortImages(images []ProductImage) {
	slices.SortStableFunc(images, func(a, b ProductImage) int {
		switch {
		case a.IsDefault && !b.IsDefault:
			return -1
		case !a.IsDefault && b.IsDefault:
			return 1
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
