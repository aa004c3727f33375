package domain

// ProductDetail is a product with its category, ordered images and most
// recent approved reviews.
type ProductDetail struct {
	Product
	Category *Category      `json:"category,omitempty"`
	Images   []ProductImage `json:"images"`
	Reviews  []Review       `json:"reviews"`
}
