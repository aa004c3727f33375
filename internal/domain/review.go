package domain

import (
	"time"
)

// Review is a user's rating of a product. Only approved reviews are shown
// publicly and counted in the product's rating aggregate.
type Review struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	UserID     string    `json:"user_id"`
	Rating     int       `json:"rating"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// UpdateReviewInput holds a partial review update. Only administrators may
// set IsApproved.
type UpdateReviewInput struct {
	Rating     *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Title      *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content    *string `json:"content" validate:"omitempty,min=1"`
	IsApproved *bool   `json:"is_approved"`
}

// DetailReviewLimit caps the approved reviews embedded in a product detail.
const DetailReviewLimit = 10
