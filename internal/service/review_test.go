package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/pagination"
)

func TestCatalogScenario_SlugsAndRatings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.createCategory(t, "Home & Garden")
	second := env.createCategory(t, "Home & Garden!")
	assert.Equal(t, "home-garden", first.Slug)
	assert.Equal(t, "home-garden-1", second.Slug)

	p := env.createProduct(t, "Lawn Chair", "CHAIR-1")
	assert.Equal(t, "null/0", env.aggregate(t, p.Slug))

	for i, stars := range []int{3, 4, 5} {
		user := domain.Actor{UserID: fmt.Sprintf("user-%d", i)}
		r := env.review(t, user, p.Slug, stars)
		assert.False(t, r.IsApproved)
		_, err := env.reviews.SetApproval(ctx, admin, p.Slug, r.ID, true)
		require.NoError(t, err)
	}
	assert.Equal(t, "4.00/3", env.aggregate(t, p.Slug))

	low := env.review(t, domain.Actor{UserID: "user-3"}, p.Slug, 1)
	assert.Equal(t, "4.00/3", env.aggregate(t, p.Slug), "pending reviews are not counted")

	_, err := env.reviews.SetApproval(ctx, admin, p.Slug, low.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "3.25/4", env.aggregate(t, p.Slug))

	page, err := env.reviews.ListReviews(ctx, anon, p.Slug, pagination.Params{Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, "3.25/4", page.Summary.String())
}

func TestRatingRoundsHalfToEven(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProduct(t, "Lawn Chair", "CHAIR-1")

	for i, stars := range []int{5, 5, 5, 4, 4, 2, 2, 2} {
		env.review(t, domain.Actor{UserID: fmt.Sprintf("admin-%d", i), IsAdmin: true}, p.Slug, stars)
	}

	assert.Equal(t, "3.62/8", env.aggregate(t, p.Slug))
}

func TestCreateReview_AdminReviewIsApproved(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProduct(t, "Rake", "RAKE-1")

	r := env.review(t, admin, p.Slug, 5)

	assert.True(t, r.IsApproved)
	assert.Equal(t, "5.00/1", env.aggregate(t, p.Slug))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ratingRecomputes))
	assert.Contains(t, env.publisher.topics, "ecommerce.product.rating_updated")
}

func TestCreateReview_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.createProduct(t, "Rake", "RAKE-1")
	_, err := env.products.CreateProduct(ctx, admin, &domain.CreateProductInput{Name: "Draft", SKU: "DRAFT-1"})
	require.NoError(t, err)
	env.review(t, alice, p.Slug, 4)

	tests := []struct {
		name  string
		actor domain.Actor
		slug  string
		input domain.CreateReviewInput
		want  error
	}{
		{"anonymous", anon, "rake", domain.CreateReviewInput{Rating: 4, Title: "t"}, apperrors.ErrUnauthorized},
		{"rating too high", bob, "rake", domain.CreateReviewInput{Rating: 6, Title: "t"}, apperrors.ErrInvalidInput},
		{"rating too low", bob, "rake", domain.CreateReviewInput{Rating: 0, Title: "t"}, apperrors.ErrInvalidInput},
		{"blank title", bob, "rake", domain.CreateReviewInput{Rating: 4, Title: " "}, apperrors.ErrInvalidInput},
		{"second review", alice, "rake", domain.CreateReviewInput{Rating: 2, Title: "t"}, apperrors.ErrAlreadyExists},
		{"unknown product", bob, "nope", domain.CreateReviewInput{Rating: 4, Title: "t"}, apperrors.ErrNotFound},
		{"unpublished product", bob, "draft", domain.CreateReviewInput{Rating: 4, Title: "t"}, apperrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reviews.CreateReview(ctx, tt.actor, tt.slug, &tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdateReview_Permissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.createProduct(t, "Rake", "RAKE-1")
	r := env.review(t, alice, p.Slug, 2)

	_, err := env.reviews.UpdateReview(ctx, bob, p.Slug, r.ID, &domain.UpdateReviewInput{Rating: intPtr(5)})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.reviews.UpdateReview(ctx, alice, p.Slug, r.ID, &domain.UpdateReviewInput{IsApproved: boolPtr(true)})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.reviews.SetApproval(ctx, alice, p.Slug, r.ID, true)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	updated, err := env.reviews.UpdateReview(ctx, alice, p.Slug, r.ID, &domain.UpdateReviewInput{
		Rating: intPtr(5),
		Title:  strPtr("Changed my mind"),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "Changed my mind", updated.Title)
	assert.False(t, updated.IsApproved)
	assert.Equal(t, "null/0", env.aggregate(t, p.Slug))

	approved, err := env.reviews.UpdateReview(ctx, admin, p.Slug, r.ID, &domain.UpdateReviewInput{IsApproved: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
	assert.Equal(t, "5.00/1", env.aggregate(t, p.Slug))
}

func TestUpdateReview_EditOfApprovedReviewRecomputes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.createProduct(t, "Rake", "RAKE-1")
	env.review(t, admin, p.Slug, 5)
	r := env.review(t, domain.Actor{UserID: "admin-2", IsAdmin: true}, p.Slug, 3)
	assert.Equal(t, "4.00/2", env.aggregate(t, p.Slug))

	_, err := env.reviews.UpdateReview(ctx, admin, p.Slug, r.ID, &domain.UpdateReviewInput{Rating: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, "4.50/2", env.aggregate(t, p.Slug))

	_, err = env.reviews.SetApproval(ctx, admin, p.Slug, r.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "5.00/1", env.aggregate(t, p.Slug))
}

func TestReviewMustBelongToProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.createProduct(t, "Rake", "RAKE-1")
	other := env.createProduct(t, "Hoe", "HOE-1")
	r := env.review(t, alice, p.Slug, 4)

	_, err := env.reviews.UpdateReview(ctx, alice, other.Slug, r.ID, &domain.UpdateReviewInput{Rating: intPtr(1)})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = env.reviews.DeleteReview(ctx, alice, other.Slug, r.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.createProduct(t, "Rake", "RAKE-1")
	mine := env.review(t, domain.Actor{UserID: alice.UserID, IsAdmin: true}, p.Slug, 2)
	env.review(t, admin, p.Slug, 4)
	assert.Equal(t, "3.00/2", env.aggregate(t, p.Slug))

	err := env.reviews.DeleteReview(ctx, bob, p.Slug, mine.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	require.NoError(t, env.reviews.DeleteReview(ctx, alice, p.Slug, mine.ID))
	assert.Equal(t, "4.00/1", env.aggregate(t, p.Slug))

	err = env.reviews.DeleteReview(ctx, alice, p.Slug, mine.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListReviews_ApprovedOnlyAndPaginated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.createProduct(t, "Rake", "RAKE-1")
	for i := range 3 {
		env.review(t, domain.Actor{UserID: fmt.Sprintf("admin-%d", i), IsAdmin: true}, p.Slug, 4)
	}
	env.review(t, alice, p.Slug, 1)

	page, err := env.reviews.ListReviews(ctx, anon, p.Slug, pagination.Params{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Reviews, 1)
	assert.Equal(t, "4.00/3", page.Summary.String())
}
