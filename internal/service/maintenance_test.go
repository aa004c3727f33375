package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/rating"
)

func TestRemoveUser_DetachesCreatorAndRecomputes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	staff := domain.Actor{UserID: "staff-1", IsAdmin: true}
	chair, err := env.products.CreateProduct(ctx, staff, &domain.CreateProductInput{
		Name:   "Lawn Chair",
		SKU:    "CHAIR-1",
		Status: domain.ProductStatusPublished,
	})
	require.NoError(t, err)
	rake := env.createProduct(t, "Rake", "RAKE-1")

	env.review(t, staff, chair.Slug, 1)
	env.review(t, admin, chair.Slug, 5)
	env.review(t, staff, rake.Slug, 2)
	assert.Equal(t, "3.00/2", env.aggregate(t, chair.Slug))
	assert.Equal(t, "2.00/1", env.aggregate(t, rake.Slug))

	env.publisher.topics = nil
	require.NoError(t, env.identity.RemoveUser(ctx, staff.UserID))

	stored, err := env.repos.Products.GetByID(ctx, chair.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CreatedBy)
	assert.Equal(t, "5.00/1", env.aggregate(t, chair.Slug))
	assert.Equal(t, "null/0", env.aggregate(t, rake.Slug))
	assert.Equal(t, []string{
		"ecommerce.product.rating_updated",
		"ecommerce.product.rating_updated",
	}, env.publisher.topics)
}

func TestRemoveUser_UnknownUserIsNoop(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProduct(t, "Rake", "RAKE-1")
	env.review(t, admin, p.Slug, 4)

	require.NoError(t, env.identity.RemoveUser(context.Background(), "ghost"))
	assert.Equal(t, "4.00/1", env.aggregate(t, p.Slug))
}

func TestFixSlugs_AssignsMissingSlugs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	env.createCategory(t, "Home & Garden")
	require.NoError(t, env.repos.Categories.Create(ctx, &domain.Category{
		ID: "legacy-cat", Name: "Home & Garden!", IsActive: true, CreatedAt: now, UpdatedAt: now,
	}))
	env.createProduct(t, "Rake", "RAKE-1")
	require.NoError(t, env.repos.Products.Create(ctx, &domain.Product{
		ID: "legacy-prod", Name: "Rake", SKU: "RAKE-2", Price: decimal.NewFromInt(5),
		Status: domain.ProductStatusPublished, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, env.repos.Products.Create(ctx, &domain.Product{
		ID: "legacy-empty", Name: "***", SKU: "RAKE-3", Price: decimal.NewFromInt(5),
		Status: domain.ProductStatusDraft, CreatedAt: now, UpdatedAt: now,
	}))

	fixes, err := env.maint.FixSlugs(ctx)
	require.NoError(t, err)

	got := map[string]string{}
	for _, f := range fixes {
		got[f.ID] = f.Slug
	}
	assert.Equal(t, map[string]string{
		"legacy-cat":   "home-garden-1",
		"legacy-prod":  "rake-1",
		"legacy-empty": "item",
	}, got)

	again, err := env.maint.FixSlugs(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestFixSlugs_AssignedSlugSurvivesRename(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	env.createProduct(t, "Rake", "RAKE-1")
	require.NoError(t, env.repos.Products.Create(ctx, &domain.Product{
		ID: "legacy-prod", Name: "Rake", SKU: "RAKE-2", Status: domain.ProductStatusPublished,
		CreatedAt: now, UpdatedAt: now,
	}))

	fixes, err := env.maint.FixSlugs(ctx)
	require.NoError(t, err)
	require.Len(t, fixes, 1)

	// Once assigned, a rename leaves it alone.
	updated, err := env.products.UpdateProduct(ctx, admin, fixes[0].Slug, &domain.UpdateProductInput{Name: strPtr("Leaf Rake")})
	require.NoError(t, err)
	assert.Equal(t, "rake-1", updated.Slug)
}

func TestRecomputeRatings_RepairsDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	drifted := env.createProduct(t, "Rake", "RAKE-1")
	healthy := env.createProduct(t, "Hoe", "HOE-1")
	env.review(t, admin, drifted.Slug, 3)
	env.review(t, admin, healthy.Slug, 4)

	require.NoError(t, env.repos.Products.UpdateRating(ctx, drifted.ID, rating.Compute([]int{5, 5})))

	repairs, err := env.maint.RecomputeRatings(ctx)
	require.NoError(t, err)

	require.Len(t, repairs, 1)
	assert.Equal(t, drifted.ID, repairs[0].ProductID)
	assert.Equal(t, "5.00/2", repairs[0].Before.String())
	assert.Equal(t, "3.00/1", repairs[0].After.String())
	assert.Equal(t, "3.00/1", env.aggregate(t, drifted.Slug))
	assert.Equal(t, "4.00/1", env.aggregate(t, healthy.Slug))
}
