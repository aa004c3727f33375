package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
)

func TestCreateCategory_AssignsSuffixedSlugs(t *testing.T) {
	env := newTestEnv(t)

	first := env.createCategory(t, "Home & Garden")
	second := env.createCategory(t, "Home & Garden!")
	third := env.createCategory(t, "Home / Garden")

	assert.Equal(t, "home-garden", first.Slug)
	assert.Equal(t, "home-garden-1", second.Slug)
	assert.Equal(t, "home-garden-2", third.Slug)
	assert.True(t, first.IsActive)
	assert.Contains(t, env.publisher.topics, "ecommerce.category.created")
}

func TestCreateCategory_NameWithoutAlphanumericsFallsBack(t *testing.T) {
	env := newTestEnv(t)

	first := env.createCategory(t, "!!!")
	second := env.createCategory(t, "???")

	assert.Equal(t, "item", first.Slug)
	assert.Equal(t, "item-1", second.Slug)
}

func TestCreateCategory_SlugScopesAreIndependent(t *testing.T) {
	env := newTestEnv(t)

	p := env.createProduct(t, "Home & Garden", "SKU-1")
	c := env.createCategory(t, "Home & Garden")

	assert.Equal(t, "home-garden", p.Slug)
	assert.Equal(t, "home-garden", c.Slug)
}

func TestCreateCategory_ExplicitSlug(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, err := env.categories.CreateCategory(ctx, admin, &domain.CreateCategoryInput{Name: "Outdoor", Slug: strPtr("garden")})
	require.NoError(t, err)
	assert.Equal(t, "garden", c.Slug)

	_, err = env.categories.CreateCategory(ctx, admin, &domain.CreateCategoryInput{Name: "Garden", Slug: strPtr("garden")})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))

	_, err = env.categories.CreateCategory(ctx, admin, &domain.CreateCategoryInput{Name: "Bad", Slug: strPtr("Not A Slug")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateCategory_DuplicateName(t *testing.T) {
	env := newTestEnv(t)
	env.createCategory(t, "Garden")

	_, err := env.categories.CreateCategory(context.Background(), admin, &domain.CreateCategoryInput{Name: "Garden"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NotErrorIs(t, err, domain.ErrSlugConflict)
}

func TestCreateCategory_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.categories.CreateCategory(context.Background(), alice, &domain.CreateCategoryInput{Name: "Garden"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCreateCategory_RetriesLostSlugRace(t *testing.T) {
	var racing *racingUnitOfWork
	env := newTestEnvWith(t, func(inner repository.UnitOfWork) repository.UnitOfWork {
		racing = &racingUnitOfWork{inner: inner, conflicts: 2}
		return racing
	}, nil)

	c := env.createCategory(t, "Garden")

	assert.Equal(t, "garden", c.Slug)
	assert.Equal(t, 3, racing.attempts)
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.slugCollisions.WithLabelValues("category")))
}

func TestUpdateCategory_RenameKeepsSlug(t *testing.T) {
	env := newTestEnv(t)
	env.createCategory(t, "Garden")

	updated, err := env.categories.UpdateCategory(context.Background(), admin, "garden", &domain.UpdateCategoryInput{
		Name: strPtr("Garden & Patio"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Garden & Patio", updated.Name)
	assert.Equal(t, "garden", updated.Slug)
}

func TestUpdateCategory_SelfExclusion(t *testing.T) {
	env := newTestEnv(t)
	env.createCategory(t, "Garden")

	// Re-submitting the current slug must not collide with itself.
	updated, err := env.categories.UpdateCategory(context.Background(), admin, "garden", &domain.UpdateCategoryInput{
		Slug: strPtr("garden"),
	})
	require.NoError(t, err)
	assert.Equal(t, "garden", updated.Slug)
}

func TestUpdateCategory_RejectsCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.createCategory(t, "Home")
	child, err := env.categories.CreateCategory(ctx, admin, &domain.CreateCategoryInput{Name: "Garden", ParentID: &root.ID})
	require.NoError(t, err)

	_, err = env.categories.UpdateCategory(ctx, admin, "home", &domain.UpdateCategoryInput{ParentID: &child.ID})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = env.categories.UpdateCategory(ctx, admin, "home", &domain.UpdateCategoryInput{ParentID: &root.ID})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestGetCategory_InactiveHiddenFromPublic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.categories.CreateCategory(ctx, admin, &domain.CreateCategoryInput{Name: "Archive", IsActive: boolPtr(false)})
	require.NoError(t, err)

	_, err = env.categories.GetCategory(ctx, anon, "archive")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	c, err := env.categories.GetCategory(ctx, admin, "archive")
	require.NoError(t, err)
	assert.False(t, c.IsActive)

	list, err := env.categories.ListCategories(ctx, anon, domain.CategoryFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCategoryTree(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.createCategory(t, "Home")
	_, err := env.categories.CreateCategory(ctx, admin, &domain.CreateCategoryInput{Name: "Garden", ParentID: &root.ID})
	require.NoError(t, err)

	tree, err := env.categories.CategoryTree(ctx, anon, domain.CategoryFilter{})
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "home", tree[0].Slug)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "garden", tree[0].Children[0].Slug)
}

func TestDeleteCategory_CascadesAndDetachesProducts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.createCategory(t, "Home")
	child, err := env.categories.CreateCategory(ctx, admin, &domain.CreateCategoryInput{Name: "Garden", ParentID: &root.ID})
	require.NoError(t, err)

	p, err := env.products.CreateProduct(ctx, admin, &domain.CreateProductInput{
		Name:       "Rake",
		SKU:        "RAKE-1",
		CategoryID: &child.ID,
		Status:     domain.ProductStatusPublished,
	})
	require.NoError(t, err)

	require.NoError(t, env.categories.DeleteCategory(ctx, admin, "home"))

	_, err = env.categories.GetCategory(ctx, admin, "garden")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	stored, err := env.repos.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CategoryID)
	assert.Contains(t, env.publisher.topics, "ecommerce.category.deleted")
}
