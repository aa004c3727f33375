package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
)

var categoryColumnNames = []string{"id", "name", "slug", "description", "parent_id", "is_active", "created_at", "updated_at"}

func sampleCategory() domain.Category {
	return domain.Category{
		ID:          "cat-1",
		Name:        "Home & Garden",
		Slug:        "home-garden",
		Description: "Everything for the house",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func categoryRow(c domain.Category) []any {
	return []any{c.ID, c.Name, c.Slug, c.Description, c.ParentID, c.IsActive, c.CreatedAt, c.UpdatedAt}
}

func TestCategoryRepository_Create_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	c := sampleCategory()
	mock.ExpectExec("INSERT INTO categories").
		WithArgs(c.ID, c.Name, c.Slug, c.Description, c.ParentID, c.IsActive, c.CreatedAt, c.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), &c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_Create_SlugConflict(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	c := sampleCategory()
	mock.ExpectExec("INSERT INTO categories").
		WithArgs(c.ID, c.Name, c.Slug, c.Description, c.ParentID, c.IsActive, c.CreatedAt, c.UpdatedAt).
		WillReturnError(uniqueViolation(constraintCategorySlug))

	err := repo.Create(context.Background(), &c)
	assert.ErrorIs(t, err, domain.ErrSlugConflict)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestCategoryRepository_Create_NameConflict(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	c := sampleCategory()
	mock.ExpectExec("INSERT INTO categories").
		WithArgs(c.ID, c.Name, c.Slug, c.Description, c.ParentID, c.IsActive, c.CreatedAt, c.UpdatedAt).
		WillReturnError(uniqueViolation(constraintCategoryName))

	err := repo.Create(context.Background(), &c)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NotErrorIs(t, err, domain.ErrSlugConflict)
}

func TestCategoryRepository_GetBySlug(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	c := sampleCategory()
	c.ParentID = strPtr("cat-root")
	mock.ExpectQuery("SELECT .+ FROM categories WHERE slug").
		WithArgs("home-garden").
		WillReturnRows(pgxmock.NewRows(categoryColumnNames).AddRow(categoryRow(c)...))
	mock.ExpectQuery("SELECT .+ FROM categories WHERE slug").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetBySlug(context.Background(), "home-garden")
	require.NoError(t, err)
	assert.Equal(t, "Home & Garden", got.Name)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, "cat-root", *got.ParentID)

	_, err = repo.GetBySlug(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_List_ActiveOnlyByDefault(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	c := sampleCategory()
	mock.ExpectQuery(`FROM categories c WHERE c.is_active = true ORDER BY c.name`).
		WillReturnRows(pgxmock.NewRows(categoryColumnNames).AddRow(categoryRow(c)...))

	cats, err := repo.List(context.Background(), domain.CategoryFilter{})
	require.NoError(t, err)
	assert.Len(t, cats, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_List_ParentAndHasProducts(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	mock.ExpectQuery(`c.parent_id = \(SELECT id FROM categories WHERE slug = \$1\) AND NOT EXISTS`).
		WithArgs("home-garden").
		WillReturnRows(pgxmock.NewRows(categoryColumnNames))

	cats, err := repo.List(context.Background(), domain.CategoryFilter{
		ParentSlug:  strPtr("home-garden"),
		HasProducts: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Empty(t, cats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	c := sampleCategory()
	mock.ExpectExec("UPDATE categories").
		WithArgs(c.Name, c.Slug, c.Description, c.ParentID, c.IsActive, pgxmock.AnyArg(), c.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), &c)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_Delete(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	mock.ExpectExec("DELETE FROM categories WHERE id").
		WithArgs("cat-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repo.Delete(context.Background(), "cat-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_SlugsWithPrefix(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	mock.ExpectQuery("SELECT slug FROM categories").
		WithArgs("home-garden", "home-garden-%", "").
		WillReturnRows(pgxmock.NewRows([]string{"slug"}).AddRow("home-garden"))

	slugs, err := repo.SlugsWithPrefix(context.Background(), "home-garden", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"home-garden"}, slugs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_ListMissingSlug(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	c := sampleCategory()
	c.Slug = ""
	mock.ExpectQuery(`FROM categories WHERE slug = '' ORDER BY created_at`).
		WillReturnRows(pgxmock.NewRows(categoryColumnNames).AddRow(categoryRow(c)...))

	cats, err := repo.ListMissingSlug(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Empty(t, cats[0].Slug)
}
