package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/database"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
)

// categoryColumns is the standard SELECT column list for categories.
const categoryColumns = `id, name, slug, description, parent_id, is_active, created_at, updated_at`

// CategoryRepository implements category persistence operations using PostgreSQL.
type CategoryRepository struct {
	pool database.DBTX
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool database.DBTX) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// Create inserts a new category into the database.
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, slug, description, parent_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Slug,
		c.Description,
		c.ParentID,
		c.IsActive,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return mapCategoryWriteError(err, c, "insert category")
	}

	return nil
}

// GetByID retrieves a category by its unique identifier.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE id = $1`, categoryColumns)
	return r.scanCategory(ctx, query, id)
}

// GetBySlug retrieves a category by its URL-friendly slug.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE slug = $1`, categoryColumns)
	return r.scanCategory(ctx, query, slug)
}

// Update modifies an existing category in the database.
func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE categories
		SET name = $1, slug = $2, description = $3, parent_id = $4, is_active = $5, updated_at = $6
		WHERE id = $7`

	ct, err := r.pool.Exec(ctx, query,
		c.Name,
		c.Slug,
		c.Description,
		c.ParentID,
		c.IsActive,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return mapCategoryWriteError(err, c, "update category")
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("category", c.ID)
	}

	return nil
}

// Delete removes a category by its ID. Descendants go with it through
// ON DELETE CASCADE and their products keep a NULL category.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("category", id)
	}

	return nil
}

// List returns categories matching the filter ordered by name.
func (r *CategoryRepository) List(ctx context.Context, filter domain.CategoryFilter) ([]domain.Category, error) {
	var (
		conditions []string
		args       []any
	)

	if !filter.IncludeInactive {
		conditions = append(conditions, "c.is_active = true")
	}
	if filter.ParentSlug != nil {
		args = append(args, *filter.ParentSlug)
		conditions = append(conditions, fmt.Sprintf(
			"c.parent_id = (SELECT id FROM categories WHERE slug = $%d)", len(args)))
	}
	if filter.HasProducts != nil {
		exists := "EXISTS (SELECT 1 FROM products p WHERE p.category_id = c.id)"
		if !*filter.HasProducts {
			exists = "NOT " + exists
		}
		conditions = append(conditions, exists)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.name, c.slug, c.description, c.parent_id, c.is_active, c.created_at, c.updated_at
		FROM categories c
		%s
		ORDER BY c.name`, whereClause)

	return r.queryCategories(ctx, query, args...)
}

// SlugsWithPrefix returns slugs equal to base or starting with "base-",
// excluding the category with excludeID.
func (r *CategoryRepository) SlugsWithPrefix(ctx context.Context, base, excludeID string) ([]string, error) {
	query := `
		SELECT slug FROM categories
		WHERE (slug = $1 OR slug LIKE $2) AND id::text <> $3`

	return querySlugs(ctx, r.pool, query, base, base+"-%", excludeID)
}

// ListMissingSlug returns categories whose slug is empty.
func (r *CategoryRepository) ListMissingSlug(ctx context.Context) ([]domain.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE slug = '' ORDER BY created_at`, categoryColumns)
	return r.queryCategories(ctx, query)
}

func (r *CategoryRepository) queryCategories(ctx context.Context, query string, args ...any) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := scanCategoryRow(rows, &c); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	return categories, nil
}

// scanCategory executes a query expected to return a single category row.
func (r *CategoryRepository) scanCategory(ctx context.Context, query string, args ...any) (*domain.Category, error) {
	var c domain.Category

	err := scanCategoryRow(r.pool.QueryRow(ctx, query, args...), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}

	return &c, nil
}

// scanCategoryRow scans a single row into a Category struct.
func scanCategoryRow(row pgx.Row, c *domain.Category) error {
	return row.Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.Description,
		&c.ParentID,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

func mapCategoryWriteError(err error, c *domain.Category, op string) error {
	switch {
	case violates(err, constraintCategorySlug):
		return fmt.Errorf("%w: %w", domain.ErrSlugConflict, apperrors.AlreadyExists("category", "slug", c.Slug))
	case violates(err, constraintCategoryName):
		return apperrors.AlreadyExists("category", "name", c.Name)
	case isUniqueViolation(err):
		return apperrors.AlreadyExists("category", "slug", c.Slug)
	case isForeignKeyViolation(err):
		return apperrors.InvalidInput("parent category does not exist")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// querySlugs runs a single-column slug query.
func querySlugs(ctx context.Context, db database.DBTX, query string, args ...any) ([]string, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query slugs: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan slug: %w", err)
		}
		slugs = append(slugs, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slug rows: %w", err)
	}

	return slugs, nil
}
