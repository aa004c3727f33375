package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/rating"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/database"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
)

// productColumns is the standard SELECT column list for products.
const productColumns = `id, name, slug, description, price, compare_price, cost_price, sku, barcode,
	quantity, category_id, status, featured, created_by, average_rating, review_count, created_at, updated_at`

// orderClauses maps an ordering parameter to its ORDER BY clause. The id
// tiebreaker keeps pagination stable.
var orderClauses = map[string]string{
	"price":           "price ASC, id",
	"-price":          "price DESC, id",
	"created_at":      "created_at ASC, id",
	"-created_at":     "created_at DESC, id",
	"name":            "name ASC, id",
	"-name":           "name DESC, id",
	"average_rating":  "average_rating ASC NULLS LAST, id",
	"-average_rating": "average_rating DESC NULLS LAST, id",
}

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product into the database. The rating aggregate
// starts empty.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, name, slug, description, price, compare_price, cost_price, sku, barcode,
			quantity, category_id, status, featured, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Slug,
		p.Description,
		p.Price,
		p.ComparePrice,
		p.CostPrice,
		p.SKU,
		p.Barcode,
		p.Quantity,
		p.CategoryID,
		p.Status,
		p.Featured,
		p.CreatedBy,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return mapProductWriteError(err, p, "insert product")
	}

	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	return r.scanProduct(ctx, "GetProductByID", query, id)
}

// GetBySlug retrieves a product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE slug = $1`, productColumns)
	return r.scanProduct(ctx, "GetProductBySlug", query, slug)
}

// List returns products matching the given filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) (_ []domain.Product, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.CategorySlug != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = (SELECT id FROM categories WHERE slug = $%d)", argIndex))
		args = append(args, *filter.CategorySlug)
		argIndex++
	}

	if filter.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("featured = $%d", argIndex))
		args = append(args, *filter.Featured)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.Search != nil {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d OR sku ILIKE $%d)", argIndex, argIndex, argIndex))
		args = append(args, "%"+escapeLike(*filter.Search)+"%")
		argIndex++
	}

	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}

	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}

	if filter.InStock != nil {
		if *filter.InStock {
			conditions = append(conditions, "quantity > 0")
		} else {
			conditions = append(conditions, "quantity = 0")
		}
	}

	if filter.OnSale {
		conditions = append(conditions, "compare_price > price")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy, ok := orderClauses[filter.Ordering]
	if !ok {
		orderBy = orderClauses[domain.OrderingNewest]
	}

	// Use count(*) OVER() for total count in a single query.
	query := fmt.Sprintf(`
		SELECT %s,
			   count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, orderBy, argIndex, argIndex+1,
	)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, max(filter.Offset, 0))

	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   = []domain.Product{}
		totalCount int
	)

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(append(productFields(&p), &totalCount)...); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, totalCount, nil
}

// Update modifies an existing product in the database. The rating
// aggregate columns are left alone.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, price = $4, compare_price = $5, cost_price = $6,
		    sku = $7, barcode = $8, quantity = $9, category_id = $10, status = $11, featured = $12,
		    updated_at = $13
		WHERE id = $14`

	ct, err := r.pool.Exec(ctx, query,
		p.Name,
		p.Slug,
		p.Description,
		p.Price,
		p.ComparePrice,
		p.CostPrice,
		p.SKU,
		p.Barcode,
		p.Quantity,
		p.CategoryID,
		p.Status,
		p.Featured,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return mapProductWriteError(err, p, "update product")
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM products WHERE id = $1`

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// SlugsWithPrefix returns slugs equal to base or starting with "base-",
// excluding the product with excludeID.
func (r *ProductRepository) SlugsWithPrefix(ctx context.Context, base, excludeID string) ([]string, error) {
	query := `
		SELECT slug FROM products
		WHERE (slug = $1 OR slug LIKE $2) AND id::text <> $3`

	return querySlugs(ctx, r.pool, query, base, base+"-%", excludeID)
}

// ListMissingSlug returns products whose slug is empty.
func (r *ProductRepository) ListMissingSlug(ctx context.Context) ([]domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE slug = '' ORDER BY created_at`, productColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products missing slug: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(productFields(&p)...); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// ListIDs returns the IDs of every product.
func (r *ProductRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list product ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product ids: %w", err)
	}

	return ids, nil
}

// LockForUpdate locks the product row until the surrounding transaction ends.
func (r *ProductRepository) LockForUpdate(ctx context.Context, id string) error {
	var locked string
	err := r.pool.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rating.ErrProductMissing
		}
		return fmt.Errorf("lock product: %w", err)
	}
	return nil
}

// UpdateRating writes the rating aggregate. It touches no other column, so
// updated_at keeps reflecting the last catalog edit.
func (r *ProductRepository) UpdateRating(ctx context.Context, id string, summary rating.Summary) (err error) {
	query := `UPDATE products SET average_rating = $1, review_count = $2 WHERE id = $3`

	ctx, end := database.TraceQuery(ctx, "UpdateProductRating", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, summary.Average, summary.Count, id)
	if err != nil {
		return fmt.Errorf("update product rating: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return rating.ErrProductMissing
	}

	return nil
}

// ClearCreator nulls created_by for every product created by userID.
func (r *ProductRepository) ClearCreator(ctx context.Context, userID string) (int64, error) {
	ct, err := r.pool.Exec(ctx, `UPDATE products SET created_by = NULL WHERE created_by = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear product creator: %w", err)
	}
	return ct.RowsAffected(), nil
}

// scanProduct is a helper that executes a query expected to return a single product row.
func (r *ProductRepository) scanProduct(ctx context.Context, op, query string, args ...any) (_ *domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var p domain.Product
	err = r.pool.QueryRow(ctx, query, args...).Scan(productFields(&p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	return &p, nil
}

// productFields returns scan destinations in productColumns order.
func productFields(p *domain.Product) []any {
	return []any{
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.ComparePrice,
		&p.CostPrice,
		&p.SKU,
		&p.Barcode,
		&p.Quantity,
		&p.CategoryID,
		&p.Status,
		&p.Featured,
		&p.CreatedBy,
		&p.AverageRating,
		&p.ReviewCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
}

func mapProductWriteError(err error, p *domain.Product, op string) error {
	switch {
	case violates(err, constraintProductSlug):
		return fmt.Errorf("%w: %w", domain.ErrSlugConflict, apperrors.AlreadyExists("product", "slug", p.Slug))
	case violates(err, constraintProductSKU):
		return apperrors.AlreadyExists("product", "sku", p.SKU)
	case isUniqueViolation(err):
		return apperrors.AlreadyExists("product", "slug", p.Slug)
	case isForeignKeyViolation(err):
		return apperrors.InvalidInput("category does not exist")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// escapeLike escapes LIKE wildcards in user-supplied search text.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
