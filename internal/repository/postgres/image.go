package postgres

import (
	"context"
	"fmt"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/database"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
)

// ImageRepository implements product image persistence using PostgreSQL.
type ImageRepository struct {
	pool database.DBTX
}

// NewImageRepository creates a new PostgreSQL-backed image repository.
func NewImageRepository(pool database.DBTX) *ImageRepository {
	return &ImageRepository{pool: pool}
}

// Add inserts an image for a product.
func (r *ImageRepository) Add(ctx context.Context, img *domain.ProductImage) error {
	query := `
		INSERT INTO product_images (id, product_id, url, alt_text, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		img.ID,
		img.ProductID,
		img.URL,
		img.AltText,
		img.IsDefault,
		img.CreatedAt,
	)
	if err != nil {
		switch {
		case violates(err, constraintImageDefault):
			return apperrors.Conflict("product already has a default image")
		case isForeignKeyViolation(err):
			return apperrors.NotFound("product", img.ProductID)
		}
		return fmt.Errorf("insert product image: %w", err)
	}

	return nil
}

// ClearDefault unsets the default flag on all images of a product.
func (r *ImageRepository) ClearDefault(ctx context.Context, productID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE product_images SET is_default = false WHERE product_id = $1 AND is_default`,
		productID,
	)
	if err != nil {
		return fmt.Errorf("clear default image: %w", err)
	}
	return nil
}

// ListByProduct returns the images of a product, default first, then oldest first.
func (r *ImageRepository) ListByProduct(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	query := `
		SELECT id, product_id, url, alt_text, is_default, created_at
		FROM product_images
		WHERE product_id = $1
		ORDER BY is_default DESC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	defer rows.Close()

	images := []domain.ProductImage{}
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(
			&img.ID,
			&img.ProductID,
			&img.URL,
			&img.AltText,
			&img.IsDefault,
			&img.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product image row: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product image rows: %w", err)
	}

	return images, nil
}

// Delete removes an image that belongs to the given product.
func (r *ImageRepository) Delete(ctx context.Context, productID, imageID string) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM product_images WHERE id = $1 AND product_id = $2`,
		imageID, productID,
	)
	if err != nil {
		return fmt.Errorf("delete product image: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product image", imageID)
	}

	return nil
}
