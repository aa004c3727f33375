package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/database"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/pagination"
)

const reviewColumns = `id, product_id, user_id, rating, title, content, is_approved, created_at, updated_at`

// ReviewRepository implements review persistence operations using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new product review into the database.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO product_reviews (id, product_id, user_id, rating, title, content, is_approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		review.ID,
		review.ProductID,
		review.UserID,
		review.Rating,
		review.Title,
		review.Content,
		review.IsApproved,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		switch {
		case violates(err, constraintReviewOwner), isUniqueViolation(err):
			return apperrors.AlreadyExists("review", "user", review.UserID)
		case isForeignKeyViolation(err):
			return apperrors.NotFound("product", review.ProductID)
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM product_reviews WHERE id = $1`, reviewColumns)

	var rv domain.Review
	if err := scanReviewRow(r.pool.QueryRow(ctx, query, id), &rv); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return &rv, nil
}

// Update modifies the rating, text and approval of a review.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	review.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE product_reviews
		SET rating = $1, title = $2, content = $3, is_approved = $4, updated_at = $5
		WHERE id = $6`

	ct, err := r.pool.Exec(ctx, query,
		review.Rating,
		review.Title,
		review.Content,
		review.IsApproved,
		review.UpdatedAt,
		review.ID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", review.ID)
	}

	return nil
}

// Delete removes a review by its ID.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM product_reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}

	return nil
}

// ListApproved returns paginated approved reviews for a product along with the total count.
func (r *ReviewRepository) ListApproved(ctx context.Context, productID string, params pagination.Params) ([]domain.Review, int, error) {
	query := fmt.Sprintf(`
		SELECT %s,
		       count(*) OVER() AS total_count
		FROM product_reviews
		WHERE product_id = $1 AND is_approved = true
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, reviewColumns)

	rows, err := r.pool.Query(ctx, query, productID, params.PerPage, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    = []domain.Review{}
		totalCount int
	)

	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(append(reviewFields(&rv), &totalCount)...); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, totalCount, nil
}

// ApprovedRatings returns the ratings of the approved reviews of a product.
func (r *ReviewRepository) ApprovedRatings(ctx context.Context, productID string) (_ []int, err error) {
	query := `SELECT rating FROM product_reviews WHERE product_id = $1 AND is_approved = true`

	ctx, end := database.TraceQuery(ctx, "ApprovedRatings", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("query approved ratings: %w", err)
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}

	return ratings, nil
}

// DeleteByUser removes all reviews by userID and returns the distinct
// product IDs they belonged to.
func (r *ReviewRepository) DeleteByUser(ctx context.Context, userID string) ([]string, error) {
	query := `
		WITH deleted AS (
			DELETE FROM product_reviews WHERE user_id = $1 RETURNING product_id
		)
		SELECT DISTINCT product_id FROM deleted ORDER BY product_id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("delete reviews by user: %w", err)
	}
	defer rows.Close()

	var productIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		productIDs = append(productIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted reviews: %w", err)
	}

	return productIDs, nil
}

func scanReviewRow(row pgx.Row, rv *domain.Review) error {
	return row.Scan(reviewFields(rv)...)
}

func reviewFields(rv *domain.Review) []any {
	return []any{
		&rv.ID,
		&rv.ProductID,
		&rv.UserID,
		&rv.Rating,
		&rv.Title,
		&rv.Content,
		&rv.IsApproved,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	}
}
