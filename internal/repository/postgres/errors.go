package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes mapped to application errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Constraint and index names from the migrations.
const (
	constraintCategorySlug = "categories_slug_key"
	constraintCategoryName = "categories_name_key"
	constraintProductSlug  = "products_slug_key"
	constraintProductSKU   = "products_sku_key"
	constraintReviewOwner  = "product_reviews_product_user_key"
	constraintImageDefault = "product_images_one_default"
)

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// isForeignKeyViolation checks if the error is a foreign key violation (SQLSTATE 23503).
func isForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

// violates reports whether err is a unique violation of the named constraint.
// Errors that are not *pgconn.PgError are matched on their text.
func violates(err error, constraint string) bool {
	if !isUniqueViolation(err) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName == constraint
	}
	return strings.Contains(err.Error(), constraint)
}

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return strings.Contains(err.Error(), code)
}
