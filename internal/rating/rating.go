// Package rating maintains the denormalized review aggregate stored on each
// product.
package rating

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Rating bounds accepted by Compute.
const (
	MinRating = 1
	MaxRating = 5
)

// Scale is the number of fractional digits kept for an average.
const Scale = 2

// ErrProductMissing is returned when an aggregate is written for a product
// that no longer exists. Reviews cascade with their product, so this signals
// an inconsistent store rather than a user error.
var ErrProductMissing = errors.New("rating aggregate target product missing")

// Summary is the aggregate derived from a product's approved reviews.
type Summary struct {
	Average decimal.NullDecimal `json:"average_rating"`
	Count   int                 `json:"review_count"`
}

// Empty is the aggregate of a product with no approved reviews.
func Empty() Summary {
	return Summary{}
}

// Compute returns the aggregate of the given approved ratings. The average is
// rounded to two fractional digits with round-half-even, so 3.625 becomes 3.62
// and 4.666… becomes 4.67.
//
// Ratings are validated before they reach the store; a value outside
// [MinRating, MaxRating] here is a programming error and panics.
func Compute(ratings []int) Summary {
	if len(ratings) == 0 {
		return Empty()
	}

	var sum int64
	for _, r := range ratings {
		if r < MinRating || r > MaxRating {
			panic(fmt.Sprintf("rating: value %d outside [%d, %d]", r, MinRating, MaxRating))
		}
		sum += int64(r)
	}

	// Mean = sum / n. The quotient is exact to well past the rounding digit for
	// any realistic review count, so rounding sees the true value.
	avg := decimal.NewFromInt(sum).
		DivRound(decimal.NewFromInt(int64(len(ratings))), 16).
		RoundBank(Scale)

	return Summary{
		Average: decimal.NullDecimal{Decimal: avg, Valid: true},
		Count:   len(ratings),
	}
}

// Equal reports whether two summaries hold the same aggregate.
func (s Summary) Equal(other Summary) bool {
	if s.Count != other.Count || s.Average.Valid != other.Average.Valid {
		return false
	}
	return !s.Average.Valid || s.Average.Decimal.Equal(other.Average.Decimal)
}

// String renders the summary for logs, e.g. "4.00/3" or "null/0".
func (s Summary) String() string {
	avg := "null"
	if s.Average.Valid {
		avg = s.Average.Decimal.StringFixed(Scale)
	}
	return fmt.Sprintf("%s/%d", avg, s.Count)
}

// Store is the persistence the aggregator needs. All three calls must run in
// the transaction that mutated the product's reviews.
type Store interface {
	// LockProduct takes a row lock on the product so concurrent review
	// mutations for it serialize. It returns ErrProductMissing when the
	// product does not exist.
	LockProduct(ctx context.Context, productID string) error

	// ApprovedRatings returns the ratings of the product's approved reviews.
	ApprovedRatings(ctx context.Context, productID string) ([]int, error)

	// WriteSummary stores the aggregate on the product and nothing else. It
	// returns ErrProductMissing when no row was updated.
	WriteSummary(ctx context.Context, productID string, s Summary) error
}

// Recompute rebuilds and stores the aggregate of productID from its current
// approved reviews.
func Recompute(ctx context.Context, store Store, productID string) (Summary, error) {
	if err := store.LockProduct(ctx, productID); err != nil {
		return Summary{}, fmt.Errorf("lock product %s: %w", productID, err)
	}

	ratings, err := store.ApprovedRatings(ctx, productID)
	if err != nil {
		return Summary{}, fmt.Errorf("load approved ratings for %s: %w", productID, err)
	}

	summary := Compute(ratings)
	if err := store.WriteSummary(ctx, productID, summary); err != nil {
		return Summary{}, fmt.Errorf("write rating summary for %s: %w", productID, err)
	}
	return summary, nil
}
