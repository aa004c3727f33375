package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productRequest struct {
	Name         string           `json:"name" validate:"required,max=200"`
	Slug         string           `json:"slug" validate:"omitempty,slug,max=100"`
	Price        decimal.Decimal  `json:"price" validate:"required,gt=0"`
	ComparePrice *decimal.Decimal `json:"compare_price" validate:"omitempty,gt=0"`
	Quantity     int              `json:"quantity" validate:"gte=0"`
	Status       string           `json:"status" validate:"omitempty,oneof=draft published archived"`
}

type reviewRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

func validProduct() productRequest {
	return productRequest{Name: "Widget", Price: decimal.RequireFromString("9.99"), Quantity: 3}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(validProduct()))

	p := validProduct()
	p.Slug = "blue-widget-2"
	cp := decimal.RequireFromString("12.50")
	p.ComparePrice = &cp
	p.Status = "published"
	assert.NoError(t, Validate(p))
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	fields := fieldsOf(t, Validate(productRequest{Quantity: -1}))
	assert.Equal(t, "is required", fields["name"])
	assert.Equal(t, "is required", fields["price"])
	assert.Equal(t, "must be greater than or equal to 0", fields["quantity"])
}

func TestValidate_SlugTag(t *testing.T) {
	for _, bad := range []string{"Home Garden", "home--garden", "-home", "home_garden", "Ürün"} {
		p := validProduct()
		p.Slug = bad
		fields := fieldsOf(t, Validate(p))
		assert.Contains(t, fields["slug"], "lowercase", "slug %q", bad)
	}
}

func TestValidate_DecimalAmounts(t *testing.T) {
	p := validProduct()
	p.Price = decimal.RequireFromString("-1.00")
	assert.Contains(t, fieldsOf(t, Validate(p)), "price")

	p = validProduct()
	zero := decimal.Zero
	p.ComparePrice = &zero
	assert.Equal(t, "must be greater than 0", fieldsOf(t, Validate(p))["compare_price"])
}

func TestValidate_OneOf(t *testing.T) {
	p := validProduct()
	p.Status = "deleted"
	assert.Equal(t, "must be one of: draft published archived", fieldsOf(t, Validate(p))["status"])
}

func TestValidate_RatingRange(t *testing.T) {
	for _, r := range []int{1, 3, 5} {
		assert.NoError(t, Validate(reviewRequest{Rating: r}))
	}
	assert.Equal(t, "must be at most 5", fieldsOf(t, Validate(reviewRequest{Rating: 6}))["rating"])
	assert.Equal(t, "must be at least 1", fieldsOf(t, Validate(reviewRequest{Rating: -2}))["rating"])
	assert.Equal(t, "is required", fieldsOf(t, Validate(reviewRequest{}))["rating"])
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(reviewRequest{})
	require.Error(t, err)
	assert.Equal(t, "field 'rating' is required", err.Error())
}
