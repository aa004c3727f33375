package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/middleware"
)

const testSecret = "test-secret-key-for-unit-tests"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(userID, role string) Claims {
	now := time.Now()
	return Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "user-service",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func newTestValidator(t *testing.T, issuer string) *Validator {
	t.Helper()
	v, err := NewValidator(testSecret, issuer, 0)
	require.NoError(t, err)
	return v
}

func TestNewValidator_RequiresSecret(t *testing.T) {
	_, err := NewValidator("", "", 0)
	assert.Error(t, err)
}

func TestValidate_AdminToken(t *testing.T) {
	v := newTestValidator(t, "user-service")

	claims, err := v.Validate(sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("user-1", "admin")))
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.True(t, claims.IsAdmin())
}

func TestValidate_SubjectFallback(t *testing.T) {
	v := newTestValidator(t, "")
	c := validClaims("", "customer")
	c.Subject = "user-2"

	claims, err := v.Validate(sign(t, jwt.SigningMethodHS256, []byte(testSecret), c))
	require.NoError(t, err)

	assert.Equal(t, "user-2", claims.UserID)
	assert.False(t, claims.IsAdmin())
}

func TestValidate_Rejections(t *testing.T) {
	v := newTestValidator(t, "user-service")

	expired := validClaims("user-1", "admin")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validClaims("user-1", "admin")
	noExpiry.ExpiresAt = nil

	wrongIssuer := validClaims("user-1", "admin")
	wrongIssuer.Issuer = "someone-else"

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other-secret"), validClaims("user-1", "admin"))},
		{"wrong algorithm", sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims("user-1", "admin"))},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{"no expiry", sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry)},
		{"wrong issuer", sign(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer)},
		{"no user", sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("", "admin"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Validate(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestValidate_SatisfiesTokenValidator(t *testing.T) {
	var _ middleware.TokenValidator = newTestValidator(t, "").Validate
}
