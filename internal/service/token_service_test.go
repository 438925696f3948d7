package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-billing/internal/models"
	appErrors "github.com/noah-isme/sma-adp-billing/pkg/errors"
)

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims *models.JWTClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func bursarClaims(expiresIn time.Duration) *models.JWTClaims {
	now := time.Now()
	return &models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleBursar,
		Email:  "bursar@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "identity",
			Audience:  jwt.ClaimStrings{"billing"},
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
}

func TestTokenServiceValidateToken(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "identity", Audience: []string{"billing"}}, nil)

	claims, err := svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, "secret", bursarClaims(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleBursar, claims.Role)
}

func TestTokenServiceRejectsInvalidTokens(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "identity", Audience: []string{"billing"}}, nil)

	expired, err := svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, "secret", bursarClaims(-time.Minute)))
	assert.Nil(t, expired)
	assert.ErrorIs(t, err, appErrors.ErrTokenExpired)

	_, err = svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, "other", bursarClaims(time.Hour)))
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken(signToken(t, jwt.SigningMethodHS512, "secret", bursarClaims(time.Hour)))
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	wrongAudience := bursarClaims(time.Hour)
	wrongAudience.Audience = jwt.ClaimStrings{"reports"}
	_, err = svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, "secret", wrongAudience))
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
