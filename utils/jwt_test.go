package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminToken_RoundTrip(t *testing.T) {
	token, err := GenerateAdminToken("s3cret", "moderator-1", time.Hour)
	require.NoError(t, err)

	claims, err := ParseAdminToken("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "moderator-1", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestParseAdminToken_Rejects(t *testing.T) {
	good, err := GenerateAdminToken("s3cret", "moderator-1", time.Hour)
	require.NoError(t, err)

	customer := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		Role:             "customer",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "someone", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	customerToken, err := customer.SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = ParseAdminToken("other", good)
	assert.Error(t, err, "wrong secret")
	_, err = ParseAdminToken("", good)
	assert.Error(t, err, "unconfigured secret")
	_, err = ParseAdminToken("s3cret", customerToken)
	assert.Error(t, err, "missing admin role")
	_, err = ParseAdminToken("s3cret", "not.a.token")
	assert.Error(t, err)

	_, err = GenerateAdminToken("", "moderator-1", time.Hour)
	assert.Error(t, err)
}
