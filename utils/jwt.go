package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the only role accepted by the moderation endpoints.
const RoleAdmin = "admin"

// AdminClaims identifies a staff member allowed to moderate reviews.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAdminToken issues an HS256 token for subject valid for duration.
func GenerateAdminToken(secret, subject string, duration time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("admin jwt secret not configured")
	}
	claims := AdminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAdminToken validates tokenStr and returns its claims.
func ParseAdminToken(secret, tokenStr string) (*AdminClaims, error) {
	if secret == "" {
		return nil, errors.New("admin jwt secret not configured")
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*AdminClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Role != RoleAdmin {
		return nil, errors.New("token lacks admin role")
	}
	return claims, nil
}
