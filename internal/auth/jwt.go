// Package auth implements access-token issuance and verification (HS256
// JWTs) and password hashing for the DriftBox services.
package auth

import (
	"errors"
	"time"

	"github.com/driftlabs/driftbox/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the authenticated principal: the registered claims plus
// the user id and email every service needs per request.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// GenerateToken signs an access token for the given principal.
func GenerateToken(userID, email string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
		Email:  email,
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies the signature and expiry of an access token and
// returns its claims. Expired tokens map to common.ErrTokenExpired,
// everything else invalid to common.ErrInvalidToken, so handlers can
// distinguish the two in their 401 responses.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
