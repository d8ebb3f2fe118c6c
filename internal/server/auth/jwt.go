// Package auth holds the credential primitives of the server: password
// hashing and the signed session cookie.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/cadete/internal/common"
)

// Claims carries the opaque session token inside a signed cookie value. The
// token is only meaningful to the session store; exp mirrors the absolute
// session expiry.
type Claims struct {
	jwt.RegisteredClaims
	SessionToken string `json:"sid"`
}

// GenerateToken signs sessionToken with HS256, valid until expiresAt.
func GenerateToken(sessionToken string, secretKey []byte, issuedAt, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionToken: sessionToken,
	})

	return token.SignedString(secretKey)
}

// GetSessionTokenFromToken checks the signature and expiry of tokenString and
// returns the session token it carries.
func GetSessionTokenFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.SessionToken == "" {
		return "", common.ErrInvalidToken
	}

	return claims.SessionToken, nil
}
