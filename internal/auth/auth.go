// Package auth implements the peer-join token verification hook: an
// HS256 JWT carrying a replica-id claim, issued and checked by a
// shared-secret TokenManager.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/replimesh/replimesh/internal/id"
)

// Claims identifies the replica a peer-join token was issued for.
type Claims struct {
	ReplicaID string `json:"replica_id"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies peer-join tokens.
type TokenManager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// NewTokenManager returns a TokenManager signing with secretKey, issuing
// tokens valid for one hour.
func NewTokenManager(secretKey string) *TokenManager {
	return &TokenManager{secretKey: []byte(secretKey), tokenDuration: time.Hour}
}

// GenerateToken issues a token asserting replica.
func (tm *TokenManager) GenerateToken(replica id.ReplicaID) (string, error) {
	claims := Claims{
		ReplicaID: replica.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tm.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateToken verifies and parses a peer-join token.
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token")
	}
	return claims, nil
}
