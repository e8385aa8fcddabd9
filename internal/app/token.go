/**
 * @description
 * This file implements bearer-token issuance and verification for the
 * ledger-service. Tokens are HS256-signed JWTs carrying the account id in the
 * `sub` claim and a bounded lifetime; the signing secret is server-held and
 * loaded from configuration.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: JWT signing and parsing.
 * - github.com/google/uuid: Account identifiers.
 */

package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers missing, malformed, tampered, and expired tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenManager issues and verifies the service's bearer tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a TokenManager. ttl values <= 0 fall back to one hour.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token identifying the given account.
func (m *TokenManager) Issue(accountID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token and returns the account id it carries.
func (m *TokenManager) Verify(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	subject, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	accountID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return accountID, nil
}
