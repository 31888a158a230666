package mockserver

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/medika-client/internal/token"
)

// TokenManager issues and validates the HS256 session tokens the real
// backend would mint. The client never verifies signatures; this side does.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a manager issuing tokens with the given TTL.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 25
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

// Generate signs a fresh token for the account.
func (tm *TokenManager) Generate(acct *Account) (string, error) {
	now := time.Now()
	claims := &token.Claims{
		Role:   acct.Role,
		UserID: acct.ID,
		Name:   acct.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acct.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Parse validates signature and expiry and returns the claims.
func (tm *TokenManager) Parse(raw string) (*token.Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &token.Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*token.Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
