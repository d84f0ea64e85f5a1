package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hongminglow/custody-be/internal/apperr"
)

// clientScope marks tokens that authorize a tenant's self-service endpoints.
const clientScope = "client"

// Claims binds a session token to one client.
type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// TokenManager issues and verifies signed session tokens for tenants.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for clientID that expires after the configured TTL.
func (t *TokenManager) Issue(clientID string) (string, error) {
	if clientID == "" {
		return "", errors.New("issue token: empty client id")
	}
	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Scope: clientScope,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks signature, issuer and expiry and returns the client id.
// Every failure is reported as apperr.ErrTokenInvalid.
func (t *TokenManager) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrTokenInvalid, err)
	}
	if !token.Valid || claims.Scope != clientScope || claims.Subject == "" {
		return "", apperr.ErrTokenInvalid
	}
	return claims.Subject, nil
}
