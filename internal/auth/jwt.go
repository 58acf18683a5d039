// Package auth verifies the HS256 session tokens minted by the identity
// provider. The enrichment API never issues tokens to callers; Issue exists
// for local tooling and tests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload the identity provider signs into a session
// token. Subject carries the user's UUID, which the access layer resolves
// against workspace membership.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// JWTVerifier checks session tokens against the shared HMAC secret.
type JWTVerifier struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTVerifier constructs a verifier for the given secret. The ttl only
// applies to tokens minted through Issue.
func NewJWTVerifier(secret string, ttl time.Duration) *JWTVerifier {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTVerifier{secret: []byte(secret), ttl: ttl}
}

// Verify checks the signature, algorithm and expiry of a session token and
// returns its claims.
func (v *JWTVerifier) Verify(token string) (*SessionClaims, error) {
	if len(v.secret) == 0 {
		return nil, errors.New("jwt secret is not configured")
	}

	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, v.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify session token: %w", err)
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok {
		return nil, errors.New("unexpected session claims shape")
	}
	return claims, nil
}

// Issue mints a session token the way the identity provider would. Used by
// tests and local tooling only.
func (v *JWTVerifier) Issue(subject, email, role string) (string, error) {
	if len(v.secret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}

	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
		Email: email,
		Role:  role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *JWTVerifier) key(*jwt.Token) (any, error) {
	return v.secret, nil
}
