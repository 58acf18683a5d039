package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewJWTVerifier("secret", time.Hour)

	token, err := v.Issue("6f1d2b3c-0000-4000-8000-000000000001", "founder@example.com", "member")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.Subject != "6f1d2b3c-0000-4000-8000-000000000001" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Email != "founder@example.com" || claims.Role != "member" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	v := NewJWTVerifier("secret", time.Hour)
	token, err := v.Issue("user", "user@example.com", "member")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, err := v.Verify(token + "x"); err == nil {
		t.Fatalf("expected error for tampered token")
	}

	other := NewJWTVerifier("other-secret", time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v := NewJWTVerifier("secret", time.Hour)

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := v.Verify(expired); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	v := NewJWTVerifier("secret", time.Hour)

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	_, err = v.Verify(signed)
	if err == nil {
		t.Fatalf("expected error for HS512 token")
	}
	if !strings.Contains(err.Error(), "verify session token") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifyRejectsTokenWithoutExpiry(t *testing.T) {
	v := NewJWTVerifier("secret", time.Hour)

	claims := &SessionClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user"}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := v.Verify(signed); err == nil {
		t.Fatalf("expected error for token without exp claim")
	}
}

func TestEmptySecretIsRejected(t *testing.T) {
	v := NewJWTVerifier("", time.Hour)

	if _, err := v.Issue("user", "user@example.com", "member"); err == nil {
		t.Fatalf("expected issue error with empty secret")
	}
	if _, err := v.Verify("whatever"); err == nil {
		t.Fatalf("expected verify error with empty secret")
	}
}
