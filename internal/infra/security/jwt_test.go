package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestTokenVerifier_Verify(t *testing.T) {
	base := time.Date(2026, 3, 13, 10, 0, 0, 0, time.UTC)
	verifier, err := NewTokenVerifier("test-secret", "reading-service")
	if err != nil {
		t.Fatalf("NewTokenVerifier: %v", err)
	}
	verifier.WithClock(func() time.Time { return base })

	token := signToken(t, "test-secret", tokenClaims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "reading-service",
			ExpiresAt: jwt.NewNumericDate(base.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(base),
		},
	})

	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.UserID != "user-1" || !claims.Admin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenVerifier_Rejections(t *testing.T) {
	base := time.Date(2026, 3, 13, 10, 0, 0, 0, time.UTC)
	verifier, err := NewTokenVerifier("test-secret", "reading-service")
	if err != nil {
		t.Fatalf("NewTokenVerifier: %v", err)
	}
	verifier.WithClock(func() time.Time { return base })

	expired := signToken(t, "test-secret", jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "reading-service",
		ExpiresAt: jwt.NewNumericDate(base.Add(-time.Minute)),
	})
	if _, err := verifier.Verify(expired); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}

	wrongKey := signToken(t, "other-secret", jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "reading-service",
		ExpiresAt: jwt.NewNumericDate(base.Add(time.Hour)),
	})
	if _, err := verifier.Verify(wrongKey); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for bad signature, got %v", err)
	}

	wrongIssuer := signToken(t, "test-secret", jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(base.Add(time.Hour)),
	})
	if _, err := verifier.Verify(wrongIssuer); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for issuer mismatch, got %v", err)
	}

	noSubject := signToken(t, "test-secret", jwt.RegisteredClaims{
		Issuer:    "reading-service",
		ExpiresAt: jwt.NewNumericDate(base.Add(time.Hour)),
	})
	if _, err := verifier.Verify(noSubject); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for missing subject, got %v", err)
	}

	if _, err := NewTokenVerifier("  ", ""); err == nil {
		t.Fatalf("expected error for blank secret")
	}
}
