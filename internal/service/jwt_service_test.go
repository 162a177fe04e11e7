package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bar-bartender/internal/domain"
)

func testUser() domain.User {
	return domain.User{ID: 7, Username: "alice", Email: "a@x.com", CreatedAt: time.Now().UTC()}
}

func TestJWTService_GenerateParseAccess(t *testing.T) {
	svc := NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, NewMemoryRefreshTokenStore())

	pair, err := svc.GeneratePair(testUser())
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected tokens")
	}
	if pair.ExpiresIn != 900 {
		t.Fatalf("expected expires_in 900, got %d", pair.ExpiresIn)
	}

	claims, err := svc.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "alice" || claims.Email != "a@x.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := svc.ParseAccessToken(pair.RefreshToken); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("refresh token must not pass as access, got %v", err)
	}
}

func TestJWTService_RefreshRotation(t *testing.T) {
	svc := NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, NewMemoryRefreshTokenStore())

	pair, err := svc.GeneratePair(testUser())
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	refreshed, err := svc.RefreshPair(pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh pair: %v", err)
	}
	claims, err := svc.ParseAccessToken(refreshed.AccessToken)
	if err != nil || claims.UserID != 7 {
		t.Fatalf("expected refreshed access token for user 7, got %+v (%v)", claims, err)
	}

	if _, err := svc.RefreshPair(pair.RefreshToken); err == nil {
		t.Fatalf("expected old refresh token to be revoked")
	}
}

func TestJWTService_RevokeRefresh(t *testing.T) {
	svc := NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, NewMemoryRefreshTokenStore())
	pair, err := svc.GeneratePair(testUser())
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	if err := svc.RevokeRefresh(pair.RefreshToken); err != nil {
		t.Fatalf("revoke refresh: %v", err)
	}
	if _, err := svc.RefreshPair(pair.RefreshToken); err == nil {
		t.Fatalf("expected refresh to fail after revoke")
	}
}

func TestJWTService_RejectsEmptySecretAndUnsavedUser(t *testing.T) {
	svc := NewJWTServiceWithStore("", 15*time.Minute, 30*time.Minute, NewMemoryRefreshTokenStore())
	if _, err := svc.GeneratePair(testUser()); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid on empty secret, got %v", err)
	}

	svc = NewJWTService("secret", 0, 0)
	if _, err := svc.GeneratePair(domain.User{Email: "a@x.com"}); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for user without id, got %v", err)
	}
}

func TestJWTService_RejectsAccessTokenInRefreshFlow(t *testing.T) {
	svc := NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, NewMemoryRefreshTokenStore())
	pair, err := svc.GeneratePair(testUser())
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	if _, err := svc.RefreshPair(pair.AccessToken); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for access token used as refresh, got %v", err)
	}
}

func TestJWTService_RejectsForeignOrExpiredTokens(t *testing.T) {
	svc := NewJWTService("secret", 15*time.Minute, 30*time.Minute)
	now := time.Now().UTC()

	sign := func(c Claims) string {
		t.Helper()
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return signed
	}

	wrongIssuer := sign(Claims{
		UserID:    7,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "other-issuer",
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		},
	})
	if _, err := svc.ParseAccessToken(wrongIssuer); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for wrong issuer, got %v", err)
	}

	mismatched := sign(Claims{
		UserID:    7,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "bar-bartender",
			Subject:   "8",
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		},
	})
	if _, err := svc.ParseAccessToken(mismatched); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for subject mismatch, got %v", err)
	}

	expired := sign(Claims{
		UserID:    7,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "bar-bartender",
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		},
	})
	if _, err := svc.ParseAccessToken(expired); !errors.Is(err, ErrJWTExpired) {
		t.Fatalf("expected ErrJWTExpired, got %v", err)
	}
}
