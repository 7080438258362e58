package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func testIdentity() Identity {
	return Identity{ID: "user-1", Email: "alice@example.com", Role: "user", RoleID: 2}
}

func TestSignAndVerifyAccess(t *testing.T) {
	codec, err := NewCodec(testSecret)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	token, err := codec.SignAccess(testIdentity(), 15*time.Minute)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}

	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Email != "alice@example.com" || claims.Role != "user" {
		t.Fatalf("identity claims not preserved: %+v", claims)
	}
	if claims.TokenType != KindAccess {
		t.Fatalf("unexpected kind: %s", claims.TokenType)
	}
	if claims.ID == "" {
		t.Fatal("expected token id")
	}
	if claims.Issuer != Issuer {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
}

func TestRefreshTokenCarriesSubjectOnly(t *testing.T) {
	codec, err := NewCodec(testSecret)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	token, err := codec.SignRefresh("user-1", 30*24*time.Hour)
	if err != nil {
		t.Fatalf("SignRefresh: %v", err)
	}
	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.TokenType != KindRefresh {
		t.Fatalf("unexpected kind: %s", claims.TokenType)
	}
	if claims.Email != "" || claims.Role != "" {
		t.Fatalf("refresh token must not carry identity claims: %+v", claims)
	}
}

func TestVerifyRejectsExpiredBySingleSecond(t *testing.T) {
	current := time.Now()
	codec, err := NewCodec(testSecret, WithCodecClock(func() time.Time { return current }))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	token, err := codec.SignAccess(testIdentity(), 15*time.Minute)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}

	current = current.Add(15*time.Minute + time.Second)
	if _, err := codec.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	codec, _ := NewCodec(testSecret)
	other, _ := NewCodec("another-secret")
	token, err := other.SignAccess(testIdentity(), 15*time.Minute)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	if _, err := codec.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	codec, _ := NewCodec(testSecret)
	token, err := codec.SignAccess(testIdentity(), 15*time.Minute)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	tampered := []byte(token)
	mid := len(tampered) / 2
	if tampered[mid] == 'a' {
		tampered[mid] = 'b'
	} else {
		tampered[mid] = 'a'
	}
	if _, err := codec.Verify(string(tampered)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered token, got %v", err)
	}
}

// Forged tokens signed with the right secret but the wrong issuer or
// audience tags must still be rejected.
func TestVerifyRejectsWrongIssuerOrAudience(t *testing.T) {
	codec, _ := NewCodec(testSecret)
	now := time.Now().UTC()

	cases := map[string]jwt.RegisteredClaims{
		"issuer": {
			Issuer:    "someone-else",
			Audience:  jwt.ClaimStrings{Audience},
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		"audience": {
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{"other-audience"},
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		"missing expiry": {
			Issuer:   Issuer,
			Audience: jwt.ClaimStrings{Audience},
			Subject:  "user-1",
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	for name, registered := range cases {
		forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			TokenType:        KindAccess,
			RegisteredClaims: registered,
		})
		signed, err := forged.SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("%s: sign forged token: %v", name, err)
		}
		if _, err := codec.Verify(signed); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestVerifyRejectsUnknownKind(t *testing.T) {
	codec, _ := NewCodec(testSecret)
	now := time.Now().UTC()
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TokenType: "session",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	signed, err := forged.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}
	if _, err := codec.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	codec, _ := NewCodec(testSecret)
	if _, err := codec.Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewCodecRequiresSecret(t *testing.T) {
	if _, err := NewCodec("   "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}
