package token

import (
	"errors"
	"testing"
	"time"

	"github.com/osvitahub/backend/internal/model"
)

func testUser() *model.User {
	return &model.User{
		ID:    "2f0c9f6e-7d5a-4f7e-9b8e-0a1b2c3d4e5f",
		Email: "a@x.com",
		Role:  model.RoleUser,
	}
}

func newTestIssuer(t *testing.T, cfg Config) *Issuer {
	t.Helper()
	if cfg.Secret == nil {
		cfg.Secret = []byte("test-secret")
	}
	issuer, err := New(cfg)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return issuer
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t, Config{TTL: time.Hour})
	user := testUser()

	signed, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID() != user.ID {
		t.Fatalf("subject mismatch: got %q want %q", claims.UserID(), user.ID)
	}
	if claims.Email != user.Email {
		t.Fatalf("email mismatch: got %q want %q", claims.Email, user.Email)
	}
	if claims.Role != user.Role {
		t.Fatalf("role mismatch: got %q want %q", claims.Role, user.Role)
	}
}

func TestVerifyExpired(t *testing.T) {
	issuer := newTestIssuer(t, Config{TTL: time.Millisecond})

	signed, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	_, err = issuer.Verify(signed)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyForeignSecret(t *testing.T) {
	issuer := newTestIssuer(t, Config{TTL: time.Hour})
	other := newTestIssuer(t, Config{Secret: []byte("different-secret"), TTL: time.Hour})

	signed, err := other.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = issuer.Verify(signed)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifyTampered(t *testing.T) {
	issuer := newTestIssuer(t, Config{TTL: time.Hour})

	signed, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tampered := signed[:len(signed)-2] + "xx"
	if _, err := issuer.Verify(tampered); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	issuer := newTestIssuer(t, Config{TTL: time.Hour})

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := issuer.Verify(raw); !errors.Is(err, ErrSignatureInvalid) {
			t.Fatalf("input %q: expected ErrSignatureInvalid, got %v", raw, err)
		}
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected constructor error for empty secret")
	}
}

func TestDefaultTTL(t *testing.T) {
	issuer := newTestIssuer(t, Config{})
	if issuer.TTL() != 24*time.Hour {
		t.Fatalf("expected 24h default TTL, got %v", issuer.TTL())
	}
}
