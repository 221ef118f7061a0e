package auth

import (
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("admin", RoleAdmin, "secret", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := Parse(tok, "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Sub != "admin" || claims.Role != RoleAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := Parse(tok, "other-secret"); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestExpiredToken(t *testing.T) {
	tok, _ := NewAccessToken("admin", RoleAdmin, "secret", -time.Minute)
	if _, err := Parse(tok, "secret"); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("court-pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ok, err := VerifyPassword("court-pass", hash)
	if err != nil || !ok {
		t.Fatalf("expected password to match, got %v (%v)", ok, err)
	}
	ok, _ = VerifyPassword("wrong", hash)
	if ok {
		t.Fatal("expected mismatch")
	}
}
