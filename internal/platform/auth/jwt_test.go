package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/auth"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/config"
)

func TestAdminLogin(t *testing.T) {
	a, err := NewAdminAuthenticator(config.AuthConfig{
		JWTSecret:      "secret",
		AccessTokenTTL: time.Hour,
		AdminUsername:  "admin",
		AdminPassword:  "court-pass",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, ttl, err := a.Login(context.Background(), "admin", "court-pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
	claims, err := auth.Parse(token, a.Secret())
	if err != nil || claims.Role != auth.RoleAdmin {
		t.Fatalf("expected admin claims, got %+v (%v)", claims, err)
	}

	if _, _, err := a.Login(context.Background(), "admin", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := a.Login(context.Background(), "root", "court-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAdminAuthenticatorRequiresPassword(t *testing.T) {
	if _, err := NewAdminAuthenticator(config.AuthConfig{AdminUsername: "admin"}); err == nil {
		t.Fatal("expected error without a password")
	}
}
