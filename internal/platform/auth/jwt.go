package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/auth"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/config"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/logger"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// AdminAuthenticator checks the single administrator account and issues
// session tokens for it.
type AdminAuthenticator struct {
	username     string
	passwordHash string
	secret       string
	ttl          time.Duration
}

// NewAdminAuthenticator uses AdminPasswordHash, or hashes AdminPassword
// when only a plain development password is configured.
func NewAdminAuthenticator(cfg config.AuthConfig) (*AdminAuthenticator, error) {
	hash := cfg.AdminPasswordHash
	if hash == "" {
		if cfg.AdminPassword == "" {
			return nil, errors.New("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD must be set")
		}
		logger.Warn("Using plain ADMIN_PASSWORD; set ADMIN_PASSWORD_HASH in production")
		var err error
		if hash, err = auth.HashPassword(cfg.AdminPassword); err != nil {
			return nil, err
		}
	}
	return &AdminAuthenticator{
		username:     cfg.AdminUsername,
		passwordHash: hash,
		secret:       cfg.JWTSecret,
		ttl:          cfg.AccessTokenTTL,
	}, nil
}

func (a *AdminAuthenticator) Login(ctx context.Context, username, password string) (string, time.Duration, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK, err := auth.VerifyPassword(password, a.passwordHash)
	if err != nil {
		return "", 0, err
	}
	if !userOK || !passOK {
		logger.WarnContext(ctx, "Admin login failed", "username", username)
		return "", 0, ErrInvalidCredentials
	}

	token, err := auth.NewAccessToken(a.username, auth.RoleAdmin, a.secret, a.ttl)
	if err != nil {
		return "", 0, err
	}
	return token, a.ttl, nil
}

// Secret is the signing key shared with the admin middleware.
func (a *AdminAuthenticator) Secret() string { return a.secret }
