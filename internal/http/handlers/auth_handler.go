package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/domain"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/http/response"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/platform/auth"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/logger"
)

// Authenticator issues admin session tokens.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, time.Duration, error)
}

func (h *AdminHandler) login(w http.ResponseWriter, r *http.Request) {
	var in domain.AdminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil ||
		strings.TrimSpace(in.Username) == "" || in.Password == "" {
		response.BadRequest(w, "username and password are required")
		return
	}

	token, ttl, err := h.Auth.Login(r.Context(), strings.TrimSpace(in.Username), in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.Unauthorized(w, "invalid credentials")
			return
		}
		logger.ErrorContext(r.Context(), "Admin login failed", "error", err)
		response.InternalError(w, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, domain.AdminSessionResponse{
		AccessToken: token,
		ExpiresIn:   int64(ttl.Seconds()),
	})
}
