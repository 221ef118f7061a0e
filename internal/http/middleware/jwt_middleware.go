package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/http/response"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/auth"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/logger"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// RequireAdmin accepts only bearer tokens carrying the admin role.
func RequireAdmin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				response.Unauthorized(w, "invalid authorization header")
				return
			}
			claims, err := auth.Parse(strings.TrimPrefix(authz, "Bearer "), secret)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "invalid authorization token", response.CodeInvalidToken)
				return
			}
			if claims.Role != auth.RoleAdmin {
				response.Forbidden(w, "admin access required")
				return
			}
			ctx := context.WithValue(r.Context(), CtxClaims, claims)
			ctx = context.WithValue(ctx, logger.UserIDKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Claims(r *http.Request) *auth.Claims {
	v, _ := r.Context().Value(CtxClaims).(*auth.Claims)
	return v
}
