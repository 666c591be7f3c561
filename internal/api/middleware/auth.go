package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/edvin/inboxwatch/internal/api/response"
	"github.com/edvin/inboxwatch/internal/model"
)

type contextKey string

const claimsKey contextKey = "claims"

// TokenValidator checks a session token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*model.JWTClaims, error)
}

// Auth returns middleware that validates JWT Bearer tokens and injects claims into context.
// Browsers cannot set headers on WebSocket upgrades, so upgrade requests may
// carry the token in the "token" query parameter instead.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := bearerToken(r)
			if token == "" {
				response.WriteError(w, http.StatusUnauthorized, msg)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if isUpgrade(r) {
			if t := r.URL.Query().Get("token"); t != "" {
				return t, ""
			}
		}
		return "", "missing authorization header"
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader || token == "" {
		return "", "invalid authorization format"
	}
	return token, ""
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *model.JWTClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims extracts JWT claims from the request context.
func GetClaims(ctx context.Context) *model.JWTClaims {
	claims, _ := ctx.Value(claimsKey).(*model.JWTClaims)
	return claims
}
