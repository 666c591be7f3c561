package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/inboxwatch/internal/api/response"
)

// AdminChecker reports whether a user holds the admin role.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// RequireAdmin rejects callers without the admin role. Roles are read from
// the store on every request so revocations apply before the token expires.
func RequireAdmin(checker AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				response.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ok, err := checker.IsAdmin(r.Context(), claims.Subject)
			if err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Str("user_id", claims.Subject).Msg("admin check failed")
				response.WriteError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !ok {
				response.WriteError(w, http.StatusForbidden, "admin role required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
