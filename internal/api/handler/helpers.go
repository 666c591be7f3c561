package handler

import (
	"net/http"

	mw "github.com/edvin/inboxwatch/internal/api/middleware"
	"github.com/edvin/inboxwatch/internal/api/response"
)

// requireUser returns the authenticated user's ID, writing a 401 when the
// request carries no claims.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := mw.GetClaims(r.Context())
	if claims == nil || claims.Subject == "" {
		response.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return claims.Subject, true
}
