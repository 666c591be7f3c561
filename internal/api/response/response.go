package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/edvin/inboxwatch/internal/core"
)

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteServiceError maps a service error onto an HTTP status.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrForbidden):
		WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, core.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
