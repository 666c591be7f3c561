package handler

import (
	"context"
	"net/http"

	"github.com/edvin/inboxwatch/internal/api/request"
	"github.com/edvin/inboxwatch/internal/api/response"
)

// Authenticator exchanges credentials for a session token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

type Auth struct {
	svc Authenticator
}

func NewAuth(svc Authenticator) *Auth {
	return &Auth{svc: svc}
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login verifies an email and password and returns a bearer token.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req request.Login
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, loginResponse{Token: token})
}
