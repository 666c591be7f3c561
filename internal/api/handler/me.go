package handler

import (
	"context"
	"net/http"

	"github.com/edvin/inboxwatch/internal/api/response"
	"github.com/edvin/inboxwatch/internal/model"
)

type UserGetter interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

type Me struct {
	users UserGetter
}

func NewMe(users UserGetter) *Me {
	return &Me{users: users}
}

// Get returns the authenticated user with their roles.
func (h *Me) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, user)
}
