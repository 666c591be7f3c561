package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/inboxwatch/internal/api/request"
	"github.com/edvin/inboxwatch/internal/api/response"
	"github.com/edvin/inboxwatch/internal/model"
)

type DeviceRegistry interface {
	Register(ctx context.Context, d *model.Device) error
	DeleteOwned(ctx context.Context, userID, token string) error
}

type Device struct {
	svc DeviceRegistry
}

func NewDevice(svc DeviceRegistry) *Device {
	return &Device{svc: svc}
}

// Register records a push token for the caller. Re-registering a token moves
// it to the caller.
func (h *Device) Register(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req request.RegisterDevice
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	d := &model.Device{Token: req.Token, Platform: req.Platform, UserID: userID}
	if err := h.svc.Register(r.Context(), d); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, d)
}

func (h *Device) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	token, err := request.RequireID(chi.URLParam(r, "token"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.DeleteOwned(r.Context(), userID, token); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
