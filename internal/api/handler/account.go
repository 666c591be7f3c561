package handler

import (
	"net/http"

	"github.com/edvin/inboxwatch/internal/api/response"
	"github.com/edvin/inboxwatch/internal/poller"
)

type Account struct {
	access poller.AccountLister
}

func NewAccount(access poller.AccountLister) *Account {
	return &Account{access: access}
}

// List returns the mailbox accounts the caller may observe. Lookup failures
// yield an empty list.
func (h *Account) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	accounts := h.access.VisibleAccounts(r.Context(), userID)
	response.WriteJSON(w, http.StatusOK, map[string]any{"items": accounts})
}
