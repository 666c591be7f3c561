package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/inboxwatch/internal/api/request"
	"github.com/edvin/inboxwatch/internal/api/response"
	"github.com/edvin/inboxwatch/internal/model"
)

type ConversationAccess interface {
	VisibleConversations(ctx context.Context, userID string) []model.Conversation
	IsMember(ctx context.Context, userID, conversationID string) bool
}

type ChatStore interface {
	PostMessage(ctx context.Context, senderID, conversationID, body string) (*model.ChatMessage, error)
	MarkRead(ctx context.Context, userID, conversationID string) error
}

type Conversation struct {
	access ConversationAccess
	chat   ChatStore
}

func NewConversation(access ConversationAccess, chat ChatStore) *Conversation {
	return &Conversation{access: access, chat: chat}
}

func (h *Conversation) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	convs := h.access.VisibleConversations(r.Context(), userID)
	response.WriteJSON(w, http.StatusOK, map[string]any{"items": convs})
}

// PostMessage appends a message to a conversation the caller belongs to.
// Other members are notified by push asynchronously.
func (h *Conversation) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID, convID, ok := h.member(w, r)
	if !ok {
		return
	}

	var req request.PostMessage
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.chat.PostMessage(r.Context(), userID, convID, req.Body)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, msg)
}

// MarkRead moves the caller's read marker to now.
func (h *Conversation) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, convID, ok := h.member(w, r)
	if !ok {
		return
	}

	if err := h.chat.MarkRead(r.Context(), userID, convID); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Conversation) member(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return "", "", false
	}

	convID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return "", "", false
	}

	if !h.access.IsMember(r.Context(), userID, convID) {
		response.WriteError(w, http.StatusForbidden, "not a member of this conversation")
		return "", "", false
	}
	return userID, convID, true
}
