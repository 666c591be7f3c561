package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/inboxwatch/internal/core"
	"github.com/edvin/inboxwatch/internal/model"
)

func TestConversationList(t *testing.T) {
	access := new(mockAccess)
	access.On("VisibleConversations", mock.Anything, validUser).Return([]model.Conversation{{ID: validConv, Title: "Support"}})
	h := NewConversation(access, new(mockChat))

	rec := httptest.NewRecorder()
	h.List(rec, withUser(newRequest(http.MethodGet, "/api/v1/conversations", nil), validUser))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items []model.Conversation `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Support", body.Items[0].Title)
}

func TestConversationPostMessage_Success(t *testing.T) {
	access := new(mockAccess)
	access.On("IsMember", mock.Anything, validUser, validConv).Return(true)
	chat := new(mockChat)
	chat.On("PostMessage", mock.Anything, validUser, validConv, "hello").
		Return(&model.ChatMessage{ID: "m1", ConversationID: validConv, SenderID: validUser, Body: "hello"}, nil)
	h := NewConversation(access, chat)

	r := newRequest(http.MethodPost, "/api/v1/conversations/"+validConv+"/messages", map[string]string{"body": "hello"})
	r = withUser(withChiURLParam(r, "id", validConv), validUser)
	rec := httptest.NewRecorder()
	h.PostMessage(rec, r)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"m1"`)
	chat.AssertExpectations(t)
}

func TestConversationPostMessage_NotMember(t *testing.T) {
	access := new(mockAccess)
	access.On("IsMember", mock.Anything, validUser, validConv).Return(false)
	chat := new(mockChat)
	h := NewConversation(access, chat)

	r := newRequest(http.MethodPost, "/api/v1/conversations/"+validConv+"/messages", map[string]string{"body": "hello"})
	r = withUser(withChiURLParam(r, "id", validConv), validUser)
	rec := httptest.NewRecorder()
	h.PostMessage(rec, r)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	chat.AssertNotCalled(t, "PostMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConversationPostMessage_EmptyID(t *testing.T) {
	h := NewConversation(new(mockAccess), new(mockChat))

	r := newRequest(http.MethodPost, "/api/v1/conversations//messages", map[string]string{"body": "hello"})
	r = withUser(withChiURLParam(r, "id", ""), validUser)
	rec := httptest.NewRecorder()
	h.PostMessage(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "missing required ID")
}

func TestConversationPostMessage_EmptyBody(t *testing.T) {
	access := new(mockAccess)
	access.On("IsMember", mock.Anything, validUser, validConv).Return(true)
	h := NewConversation(access, new(mockChat))

	r := newRequest(http.MethodPost, "/api/v1/conversations/"+validConv+"/messages", map[string]string{"body": ""})
	r = withUser(withChiURLParam(r, "id", validConv), validUser)
	rec := httptest.NewRecorder()
	h.PostMessage(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "validation error")
}

func TestConversationMarkRead(t *testing.T) {
	access := new(mockAccess)
	access.On("IsMember", mock.Anything, validUser, validConv).Return(true)
	chat := new(mockChat)
	chat.On("MarkRead", mock.Anything, validUser, validConv).Return(nil)
	h := NewConversation(access, chat)

	r := withUser(withChiURLParam(newRequest(http.MethodPost, "/", nil), "id", validConv), validUser)
	rec := httptest.NewRecorder()
	h.MarkRead(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	chat.AssertExpectations(t)
}

func TestConversationMarkRead_NotFound(t *testing.T) {
	access := new(mockAccess)
	access.On("IsMember", mock.Anything, validUser, validConv).Return(true)
	chat := new(mockChat)
	chat.On("MarkRead", mock.Anything, validUser, validConv).Return(fmt.Errorf("mark read: %w", core.ErrNotFound))
	h := NewConversation(access, chat)

	r := withUser(withChiURLParam(newRequest(http.MethodPost, "/", nil), "id", validConv), validUser)
	rec := httptest.NewRecorder()
	h.MarkRead(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
