package handler

import (
	"context"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/inboxwatch/internal/model"
	"github.com/edvin/inboxwatch/internal/session"
)

type mockAuth struct{ mock.Mock }

func (m *mockAuth) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) GetUser(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// mockAccess implements the account and conversation visibility interfaces.
type mockAccess struct{ mock.Mock }

func (m *mockAccess) VisibleAccounts(ctx context.Context, userID string) []model.Account {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Account)
}

func (m *mockAccess) VisibleConversations(ctx context.Context, userID string) []model.Conversation {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Conversation)
}

func (m *mockAccess) IsMember(ctx context.Context, userID, conversationID string) bool {
	args := m.Called(ctx, userID, conversationID)
	return args.Bool(0)
}

type mockChat struct{ mock.Mock }

func (m *mockChat) PostMessage(ctx context.Context, senderID, conversationID, body string) (*model.ChatMessage, error) {
	args := m.Called(ctx, senderID, conversationID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatMessage), args.Error(1)
}

func (m *mockChat) MarkRead(ctx context.Context, userID, conversationID string) error {
	return m.Called(ctx, userID, conversationID).Error(0)
}

func (m *mockChat) UnreadCount(ctx context.Context, userID, conversationID string) (int, error) {
	args := m.Called(ctx, userID, conversationID)
	return args.Int(0), args.Error(1)
}

type mockMailbox struct{ mock.Mock }

func (m *mockMailbox) UnreadCount(ctx context.Context, jmapAccountID string) (int, error) {
	args := m.Called(ctx, jmapAccountID)
	return args.Int(0), args.Error(1)
}

type mockDevices struct{ mock.Mock }

func (m *mockDevices) Register(ctx context.Context, d *model.Device) error {
	return m.Called(ctx, d).Error(0)
}

func (m *mockDevices) DeleteOwned(ctx context.Context, userID, token string) error {
	return m.Called(ctx, userID, token).Error(0)
}

type mockFanOut struct{ mock.Mock }

func (m *mockFanOut) FanOut(ctx context.Context, req model.PushRequest) (*model.DeliveryReport, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeliveryReport), args.Error(1)
}

type mockSessions struct{ mock.Mock }

func (m *mockSessions) Serve(ctx context.Context, conn *websocket.Conn, userID string, opts session.Options) error {
	return m.Called(ctx, conn, userID, opts).Error(0)
}
