package poller

import (
	"context"

	"github.com/edvin/inboxwatch/internal/model"
)

// Source names.
const (
	SourceMail = "mail"
	SourceChat = "chat"
)

// Target is one observable unread counter.
type Target struct {
	Key   string
	Label string
	Ref   string
}

// Source lists the targets visible to one user and fetches their counts.
// Targets is re-evaluated every cycle.
type Source interface {
	Name() string
	Targets(ctx context.Context) []Target
	Count(ctx context.Context, t Target) (int, error)
}

type AccountLister interface {
	VisibleAccounts(ctx context.Context, userID string) []model.Account
}

type MailboxCounter interface {
	UnreadCount(ctx context.Context, jmapAccountID string) (int, error)
}

type mailSource struct {
	userID  string
	access  AccountLister
	counter MailboxCounter
}

// NewMailSource observes the inbox unread count of every mailbox account the
// user may see. Targets are keyed by mailbox address.
func NewMailSource(userID string, access AccountLister, counter MailboxCounter) Source {
	return &mailSource{userID: userID, access: access, counter: counter}
}

func (s *mailSource) Name() string { return SourceMail }

func (s *mailSource) Targets(ctx context.Context) []Target {
	accounts := s.access.VisibleAccounts(ctx, s.userID)
	targets := make([]Target, 0, len(accounts))
	for _, a := range accounts {
		if !a.CanBePolled() {
			continue
		}
		targets = append(targets, Target{Key: a.Address, Label: a.Label(), Ref: *a.JMAPAccountID})
	}
	return targets
}

func (s *mailSource) Count(ctx context.Context, t Target) (int, error) {
	return s.counter.UnreadCount(ctx, t.Ref)
}

type ConversationLister interface {
	VisibleConversations(ctx context.Context, userID string) []model.Conversation
}

type ChatCounter interface {
	UnreadCount(ctx context.Context, userID, conversationID string) (int, error)
}

type chatSource struct {
	userID  string
	access  ConversationLister
	counter ChatCounter
}

// NewChatSource observes unread chat messages in every conversation the user
// belongs to. Targets are keyed "chat:<conversation id>".
func NewChatSource(userID string, access ConversationLister, counter ChatCounter) Source {
	return &chatSource{userID: userID, access: access, counter: counter}
}

func (s *chatSource) Name() string { return SourceChat }

func (s *chatSource) Targets(ctx context.Context) []Target {
	convs := s.access.VisibleConversations(ctx, s.userID)
	targets := make([]Target, 0, len(convs))
	for _, c := range convs {
		targets = append(targets, Target{Key: "chat:" + c.ID, Label: c.Title, Ref: c.ID})
	}
	return targets
}

func (s *chatSource) Count(ctx context.Context, t Target) (int, error) {
	return s.counter.UnreadCount(ctx, s.userID, t.Ref)
}
