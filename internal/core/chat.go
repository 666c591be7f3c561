package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/inboxwatch/internal/model"
	"github.com/edvin/inboxwatch/internal/platform"
)

const maxPushBodyRunes = 140

// FanOuter sends a push request to its audience.
type FanOuter interface {
	FanOut(ctx context.Context, req model.PushRequest) (*model.DeliveryReport, error)
}

type ChatService struct {
	db     DB
	pusher FanOuter

	inflight sync.WaitGroup
}

func NewChatService(db DB, pusher FanOuter) *ChatService {
	return &ChatService{db: db, pusher: pusher}
}

// UnreadCount returns the number of messages in the conversation posted by
// other members after the user's last-read marker.
func (s *ChatService) UnreadCount(ctx context.Context, userID, conversationID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM chat_messages m
		 JOIN conversation_members cm ON cm.conversation_id = m.conversation_id AND cm.user_id = $2
		 WHERE m.conversation_id = $1 AND m.created_at > cm.last_read_at AND m.sender_id <> $2`,
		conversationID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread in conversation %s: %w", conversationID, err)
	}
	return count, nil
}

// GetConversation loads one conversation.
func (s *ChatService) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var c model.Conversation
	err := s.db.QueryRow(ctx,
		`SELECT id, title, created_at FROM conversations WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}
	return &c, nil
}

// Members returns the user IDs belonging to the conversation.
func (s *ChatService) Members(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT user_id FROM conversation_members WHERE conversation_id = $1 ORDER BY user_id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list members of %s: %w", conversationID, err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// PostMessage stores a message and notifies the other members by push in the
// background. Membership must be checked by the caller.
func (s *ChatService) PostMessage(ctx context.Context, senderID, conversationID, body string) (*model.ChatMessage, error) {
	msg := &model.ChatMessage{
		ID:             platform.NewID(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
	}

	// created_at comes from the database clock so it orders against last_read_at.
	err := s.db.QueryRow(ctx,
		`INSERT INTO chat_messages (id, conversation_id, sender_id, body)
		 VALUES ($1, $2, $3, $4) RETURNING created_at`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Body,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}

	// The sender has read up to their own message, and no further.
	if err := s.markReadThrough(ctx, senderID, conversationID, msg.CreatedAt); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to advance sender read marker")
	}

	if s.pusher != nil {
		logger := zerolog.Ctx(ctx)
		bg := logger.WithContext(context.WithoutCancel(ctx))
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.notifyMembers(bg, msg)
		}()
	}

	return msg, nil
}

func (s *ChatService) notifyMembers(ctx context.Context, msg *model.ChatMessage) {
	logger := zerolog.Ctx(ctx).With().Str("conversation_id", msg.ConversationID).Logger()

	conv, err := s.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		logger.Warn().Err(err).Msg("chat push skipped")
		return
	}
	members, err := s.Members(ctx, msg.ConversationID)
	if err != nil {
		logger.Warn().Err(err).Msg("chat push skipped")
		return
	}

	var recipients []string
	for _, id := range members {
		if id != msg.SenderID {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return
	}

	report, err := s.pusher.FanOut(ctx, model.PushRequest{
		UserIDs: recipients,
		Title:   conv.Title,
		Body:    truncate(msg.Body, maxPushBodyRunes),
		Data: map[string]string{
			"type":            "chat",
			"conversation_id": msg.ConversationID,
			"message_id":      msg.ID,
		},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("chat push failed")
		return
	}
	if report.Disabled {
		logger.Debug().Msg(report.Message)
	}
}

// Wait blocks until background notifications have finished.
func (s *ChatService) Wait() {
	s.inflight.Wait()
}

// MarkRead moves the user's last-read marker in the conversation to now.
func (s *ChatService) MarkRead(ctx context.Context, userID, conversationID string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE conversation_members SET last_read_at = now()
		 WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("mark conversation %s read: %w", conversationID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark conversation %s read: %w", conversationID, ErrNotFound)
	}
	return nil
}

// markReadThrough advances the read marker to at, never moving it back.
// Messages posted by others after at stay unread.
func (s *ChatService) markReadThrough(ctx context.Context, userID, conversationID string, at time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE conversation_members SET last_read_at = GREATEST(last_read_at, $3)
		 WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID, at,
	)
	if err != nil {
		return fmt.Errorf("advance read marker in conversation %s: %w", conversationID, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
