package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edvin/inboxwatch/internal/model"
)

const accountColumns = `a.id, a.address, a.display_name, a.purpose, a.status, a.jmap_account_id, a.created_at, a.updated_at`

// AccessService decides which mailbox accounts and conversations a user may
// observe. It is consulted on every call and never caches.
type AccessService struct {
	db    DB
	roles *RoleService
}

func NewAccessService(db DB, roles *RoleService) *AccessService {
	return &AccessService{db: db, roles: roles}
}

// VisibleAccounts returns the active, credential-bearing accounts the user may
// observe. Admins see all of them; everyone else sees only granted accounts.
// Lookup failures are logged and yield an empty list.
func (s *AccessService) VisibleAccounts(ctx context.Context, userID string) []model.Account {
	accounts, err := s.visibleAccounts(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("account scope lookup failed, denying access")
		return []model.Account{}
	}
	return accounts
}

func (s *AccessService) visibleAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	admin, err := s.roles.IsAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}

	var query string
	var args []any
	if admin {
		query = `SELECT ` + accountColumns + ` FROM mail_accounts a
			 WHERE a.status = $1 AND a.jmap_account_id IS NOT NULL AND a.jmap_account_id <> ''
			 ORDER BY a.address`
		args = []any{model.StatusActive}
	} else {
		query = `SELECT ` + accountColumns + ` FROM mail_accounts a
			 JOIN account_grants g ON g.account_id = a.id
			 WHERE g.user_id = $1 AND a.status = $2 AND a.jmap_account_id IS NOT NULL AND a.jmap_account_id <> ''
			 ORDER BY a.address`
		args = []any{userID, model.StatusActive}
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list visible accounts for user %s: %w", userID, err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.Address, &a.DisplayName, &a.Purpose, &a.Status, &a.JMAPAccountID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if a.CanBePolled() {
			accounts = append(accounts, a)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// CanSee reports whether the account is in the user's visible set.
func (s *AccessService) CanSee(ctx context.Context, userID, accountID string) bool {
	for _, a := range s.VisibleAccounts(ctx, userID) {
		if a.ID == accountID {
			return true
		}
	}
	return false
}

// VisibleConversations returns the conversations the user is a member of.
// Lookup failures are logged and yield an empty list.
func (s *AccessService) VisibleConversations(ctx context.Context, userID string) []model.Conversation {
	rows, err := s.db.Query(ctx,
		`SELECT c.id, c.title, c.created_at FROM conversations c
		 JOIN conversation_members m ON m.conversation_id = c.id
		 WHERE m.user_id = $1
		 ORDER BY c.created_at, c.id`, userID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("conversation scope lookup failed, denying access")
		return []model.Conversation{}
	}
	defer rows.Close()

	conversations := []model.Conversation{}
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("scan conversation failed, denying access")
			return []model.Conversation{}
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("iterate conversations failed, denying access")
		return []model.Conversation{}
	}
	return conversations
}

// IsMember reports whether the user belongs to the conversation. Lookup
// failures count as not a member.
func (s *AccessService) IsMember(ctx context.Context, userID, conversationID string) bool {
	var member bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM conversation_members WHERE conversation_id = $1 AND user_id = $2)`,
		conversationID, userID,
	).Scan(&member)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Str("conversation_id", conversationID).Msg("membership lookup failed")
		return false
	}
	return member
}
