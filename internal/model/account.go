package model

import "time"

// Account is a shared mailbox account owned by the mail integration.
type Account struct {
	ID            string    `json:"id"`
	Address       string    `json:"address"`
	DisplayName   string    `json:"display_name"`
	Purpose       string    `json:"purpose"`
	Status        string    `json:"status"`
	JMAPAccountID *string   `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CanBePolled reports whether the account is active and carries a mailbox credential.
func (a Account) CanBePolled() bool {
	return a.Status == StatusActive && a.JMAPAccountID != nil && *a.JMAPAccountID != ""
}

// Label is the human-facing name used in toasts and notifications.
func (a Account) Label() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Address
}

// AccessGrant permits a non-admin user to observe one account.
type AccessGrant struct {
	UserID    string    `json:"user_id"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}
