package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusConstants(t *testing.T) {
	assert.Equal(t, "active", StatusActive)
	assert.Equal(t, "disabled", StatusDisabled)
	assert.Equal(t, "deleted", StatusDeleted)
}

func TestAccount_CanBePolled(t *testing.T) {
	jmapID := "b"
	tests := []struct {
		name    string
		account Account
		want    bool
	}{
		{"active with credential", Account{Status: StatusActive, JMAPAccountID: &jmapID}, true},
		{"active without credential", Account{Status: StatusActive}, false},
		{"disabled with credential", Account{Status: StatusDisabled, JMAPAccountID: &jmapID}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.account.CanBePolled())
		})
	}
}

func TestAccount_Label(t *testing.T) {
	assert.Equal(t, "Support", Account{Address: "support@example.com", DisplayName: "Support"}.Label())
	assert.Equal(t, "support@example.com", Account{Address: "support@example.com"}.Label())
}

func TestUser_HasRole(t *testing.T) {
	u := User{Roles: []string{RoleAgent, RoleAdmin}}
	assert.True(t, u.HasRole(RoleAdmin))
	assert.False(t, User{Roles: []string{RoleAgent}}.HasRole(RoleAdmin))
}
