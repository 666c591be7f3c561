package model

import (
	"slices"
	"time"
)

// Role names stored in user_roles.
const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  *string   `json:"display_name"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}
