package core

import (
	"context"
	"fmt"

	"github.com/edvin/inboxwatch/internal/model"
)

// RoleService reads role assignments from user_roles. Roles are data rows,
// so every check goes through here rather than comparing names inline.
type RoleService struct {
	db DB
}

func NewRoleService(db DB) *RoleService {
	return &RoleService{db: db}
}

func (s *RoleService) RolesOf(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, fmt.Errorf("list roles for user %s: %w", userID, err)
	}
	defer rows.Close()

	roles := []string{}
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

func (s *RoleService) UsersWithRole(ctx context.Context, role string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT user_id FROM user_roles WHERE role = $1 ORDER BY user_id`, role)
	if err != nil {
		return nil, fmt.Errorf("list users with role %s: %w", role, err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users with role: %w", err)
	}
	return userIDs, nil
}

func (s *RoleService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var admin bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`,
		userID, model.RoleAdmin,
	).Scan(&admin)
	if err != nil {
		return false, fmt.Errorf("check admin role for user %s: %w", userID, err)
	}
	return admin, nil
}
