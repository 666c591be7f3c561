package core

import (
	"context"
	"slices"
)

// RoleDirectory resolves a role name to the users holding it.
type RoleDirectory interface {
	UsersWithRole(ctx context.Context, role string) ([]string, error)
}

// ExpandAudience returns the explicit users together with every holder of the
// given roles, de-duplicated and sorted. Blank IDs and role names are ignored.
func ExpandAudience(ctx context.Context, dir RoleDirectory, userIDs, roles []string) ([]string, error) {
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			seen[id] = struct{}{}
		}
	}

	for _, role := range roles {
		if role == "" {
			continue
		}
		holders, err := dir.UsersWithRole(ctx, role)
		if err != nil {
			return nil, err
		}
		for _, id := range holders {
			seen[id] = struct{}{}
		}
	}

	targets := make([]string, 0, len(seen))
	for id := range seen {
		targets = append(targets, id)
	}
	slices.Sort(targets)
	return targets, nil
}
