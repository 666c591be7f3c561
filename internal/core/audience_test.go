package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandAudience(t *testing.T) {
	dir := &fakeDirectory{holders: map[string][]string{
		"admin":   {"u1", "u3"},
		"support": {"u3", "u4"},
	}}

	tests := []struct {
		name  string
		users []string
		roles []string
		want  []string
	}{
		{"explicit only", []string{"u2", "u1"}, nil, []string{"u1", "u2"}},
		{"role only", nil, []string{"admin"}, []string{"u1", "u3"}},
		{"union de-duplicated", []string{"u1"}, []string{"admin"}, []string{"u1", "u3"}},
		{"overlapping roles", nil, []string{"admin", "support"}, []string{"u1", "u3", "u4"}},
		{"role without holders", nil, []string{"nobody"}, []string{}},
		{"empty", nil, nil, []string{}},
		{"duplicate explicit", []string{"u5", "u5"}, nil, []string{"u5"}},
		{"blank entries ignored", []string{""}, []string{""}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandAudience(context.Background(), dir, tt.users, tt.roles)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandAudience_LookupError(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("db down")}

	_, err := ExpandAudience(context.Background(), dir, []string{"u1"}, []string{"admin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
