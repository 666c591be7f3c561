package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginPatterns(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		want    []string
	}{
		{"hosts", []string{"http://localhost:5173", "https://app.example.com"}, []string{"localhost:5173", "app.example.com"}},
		{"wildcard", []string{"https://app.example.com", "*"}, []string{"*"}},
		{"skips invalid", []string{"not a url", "https://ok.example.com"}, []string{"ok.example.com"}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, originPatterns(tt.origins))
		})
	}
}
