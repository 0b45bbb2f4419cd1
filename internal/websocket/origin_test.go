package websocket

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCheckOrigin(t *testing.T) {
	allowed := []string{"https://app.example.com", "http://localhost:5173/"}

	tests := []struct {
		name          string
		origin        string
		isDevelopment bool
		want          bool
	}{
		// Always allowed
		{"empty origin", "", false, true},
		{"configured origin", "https://app.example.com", false, true},
		{"configured origin case-insensitive", "https://APP.example.com", false, true},
		{"configured origin with trailing slash", "http://localhost:5173", false, true},

		// Rejected in production
		{"different host", "https://evil.com", false, false},
		{"different port", "https://app.example.com:9090", false, false},
		{"http instead of https", "http://app.example.com", false, false},
		{"subdomain", "https://sub.app.example.com", false, false},

		// Localhost: allowed in dev, rejected in prod
		{"localhost dev", "http://localhost:8080", true, true},
		{"127.0.0.1 dev", "http://127.0.0.1:3000", true, true},
		{"localhost prod rejected", "http://localhost:8080", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewCheckOrigin(allowed, tt.isDevelopment)
			r, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checker(r))
		})
	}
}

func TestNewCheckOrigin_Wildcard(t *testing.T) {
	checker := NewCheckOrigin([]string{"*"}, false)

	r, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "https://anywhere.example")

	assert.True(t, checker(r))
}
