package server

import (
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func Test_Origin_Policy(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	policy := newOriginPolicy([]string{" http://localhost:8080 ", "not-a-url", "", "https://Chat.Example.com"}, log)

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{name: "exact", origin: "http://localhost:8080", want: true},
		{name: "case folded", origin: "HTTPS://chat.example.COM", want: true},
		{name: "path ignored", origin: "https://chat.example.com/some/page", want: true},
		{name: "other port", origin: "http://localhost:9090", want: false},
		{name: "scheme differs", origin: "https://localhost:8080", want: false},
		{name: "missing", origin: "", want: false},
		{name: "malformed", origin: "javascript:alert(1)", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws/chat", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			require.Equal(t, tt.want, policy.check(r))
		})
	}
}

func Test_Origin_Wildcard(t *testing.T) {
	policy := newOriginPolicy([]string{"*"}, logs.GetLoggerFromLevel(slog.LevelDebug))

	r := httptest.NewRequest("GET", "/ws/chat", nil)
	r.Header.Set("Origin", "http://anything.example")
	require.True(t, policy.allows(r))

	r.Header.Del("Origin")
	require.False(t, policy.allows(r))
}
