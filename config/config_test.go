package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/court-scheduler/hub"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/courts?sslmode=disable")
	t.Setenv("JWT_SECRET_KEY", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, hub.DefaultConfig(), cfg.Hub)
	assert.Equal(t, 15*time.Minute, cfg.MinPlayerGap)
	assert.False(t, cfg.R2.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("HUB_MAX_CONNECTIONS_PER_TOURNAMENT", "10")
	t.Setenv("HUB_MAX_TOTAL_CONNECTIONS", "50")
	t.Setenv("HUB_CONNECTION_TIMEOUT", "90")
	t.Setenv("HUB_RATE_WINDOW", "30s")
	t.Setenv("SCHEDULE_MIN_PLAYER_GAP", "20m")
	t.Setenv("R2_ACCOUNT_ID", "acct")
	t.Setenv("R2_ACCESS_KEY_ID", "key")
	t.Setenv("R2_SECRET_ACCESS_KEY", "secret")
	t.Setenv("R2_BUCKET_NAME", "schedules")
	t.Setenv("R2_PUBLIC_BASE_URL", "https://cdn.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 10, cfg.Hub.MaxConnectionsPerTournament)
	assert.Equal(t, 50, cfg.Hub.MaxTotalConnections)
	assert.Equal(t, 90*time.Second, cfg.Hub.ConnectionTimeout)
	assert.Equal(t, 30*time.Second, cfg.Hub.RateWindow)
	assert.Equal(t, 20*time.Minute, cfg.MinPlayerGap)
	assert.True(t, cfg.R2.Enabled())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing database", map[string]string{"DATABASE_URL": ""}, "DATABASE_URL"},
		{"missing jwt key", map[string]string{"JWT_SECRET_KEY": ""}, "JWT_SECRET_KEY"},
		{"bad port", map[string]string{"SERVER_PORT": "eighty"}, "SERVER_PORT"},
		{"port out of range", map[string]string{"SERVER_PORT": "70000"}, "between 1 and 65535"},
		{"bad hub limit", map[string]string{"HUB_MAX_TOTAL_CONNECTIONS": "many"}, "HUB_MAX_TOTAL_CONNECTIONS"},
		{"negative hub limit", map[string]string{"HUB_MESSAGE_RATE_LIMIT": "-1"}, "cannot be negative"},
		{"zero tournament cap", map[string]string{"HUB_MAX_CONNECTIONS_PER_TOURNAMENT": "0"}, "HUB_MAX_CONNECTIONS_PER_TOURNAMENT must be positive"},
		{"zero global cap", map[string]string{"HUB_MAX_TOTAL_CONNECTIONS": "0"}, "HUB_MAX_TOTAL_CONNECTIONS must be positive"},
		{"zero interval", map[string]string{"HUB_HEALTH_CHECK_INTERVAL": "0s"}, "must be positive"},
		{"bad gap", map[string]string{"SCHEDULE_MIN_PLAYER_GAP": "soon"}, "SCHEDULE_MIN_PLAYER_GAP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
