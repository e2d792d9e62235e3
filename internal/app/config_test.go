package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "sharesync", cfg.Auth.JWT.Issuer)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.False(t, cfg.Auth.DevTokens)

	require.Equal(t, 5, cfg.Points.Scores["create_post"])
	require.Equal(t, 1, cfg.Points.Scores["like_post"])
	require.Equal(t, 10, cfg.Points.Scores["complete_task"])
	require.Equal(t, 10, cfg.Points.LeaderboardLimit)

	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.True(t, cfg.Monitoring.Health.Enabled)
	require.Equal(t, "@hourly", cfg.Maintenance.ReconcileSchedule)
}

func TestLoadConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	contents := []byte(`
server:
  port: 9100
  log_level: debug
auth:
  jwt:
    secret: file-secret
    access_token_ttl: 30m
  dev_tokens: true
points:
  scores:
    create_post: 7
  leaderboard_limit: 25
maintenance:
  reconcile_schedule: "@daily"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), contents, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "file-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.True(t, cfg.Auth.DevTokens)
	require.Equal(t, 7, cfg.Points.Scores["create_post"])
	require.Equal(t, 25, cfg.Points.LeaderboardLimit)
	require.Equal(t, "@daily", cfg.Maintenance.ReconcileSchedule)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SHARESYNC_SERVER_PORT", "9200")
	t.Setenv("SHARESYNC_AUTH_JWT_SECRET", "env-secret")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9200, cfg.Server.Port)
	require.Equal(t, "env-secret", cfg.Auth.JWT.Secret)
}
