package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "support-sync-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 15*time.Second, cfg.Tracker.RequestTimeout())
	assert.Equal(t, 20*time.Second, cfg.Tracker.RetryMaxElapsed())
	assert.Equal(t, 2*time.Minute, cfg.Sync.LockTTL())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("TRACKER_BASE_URL", "http://localhost:4567")
	t.Setenv("SYNC_LOCK_TTL_SECONDS", "45")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, "http://localhost:4567", cfg.Tracker.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.Sync.LockTTL())
	assert.False(t, cfg.Postgres.RunMigrations)
}

func TestDurationFallbacks(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
	assert.Equal(t, 15*time.Second, TrackerConfig{}.RequestTimeout())
	assert.Equal(t, 2*time.Minute, SyncConfig{LockTTLSeconds: -1}.LockTTL())
}
