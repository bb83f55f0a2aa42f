package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Scheduler.Embedded)
	assert.Equal(t, 2*time.Second, cfg.Scheduler.PollInterval)
	assert.Equal(t, "DRAFT_EVENTS", cfg.Broadcast.StreamName)
	assert.Equal(t, models.SeatOrderRandom, cfg.draftDefaults().SeatOrder)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
draft:
  pick_time_limit_sec: 45
  team_size: 10
  auto_pick_metric: rank
  position_limits:
    C: { min: 1, max: 2 }
scheduler:
  embedded: false
  poll_interval: 500ms
  workers: 3
cache:
  ttl: 1m
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.False(t, cfg.Scheduler.Embedded)

	defaults := cfg.draftDefaults()
	assert.Equal(t, 45, defaults.PickTimeLimitSec)
	assert.Equal(t, 10, defaults.TeamSize)
	assert.Equal(t, models.AutoPickMetricRank, defaults.AutoPickMetric)
	assert.Equal(t, models.PositionLimit{Min: 1, Max: 2}, defaults.PositionLimits["C"])

	sched := cfg.schedulerConfig()
	assert.Equal(t, 500*time.Millisecond, sched.PollInterval)
	assert.Equal(t, 3, sched.Workers)
	assert.Equal(t, 50, sched.BatchSize, "unset keys keep their defaults")

	assert.Equal(t, time.Minute, cfg.cacheConfig().TTL)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"9090\"\nscheduler:\n  embedded: true\n")
	t.Setenv("PORT", "7000")
	t.Setenv("SCHEDULER_EMBEDDED", "false")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("ALLOWED_ORIGINS", "https://courtside.app,http://localhost:3000")

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.False(t, cfg.Scheduler.Embedded)
	assert.Equal(t, "nats://nats:4222", cfg.jetStreamConfig().URL)
	assert.Equal(t, []string{"https://courtside.app", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	_, err := loadConfig(writeConfig(t, "scheduler: [unclosed"))
	assert.Error(t, err)
}
