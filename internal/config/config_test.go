package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelintel/dealengine/internal/config"
)

func TestDefaults(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "dealengine", cfg.Bus.ConsumerGroup)
	assert.True(t, cfg.Bus.UseInProcess)
	assert.Equal(t, 30*time.Second, cfg.Watch.Interval)
	assert.Equal(t, 60*time.Second, cfg.HotDeal.Interval)
	assert.Equal(t, 100, cfg.Session.MaxQueueLen)
	assert.Equal(t, 3, cfg.Session.MaxFailures)
	assert.Equal(t, 10, cfg.Planner.TopFlights)
	assert.Equal(t, 5, cfg.Planner.TopHotels)
	assert.Equal(t, 3, cfg.Planner.ResultCount)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BUS_CONSUMER_GROUP", "dealengine-staging")
	t.Setenv("WATCH_INTERVAL", "45s")
	t.Setenv("SCORING_MIN_SCORE", "25")
	t.Setenv("HOTDEAL_MIN_SAVINGS_PERCENT", "40.5")
	t.Setenv("BUS_IN_PROCESS", "false")

	cfg := config.Default()
	assert.Equal(t, "dealengine-staging", cfg.Bus.ConsumerGroup)
	assert.Equal(t, 45*time.Second, cfg.Watch.Interval)
	assert.Equal(t, 25, cfg.Scoring.MinScoreToPublish)
	assert.Equal(t, 40.5, cfg.HotDeal.MinSavingsPercent)
	assert.False(t, cfg.Bus.UseInProcess)
}

func TestMalformedEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("WATCH_INTERVAL", "not-a-duration")
	t.Setenv("SCORING_MIN_SCORE", "lots")

	cfg := config.Default()
	assert.Equal(t, 30*time.Second, cfg.Watch.Interval)
	assert.Equal(t, 0, cfg.Scoring.MinScoreToPublish)
}

func TestYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: 9090\nplanner:\n  result_count: 5\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 5, cfg.Planner.ResultCount)
	// Untouched values keep their defaults.
	assert.Equal(t, 10, cfg.Planner.TopFlights)
}
