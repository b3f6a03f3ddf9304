package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/editcore/internal/config"
	"github.com/Sumatoshi-tech/editcore/pkg/markerindex"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "editcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.True(t, cfg.Patch.MergeAdjacent)
	assert.Equal(t, 512, cfg.Patch.RebalanceEvery)
	assert.True(t, cfg.Patch.Compress)
	assert.Equal(t, uint64(1), cfg.Markers.Seed)
	assert.Equal(t, 300*time.Millisecond, cfg.History.GroupingInterval)
	assert.Equal(t, 10000, cfg.History.MaxUndoEntries)
	assert.InDelta(t, 1.0, cfg.Telemetry.SampleRatio, 0)

	size, err := cfg.MaxRetainedTextBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(4<<20), size)

	strategy, err := cfg.Strategy()
	require.NoError(t, err)
	assert.Equal(t, markerindex.InvalidateOverlap, strategy)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
patch:
  merge_adjacent: false
  max_retained_text: 512KB
markers:
  seed: 42
  invalidate: touch
history:
  grouping_interval: 1s
log:
  level: debug
  json: true
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.False(t, cfg.Patch.MergeAdjacent)
	assert.Equal(t, 512, cfg.Patch.RebalanceEvery)
	assert.Equal(t, uint64(42), cfg.Markers.Seed)
	assert.Equal(t, time.Second, cfg.History.GroupingInterval)

	size, err := cfg.MaxRetainedTextBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(512000), size)

	strategy, err := cfg.Strategy()
	require.NoError(t, err)
	assert.Equal(t, markerindex.InvalidateTouch, strategy)

	obs := cfg.Observability("1.0.0")
	assert.Equal(t, slog.LevelDebug, obs.LogLevel)
	assert.True(t, obs.LogJSON)
	assert.Equal(t, "1.0.0", obs.ServiceVersion)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("EDITCORE_MARKERS_INVALIDATE", "inside")
	t.Setenv("EDITCORE_PATCH_REBALANCE_EVERY", "64")
	t.Setenv("EDITCORE_TELEMETRY_OTLP_HEADERS", "api-key=secret")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "inside", cfg.Markers.Invalidate)
	assert.Equal(t, 64, cfg.Patch.RebalanceEvery)
	assert.Equal(t, map[string]string{"api-key": "secret"}, cfg.Observability("").OTLPHeaders)
}

func TestLoadConfigInvalidFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "markers:\n  invalidate: sometimes\n")

	_, err := config.LoadConfig(path)
	require.ErrorIs(t, err, config.ErrInvalidStrategy)
	require.ErrorIs(t, err, markerindex.ErrUnknownStrategy)

	_, err = config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{name: "zero_config", mutate: func(*config.Config) {}},
		{name: "rebalance", mutate: func(c *config.Config) { c.Patch.RebalanceEvery = -1 }, want: config.ErrInvalidRebalanceEvery},
		{name: "retained_text", mutate: func(c *config.Config) { c.Patch.MaxRetainedText = "lots" }, want: config.ErrInvalidRetainedText},
		{name: "strategy", mutate: func(c *config.Config) { c.Markers.Invalidate = "always" }, want: config.ErrInvalidStrategy},
		{name: "grouping", mutate: func(c *config.Config) { c.History.GroupingInterval = -time.Second }, want: config.ErrInvalidGroupingInterval},
		{name: "undo_entries", mutate: func(c *config.Config) { c.History.MaxUndoEntries = -3 }, want: config.ErrInvalidMaxUndoEntries},
		{name: "log_level", mutate: func(c *config.Config) { c.Log.Level = "loud" }, want: config.ErrInvalidLogLevel},
		{name: "sample_ratio", mutate: func(c *config.Config) { c.Telemetry.SampleRatio = 1.5 }, want: config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var cfg config.Config
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.want == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.want)
		})
	}
}
