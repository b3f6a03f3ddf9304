// Package config loads editcore settings from a YAML file, EDITCORE_*
// environment variables, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/editcore/pkg/markerindex"
	"github.com/Sumatoshi-tech/editcore/pkg/observability"
)

// Config is the top-level configuration struct for editcore.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Patch     PatchConfig     `mapstructure:"patch"`
	Markers   MarkersConfig   `mapstructure:"markers"`
	History   HistoryConfig   `mapstructure:"history"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// PatchConfig holds the settings of the patch a session records.
type PatchConfig struct {
	MergeAdjacent   bool   `mapstructure:"merge_adjacent"`
	RebalanceEvery  int    `mapstructure:"rebalance_every"`
	MaxRetainedText string `mapstructure:"max_retained_text"`
	Compress        bool   `mapstructure:"compress"`
}

// MarkersConfig holds marker index settings.
type MarkersConfig struct {
	Seed       uint64 `mapstructure:"seed"`
	Invalidate string `mapstructure:"invalidate"`
}

// HistoryConfig holds undo history settings.
type HistoryConfig struct {
	GroupingInterval time.Duration `mapstructure:"grouping_interval"`
	MaxUndoEntries   int           `mapstructure:"max_undo_entries"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	TraceVerbose bool    `mapstructure:"trace_verbose"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidRebalanceEvery indicates a negative rebalance period.
	ErrInvalidRebalanceEvery = errors.New("patch.rebalance_every must be non-negative")
	// ErrInvalidRetainedText indicates an unparsable size.
	ErrInvalidRetainedText = errors.New("patch.max_retained_text must be a byte size")
	// ErrInvalidStrategy indicates an unknown invalidation strategy.
	ErrInvalidStrategy = errors.New("markers.invalidate must be one of never, surround, overlap, inside, touch")
	// ErrInvalidGroupingInterval indicates a negative grouping interval.
	ErrInvalidGroupingInterval = errors.New("history.grouping_interval must be non-negative")
	// ErrInvalidMaxUndoEntries indicates a negative undo limit.
	ErrInvalidMaxUndoEntries = errors.New("history.max_undo_entries must be non-negative")
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("log.level must be debug, info, warn or error")
	// ErrInvalidSampleRatio indicates a ratio outside [0, 1].
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be between 0 and 1")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Patch.RebalanceEvery < 0 {
		return ErrInvalidRebalanceEvery
	}

	_, err := c.MaxRetainedTextBytes()
	if err != nil {
		return err
	}

	_, err = c.Strategy()
	if err != nil {
		return err
	}

	if c.History.GroupingInterval < 0 {
		return ErrInvalidGroupingInterval
	}

	if c.History.MaxUndoEntries < 0 {
		return ErrInvalidMaxUndoEntries
	}

	_, err = c.LogLevel()
	if err != nil {
		return err
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	return nil
}

// MaxRetainedTextBytes parses patch.max_retained_text. Empty or zero means
// no limit.
func (c *Config) MaxRetainedTextBytes() (uint64, error) {
	if c.Patch.MaxRetainedText == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(c.Patch.MaxRetainedText)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRetainedText, c.Patch.MaxRetainedText)
	}

	return size, nil
}

// Strategy parses markers.invalidate. Empty selects the default.
func (c *Config) Strategy() (markerindex.Strategy, error) {
	if c.Markers.Invalidate == "" {
		return markerindex.InvalidateOverlap, nil
	}

	strategy, err := markerindex.ParseStrategy(c.Markers.Invalidate)
	if err != nil {
		return strategy, fmt.Errorf("%w: %w", ErrInvalidStrategy, err)
	}

	return strategy, nil
}

// LogLevel parses log.level. Empty means info.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level

	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}

	err := level.UnmarshalText([]byte(c.Log.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}

	return level, nil
}

// Observability builds the observability settings. The config must have
// passed Validate.
func (c *Config) Observability(version string) observability.Config {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	cfg.OTLPInsecure = c.Telemetry.OTLPInsecure
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	cfg.SampleRatio = c.Telemetry.SampleRatio
	cfg.TraceVerbose = c.Telemetry.TraceVerbose
	cfg.LogJSON = c.Log.JSON

	level, err := c.LogLevel()
	if err == nil {
		cfg.LogLevel = level
	}

	return cfg
}
