// Package commands implements the editcore subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/editcore/internal/config"
	"github.com/Sumatoshi-tech/editcore/internal/session"
	"github.com/Sumatoshi-tech/editcore/pkg/observability"
	"github.com/Sumatoshi-tech/editcore/pkg/version"
)

const (
	configFlag      = "config"
	configFlagUsage = "Config file path (default: .editcore.yaml in the working directory or $HOME)"
	outFlag         = "out"
	noColorFlag     = "no-color"
	noColorUsage    = "Disable colored output"
	jsonFlag        = "json"
)

// environment is what a command needs to run: the loaded configuration and
// the telemetry built from it.
type environment struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.EditMetrics
}

// setup loads the configuration at configPath and initializes telemetry.
// Logs go to the command's stderr. With prometheus set, metrics are also
// collected into providers.Registry.
func setup(cmd *cobra.Command, configPath string, prometheus bool) (*environment, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	obsCfg := cfg.Observability(version.Version)
	obsCfg.Mode = observability.ModeCLI
	obsCfg.Prometheus = prometheus
	obsCfg.LogOutput = cmd.ErrOrStderr()

	switch {
	case flagBool(cmd, "quiet"):
		obsCfg.LogLevel = slog.LevelError
	case flagBool(cmd, "verbose"):
		obsCfg.LogLevel = slog.LevelDebug
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewEditMetrics(providers.Meter)
	if err != nil {
		shutdown(providers)

		return nil, fmt.Errorf("create metrics: %w", err)
	}

	return &environment{cfg: cfg, providers: providers, metrics: metrics}, nil
}

func (env *environment) close() {
	shutdown(env.providers)
}

func shutdown(providers observability.Providers) {
	err := providers.Shutdown(context.Background())
	if err != nil {
		providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

// sessionOptions translates the configuration into session options.
func (env *environment) sessionOptions() ([]session.Option, error) {
	cfg := env.cfg

	limit, err := cfg.MaxRetainedTextBytes()
	if err != nil {
		return nil, err
	}

	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, err
	}

	return []session.Option{
		session.WithMergeAdjacent(cfg.Patch.MergeAdjacent),
		session.WithRebalanceEvery(cfg.Patch.RebalanceEvery),
		session.WithMaxRetainedText(limit),
		session.WithSeed(cfg.Markers.Seed),
		session.WithStrategy(strategy),
		session.WithGroupingInterval(cfg.History.GroupingInterval),
		session.WithMaxUndoEntries(cfg.History.MaxUndoEntries),
		session.WithLogger(env.providers.Logger),
		session.WithTelemetry(env.providers.Tracer, env.metrics),
	}, nil
}

// flagBool reads a boolean flag, possibly inherited from the root command.
// Missing flags read as false.
func flagBool(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}

	return value
}

func progressf(cmd *cobra.Command, writer io.Writer, format string, args ...any) {
	if flagBool(cmd, "quiet") {
		return
	}

	_, _ = fmt.Fprintf(writer, format+"\n", args...)
}
