package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/editcore/pkg/history"
)

// configName is the config file name without extension.
const configName = ".editcore"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for editcore settings.
const envPrefix = "EDITCORE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Default configuration values.
const (
	DefaultMergeAdjacent    = true
	DefaultRebalanceEvery   = 512
	DefaultMaxRetainedText  = "4MiB"
	DefaultCompress         = true
	DefaultMarkerSeed       = 1
	DefaultInvalidate       = "overlap"
	DefaultGroupingInterval = "300ms"
	DefaultLogLevel         = "info"
	DefaultSampleRatio      = 1.0
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("patch.merge_adjacent", DefaultMergeAdjacent)
	viperCfg.SetDefault("patch.rebalance_every", DefaultRebalanceEvery)
	viperCfg.SetDefault("patch.max_retained_text", DefaultMaxRetainedText)
	viperCfg.SetDefault("patch.compress", DefaultCompress)

	viperCfg.SetDefault("markers.seed", DefaultMarkerSeed)
	viperCfg.SetDefault("markers.invalidate", DefaultInvalidate)

	viperCfg.SetDefault("history.grouping_interval", DefaultGroupingInterval)
	viperCfg.SetDefault("history.max_undo_entries", history.DefaultMaxUndoEntries)

	viperCfg.SetDefault("log.level", DefaultLogLevel)
	viperCfg.SetDefault("log.json", false)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.trace_verbose", false)
}
