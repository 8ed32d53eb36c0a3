package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds operator settings for a haloprep session. Values are
// populated from .haloprep.yaml, HALOPREP_* env vars, and CLI flags. The
// physics of a run lives in the plan file, not here.
type Config struct {
	Plan         string `mapstructure:"plan"`
	Verbose      bool   `mapstructure:"verbose"`
	LogJSON      bool   `mapstructure:"log_json"`
	TelemetryDir string `mapstructure:"telemetry_dir"`
	Workers      int    `mapstructure:"workers"`
	Exec         string `mapstructure:"exec"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("plan", "haloprep.toml")
	viper.SetDefault("verbose", false)
	viper.SetDefault("log_json", false)
	viper.SetDefault("telemetry_dir", ".haloprep/telemetry")
	viper.SetDefault("workers", 0)
	viper.SetDefault("exec", "")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
