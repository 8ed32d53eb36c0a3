package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

// resetViper clears all viper state between tests to avoid cross-contamination.
func resetViper() {
	viper.Reset()
}

func TestLoad_Defaults(t *testing.T) {
	resetViper()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Plan", cfg.Plan, "haloprep.toml"},
		{"Verbose", cfg.Verbose, false},
		{"LogJSON", cfg.LogJSON, false},
		{"TelemetryDir", cfg.TelemetryDir, ".haloprep/telemetry"},
		{"Workers", cfg.Workers, 0},
		{"Exec", cfg.Exec, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{
			name:   "plan",
			envKey: "HALOPREP_PLAN",
			envVal: "/runs/sphinx.toml",
			field:  func(c Config) any { return c.Plan },
			want:   "/runs/sphinx.toml",
		},
		{
			name:   "workers",
			envKey: "HALOPREP_WORKERS",
			envVal: "8",
			field:  func(c Config) any { return c.Workers },
			want:   8,
		},
		{
			name:   "log_json",
			envKey: "HALOPREP_LOG_JSON",
			envVal: "true",
			field:  func(c Config) any { return c.LogJSON },
			want:   true,
		},
		{
			name:   "exec",
			envKey: "HALOPREP_EXEC",
			envVal: "/f90/rascas_driver",
			field:  func(c Config) any { return c.Exec },
			want:   "/f90/rascas_driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			// Set env prefix so HALOPREP_* env vars map to config keys.
			viper.SetEnvPrefix("HALOPREP")
			viper.AutomaticEnv()

			os.Setenv(tt.envKey, tt.envVal)
			defer os.Unsetenv(tt.envKey)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			got := tt.field(cfg)
			if got != tt.want {
				t.Errorf("%s: got %v (%T), want %v (%T)", tt.name, got, got, tt.want, tt.want)
			}
		})
	}
}
