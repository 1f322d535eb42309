package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/strata/pkg/telemetry"
)

var validate = validator.New()

// Duration wraps time.Duration so settings files accept values like "500ms".
type Duration time.Duration

// UnmarshalYAML decodes a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like 500ms or 2s")
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the wrapped time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Settings holds the strata tool configuration.
type Settings struct {
	// Logging controls the CLI logger.
	Logging LoggingSettings `yaml:"logging" json:"logging"`

	// History controls run-history recording.
	History HistorySettings `yaml:"history" json:"history"`

	// Tracing controls span export.
	Tracing TracingSettings `yaml:"tracing" json:"tracing"`

	// Metrics controls the Prometheus endpoint in watch mode.
	Metrics MetricsSettings `yaml:"metrics" json:"metrics"`

	// Watch controls re-realization on file change.
	Watch WatchSettings `yaml:"watch" json:"watch"`

	// Output controls document emission defaults.
	Output OutputSettings `yaml:"output" json:"output"`
}

// LoggingSettings configures the logger.
type LoggingSettings struct {
	// Level is the minimum log level.
	Level string `yaml:"level" json:"level" validate:"omitempty,oneof=trace debug info warn error fatal"`

	// Format selects console or json output.
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=console json"`
}

// HistorySettings configures run-history recording.
type HistorySettings struct {
	// Enabled turns history recording on or off.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Path is the SQLite database file path.
	Path string `yaml:"path" json:"path"`
}

// TracingSettings configures span export.
type TracingSettings struct {
	// Enabled turns tracing on or off.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Exporter selects the span exporter (otlp, stdout, none).
	Exporter string `yaml:"exporter" json:"exporter" validate:"omitempty,oneof=otlp stdout none"`

	// Endpoint is the OTLP collector endpoint.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// SamplingRate is the trace sampling rate between 0 and 1.
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate" validate:"gte=0,lte=1"`
}

// MetricsSettings configures the Prometheus metrics endpoint.
type MetricsSettings struct {
	// Enabled turns the metrics endpoint on or off.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// ListenAddress is the HTTP listen address for /metrics.
	ListenAddress string `yaml:"listen_address" json:"listen_address"`
}

// WatchSettings configures watch mode.
type WatchSettings struct {
	// Debounce is how long to wait after the last file change before
	// re-realizing.
	Debounce Duration `yaml:"debounce" json:"debounce" validate:"min=0"`
}

// OutputSettings configures document emission defaults.
type OutputSettings struct {
	// Format is the default output format (yaml, json).
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=yaml json"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Logging: LoggingSettings{
			Level:  "info",
			Format: "console",
		},
		History: HistorySettings{
			Enabled: true,
			Path:    defaultHistoryPath(),
		},
		Tracing: TracingSettings{
			Enabled:      false,
			Exporter:     "none",
			SamplingRate: 1.0,
		},
		Metrics: MetricsSettings{
			Enabled:       false,
			ListenAddress: ":9090",
		},
		Watch: WatchSettings{
			Debounce: Duration(500 * time.Millisecond),
		},
		Output: OutputSettings{
			Format: "yaml",
		},
	}
}

// defaultHistoryPath places the history database under the user cache dir.
func defaultHistoryPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".strata", "history.db")
	}
	return filepath.Join(dir, "strata", "history.db")
}

// DefaultPath returns the default settings file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "strata", "config.yaml")
}

// Load reads settings from an optional YAML file, applies environment
// overrides, and validates the result.
//
// When path is empty the default location is tried and a missing file
// falls back to defaults. A path given explicitly must exist.
//
// Environment overrides: STRATA_LOG_LEVEL, STRATA_LOG_FORMAT,
// STRATA_HISTORY_PATH, STRATA_TRACING_ENDPOINT, STRATA_METRICS_ADDR,
// STRATA_WATCH_DEBOUNCE.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, settings); err != nil {
				return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
			// Default location is optional
		default:
			return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
		}
	}

	if err := applyEnv(settings); err != nil {
		return nil, err
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// applyEnv overrides settings from STRATA_* environment variables.
func applyEnv(settings *Settings) error {
	if v := os.Getenv("STRATA_LOG_LEVEL"); v != "" {
		settings.Logging.Level = v
	}
	if v := os.Getenv("STRATA_LOG_FORMAT"); v != "" {
		settings.Logging.Format = v
	}
	if v := os.Getenv("STRATA_HISTORY_PATH"); v != "" {
		settings.History.Path = v
	}
	if v := os.Getenv("STRATA_TRACING_ENDPOINT"); v != "" {
		settings.Tracing.Endpoint = v
		settings.Tracing.Enabled = true
		if settings.Tracing.Exporter == "" || settings.Tracing.Exporter == "none" {
			settings.Tracing.Exporter = "otlp"
		}
	}
	if v := os.Getenv("STRATA_METRICS_ADDR"); v != "" {
		settings.Metrics.ListenAddress = v
		settings.Metrics.Enabled = true
	}
	if v := os.Getenv("STRATA_WATCH_DEBOUNCE"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid STRATA_WATCH_DEBOUNCE %q: %w", v, err)
		}
		settings.Watch.Debounce = Duration(parsed)
	}
	return nil
}

// Validate checks the settings against their constraints.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if s.Tracing.Enabled && s.Tracing.Exporter == "otlp" && s.Tracing.Endpoint == "" {
		return fmt.Errorf("invalid settings: otlp tracing requires an endpoint")
	}

	return nil
}

// TelemetryConfig maps the settings onto a telemetry configuration.
func (s *Settings) TelemetryConfig(version string) *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Logging.Level = s.Logging.Level
	cfg.Logging.Format = s.Logging.Format

	if s.Tracing.Enabled {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = s.Tracing.Exporter
		cfg.Tracing.Endpoint = s.Tracing.Endpoint
		cfg.Tracing.SamplingRate = s.Tracing.SamplingRate
	}

	if s.Metrics.Enabled {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddress = s.Metrics.ListenAddress
	}

	return cfg
}
