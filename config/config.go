// Package config defines the Controller's structured configuration,
// following the teacher's UnifiedBusinessConfig pattern
// (engine/config/unified_config.go): a typed struct with ApplyDefaults and
// Validate, loadable from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the Controller's full configuration surface: ambient telemetry
// toggles plus the handful of domain knobs not covered by the threshold
// settings string itself (scan cadence, data directory, executor backlog).
type Config struct {
	// DataDir is the host's persistence root (spec §6,
	// get_data_system_directory). It is carried for the host's use only:
	// the Controller itself neither reads nor writes it.
	DataDir string `yaml:"data_dir"`

	// SettingsPath, if non-empty, is watched for changes to the app-idle
	// threshold settings string (spec §4.1). If empty, thresholds come
	// only from the injector's GetAppIdleSettings() at startup.
	SettingsPath string `yaml:"settings_path"`

	// ScanInterval is the periodic sweep cadence knob (spec §9:
	// "implementation defined"). ApplyDefaults replaces zero with the
	// default. The Controller does not run a periodic timer: scans happen
	// on display-on, on charging-to-false, and on explicit CheckIdleStates
	// calls only.
	ScanInterval time.Duration `yaml:"scan_interval"`

	// ExecutorBacklog bounds the single-threaded executor's task queue
	// (spec §5.1).
	ExecutorBacklog int `yaml:"executor_backlog"`

	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsBackend string `yaml:"metrics_backend"` // "prometheus" | "otel" | "noop"
	TracingEnabled bool   `yaml:"tracing_enabled"`
	HealthEnabled  bool   `yaml:"health_enabled"`
	LogLevel       string `yaml:"log_level"`
}

// Defaults returns a Config populated with conservative defaults.
func Defaults() Config {
	return Config{
		ScanInterval:    30 * time.Minute,
		ExecutorBacklog: 256,
		MetricsEnabled:  true,
		MetricsBackend:  "prometheus",
		TracingEnabled:  true,
		HealthEnabled:   true,
		LogLevel:        "info",
	}
}

// ApplyDefaults fills any zero-valued field with its default, leaving
// caller-supplied values untouched.
func (c *Config) ApplyDefaults() {
	if c == nil {
		return
	}
	def := Defaults()
	if c.ScanInterval == 0 {
		c.ScanInterval = def.ScanInterval
	}
	if c.ExecutorBacklog <= 0 {
		c.ExecutorBacklog = def.ExecutorBacklog
	}
	if c.MetricsBackend == "" {
		c.MetricsBackend = def.MetricsBackend
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate reports a descriptive error for any field outside its valid
// range, following the teacher's per-section validateX helper shape.
func (c Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return fmt.Errorf("scan config invalid: %w", err)
	}
	if err := c.validateTelemetry(); err != nil {
		return fmt.Errorf("telemetry config invalid: %w", err)
	}
	return nil
}

func (c Config) validateScan() error {
	if c.ScanInterval < 0 {
		return fmt.Errorf("scan interval cannot be negative: %v", c.ScanInterval)
	}
	if c.ExecutorBacklog < 0 {
		return fmt.Errorf("executor backlog cannot be negative: %d", c.ExecutorBacklog)
	}
	return nil
}

func (c Config) validateTelemetry() error {
	switch strings.ToLower(c.MetricsBackend) {
	case "", "prometheus", "prom", "otel", "opentelemetry", "noop":
	default:
		return fmt.Errorf("unknown metrics backend: %s", c.MetricsBackend)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if c.LogLevel != "" && !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return nil
}

// LoadFile reads and parses a YAML config file, applying defaults and
// validating the result -- the same shape the teacher's config layer uses
// to round-trip UnifiedBusinessConfig.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
