// Package config loads the YAML-driven configuration for the delaycore
// demo harness: scenario/node counts, break windows and the address the
// demo exposes metrics on. It never configures the delay package's own
// behaviour, which is determined only by the arguments passed to
// delay.NewDurationSample and delay.NewDelayTracker.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the demo harness's configuration surface.
type Config struct {
	Harness HarnessConfig `yaml:"harness"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// HarnessConfig sizes the synthetic problem driven through the demo
// routing engine.
type HarnessConfig struct {
	Scenarios     int   `yaml:"scenarios"`
	Vehicles      int   `yaml:"vehicles"`
	VisitsPerCar  int   `yaml:"visits_per_vehicle"`
	BreakStart    int64 `yaml:"break_start_seconds"`
	BreakDuration int64 `yaml:"break_duration_seconds"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures internal/metrics' HTTP exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// DefaultConfig returns the harness's built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Harness: HarnessConfig{
			Scenarios:     3,
			Vehicles:      1,
			VisitsPerCar:  2,
			BreakStart:    0,
			BreakDuration: 0,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Metrics: MetricsConfig{Enabled: true, Address: ":9090"},
	}
}

// Load reads a YAML config file at path, falling back to DefaultConfig
// when path is empty and no default file is present. The environment
// variables DELAYCORE_LOG_LEVEL, DELAYCORE_METRICS_ADDRESS and
// DELAYCORE_SCENARIOS override the loaded value; no other field is read
// from the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "./delaycore.yaml"
		if _, err := os.Stat(path); err != nil {
			return applyEnvOverrides(cfg), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return applyEnvOverrides(cfg), nil
}

func applyEnvOverrides(cfg *Config) *Config {
	if v := os.Getenv("DELAYCORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DELAYCORE_METRICS_ADDRESS"); v != "" {
		cfg.Metrics.Address = v
	}
	if v := os.Getenv("DELAYCORE_SCENARIOS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Harness.Scenarios = n
		}
	}
	return cfg
}

// Save writes cfg to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshalling: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// Validate checks the loaded configuration for obviously invalid values.
func (c *Config) Validate() error {
	if c.Harness.Scenarios <= 0 {
		return fmt.Errorf("harness.scenarios must be > 0")
	}
	if c.Harness.Vehicles <= 0 {
		return fmt.Errorf("harness.vehicles must be > 0")
	}
	if c.Harness.BreakDuration < 0 {
		return fmt.Errorf("harness.break_duration_seconds must be >= 0")
	}
	switch c.Logging.Format {
	case "json", "console", "":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
