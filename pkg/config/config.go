// Package config defines the compiler's configuration file: where the
// policy pack and centroid table live, how to log, and how the audit trail
// is stored and retained.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	// Policy locates the policy store.
	Policy PolicyConfig `yaml:"policy"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Audit configures the compliance-trail recorder.
	Audit AuditConfig `yaml:"audit"`

	// Merge configures the default adjacent-step merge pass.
	Merge MergeConfig `yaml:"merge"`
}

// PolicyConfig locates the policy pack and centroid table.
type PolicyConfig struct {
	// PackPath is the base pack YAML file; overlay fragments are loaded
	// from its directory.
	PackPath string `yaml:"pack_path"`

	// CentroidPath is the county-centroid JSON table. Optional; without it
	// the geospatial field fallbacks are disabled.
	CentroidPath string `yaml:"centroid_path"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// AuditConfig configures the compliance trail.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`

	// Backend is "sqlite" or "memory".
	Backend string `yaml:"backend"`

	// Path is the sqlite database file (sqlite backend only).
	Path string `yaml:"path"`

	// RetentionDays is how long trail events are kept. Zero disables
	// pruning.
	RetentionDays int `yaml:"retention_days"`

	// RetentionSchedule is the cron expression for scheduled pruning.
	RetentionSchedule string `yaml:"retention_schedule"`
}

// MergeConfig configures the default merge pass.
type MergeConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ThresholdFt float64 `yaml:"threshold_ft"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Policy: PolicyConfig{},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Audit: AuditConfig{
			Enabled:           false,
			Backend:           "sqlite",
			RetentionDays:     365,
			RetentionSchedule: "0 3 * * *",
		},
		Merge: MergeConfig{
			Enabled:     false,
			ThresholdFt: 100,
		},
	}
}

// Load reads a configuration file over the defaults. A missing file is not
// an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid logging format %q (want json or text)", c.Logging.Format)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}

	if c.Audit.Enabled {
		switch c.Audit.Backend {
		case "sqlite":
			if c.Audit.Path == "" {
				return fmt.Errorf("audit backend sqlite requires audit.path")
			}
		case "memory":
		default:
			return fmt.Errorf("invalid audit backend %q (want sqlite or memory)", c.Audit.Backend)
		}
		if c.Audit.RetentionDays < 0 {
			return fmt.Errorf("audit retention_days cannot be negative")
		}
	}

	if c.Merge.Enabled && c.Merge.ThresholdFt <= 0 {
		return fmt.Errorf("merge threshold_ft must be positive when merging is enabled")
	}

	return nil
}
