package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/bruadam/hvx-sub000/internal/holiday"
)

// Config is the application configuration for an evaluation run.
type Config struct {
	Region            string           `yaml:"region"`             // holiday calendar region
	StandardsDir      string           `yaml:"standards_dir"`      // root of the standards hierarchy
	Workers           int              `yaml:"workers"`            // table-level fan-out width
	IncludeViolations bool             `yaml:"include_violations"` // attach violation intervals to results
	CustomHolidays    []holiday.Custom `yaml:"custom_holidays"`
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() *Config {
	return &Config{
		Region:       "dk",
		StandardsDir: filepath.Join("config", "standards"),
		Workers:      4,
	}
}

// Load reads configuration from a YAML file, applying defaults for
// omitted fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency and returns a list
// of problems, empty when the configuration is usable.
func (c *Config) Validate() []string {
	var errors []string

	if c.Region == "" {
		errors = append(errors, "region must not be empty")
	}
	if c.StandardsDir == "" {
		errors = append(errors, "standards_dir must not be empty")
	}
	if c.Workers < 1 {
		errors = append(errors, fmt.Sprintf("workers %d must be at least 1", c.Workers))
	}
	for _, custom := range c.CustomHolidays {
		if _, err := time.Parse(holiday.DateFormat, custom.Date); err != nil {
			errors = append(errors, fmt.Sprintf("custom holiday %q has invalid date %q", custom.Name, custom.Date))
		}
	}
	return errors
}
