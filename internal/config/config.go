// Package config provides configuration loading for artcheck.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nvandessel/artcheck/internal/aggregate"
	"github.com/nvandessel/artcheck/internal/artfile"
	"github.com/nvandessel/artcheck/internal/constants"
	"github.com/nvandessel/artcheck/internal/continuum"
	"github.com/nvandessel/artcheck/internal/models"
	"gopkg.in/yaml.v3"
)

// Config contains all artcheck settings.
type Config struct {
	Input       InputConfig       `json:"input" yaml:"input"`
	Aggregation AggregationConfig `json:"aggregation" yaml:"aggregation"`
	Comparison  ComparisonConfig  `json:"comparison" yaml:"comparison"`
	Output      OutputConfig      `json:"output" yaml:"output"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
}

// InputConfig controls discovery and parsing of ARTRollout files.
type InputConfig struct {
	// Pattern is a doublestar glob relative to the batch root.
	Pattern string `json:"pattern" yaml:"pattern"`

	// StrictTokens fails a run on any non-integer token in a data row
	// instead of dropping the token.
	StrictTokens bool `json:"strict_tokens" yaml:"strict_tokens"`
}

// AggregationConfig controls the monthly-to-yearly fold.
type AggregationConfig struct {
	// Mode is "simple" or "lag-corrected".
	Mode string `json:"mode" yaml:"mode"`

	// Category is WHITE, BLACK, HISPANIC, OTHER or TOTAL.
	Category string `json:"category" yaml:"category"`

	// QueryMode is "filtered" or "aggregate"; see models.QueryMode.
	QueryMode string `json:"query_mode" yaml:"query_mode"`

	// Anchor pins a simulation month to a calendar year.
	Anchor models.Anchor `json:"anchor" yaml:"anchor"`

	// RequireComplete fails a lag-corrected run whose last year is cut short.
	RequireComplete bool `json:"require_complete" yaml:"require_complete"`
}

// ComparisonConfig controls the baseline comparison.
type ComparisonConfig struct {
	// Tolerance is the accepted relative deviation, e.g. 0.10 for ±10%.
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`

	// Baselines replaces the built-in Miami table when set.
	Baselines continuum.BaselineTable `json:"baselines" yaml:"baselines"`
}

// OutputConfig controls what a batch writes.
type OutputConfig struct {
	Dir        string `json:"dir" yaml:"dir"`
	Plots      bool   `json:"plots" yaml:"plots"`
	PlotFormat string `json:"plot_format" yaml:"plot_format"`
	History    bool   `json:"history" yaml:"history"`

	// HistoryScope is "local" (output dir) or "global" (~/.artcheck).
	HistoryScope string `json:"history_scope" yaml:"history_scope"`
	Metrics      bool   `json:"metrics" yaml:"metrics"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level sets the log verbosity: "warn", "info" (default), "debug", or "trace".
	// "debug" and "trace" also write evaluations.jsonl to the output directory.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with the built-in Miami baselines and simple
// aggregation over TOTAL counts.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Pattern: artfile.DefaultPattern,
		},
		Aggregation: AggregationConfig{
			Mode:      string(aggregate.ModeSimple),
			Category:  string(models.CategoryTotal),
			QueryMode: string(models.QueryFiltered),
			Anchor:    models.DefaultAnchor,
		},
		Comparison: ComparisonConfig{
			Tolerance: continuum.DefaultTolerance,
			Baselines: continuum.DefaultBaselines(),
		},
		Output: OutputConfig{
			Dir:          ".",
			Plots:        true,
			PlotFormat:   constants.DefaultPlotFormat,
			History:      true,
			HistoryScope: string(constants.ScopeLocal),
			Metrics:      true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.artcheck/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, constants.ConfigDir, "config.yaml"), nil
}

// Load loads configuration from the default location and environment variables.
// Order: defaults -> ~/.artcheck/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	if path, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			fileConfig, loadErr := LoadFromFile(path)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// LoadPath is Load with an explicit file in place of the default location.
// Order: defaults -> path -> environment variables
func LoadPath(path string) (*Config, error) {
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. A baselines
// section replaces the built-in table rather than merging with it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	config.Comparison.Baselines = nil
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if config.Comparison.Baselines == nil {
		config.Comparison.Baselines = continuum.DefaultBaselines()
	}

	return config, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := c.AggregateOptions(); err != nil {
		return err
	}

	if c.Comparison.Tolerance <= 0 || c.Comparison.Tolerance >= 1 {
		return fmt.Errorf("tolerance must be between 0 and 1 (exclusive), got %f", c.Comparison.Tolerance)
	}
	if err := c.Comparison.Baselines.Validate(); err != nil {
		return err
	}

	validFormats := map[string]bool{"pdf": true, "png": true, "svg": true}
	if !validFormats[c.Output.PlotFormat] {
		return fmt.Errorf("invalid plot format: %s (valid: pdf, png, svg)", c.Output.PlotFormat)
	}
	if !constants.Scope(c.Output.HistoryScope).Valid() {
		return fmt.Errorf("invalid history scope: %s (valid: local, global)", c.Output.HistoryScope)
	}

	validLevels := map[string]bool{"warn": true, "info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: warn, info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// AggregateOptions converts the aggregation section into aggregate.Options.
func (c *Config) AggregateOptions() (aggregate.Options, error) {
	mode, err := aggregate.ParseMode(c.Aggregation.Mode)
	if err != nil {
		return aggregate.Options{}, err
	}
	category, err := models.ParseCategory(c.Aggregation.Category)
	if err != nil {
		return aggregate.Options{}, err
	}
	queryMode, err := models.ParseQueryMode(c.Aggregation.QueryMode)
	if err != nil {
		return aggregate.Options{}, err
	}
	if c.Aggregation.Anchor.Month < 0 {
		return aggregate.Options{}, fmt.Errorf("anchor month must be non-negative, got %d: %w",
			c.Aggregation.Anchor.Month, models.ErrInvalidInput)
	}

	return aggregate.Options{
		Mode:            mode,
		Category:        category,
		QueryMode:       queryMode,
		Anchor:          c.Aggregation.Anchor,
		RequireComplete: c.Aggregation.RequireComplete,
	}, nil
}

// applyEnvOverrides applies ARTCHECK_* environment variables to the config.
func applyEnvOverrides(config *Config) {
	env := func(name string) string { return os.Getenv(constants.EnvPrefix + name) }

	if v := env("PATTERN"); v != "" {
		config.Input.Pattern = v
	}
	if v := env("STRICT_TOKENS"); v != "" {
		config.Input.StrictTokens = v == "true" || v == "1"
	}
	if v := env("MODE"); v != "" {
		config.Aggregation.Mode = v
	}
	if v := env("CATEGORY"); v != "" {
		config.Aggregation.Category = v
	}
	if v := env("QUERY_MODE"); v != "" {
		config.Aggregation.QueryMode = v
	}
	if v := env("ANCHOR_YEAR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Aggregation.Anchor.Year = n
		}
	}
	if v := env("ANCHOR_MONTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Aggregation.Anchor.Month = n
		}
	}
	if v := env("TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Comparison.Tolerance = f
		}
	}
	if v := env("OUT_DIR"); v != "" {
		config.Output.Dir = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}
