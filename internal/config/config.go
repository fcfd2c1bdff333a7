// Package config provides configuration loading for agentprobe.
package config

import (
	"fmt"
	"time"
)

// Config is the full agentprobe configuration.
type Config struct {
	Storage    StorageConfig    `koanf:"storage" json:"storage"`
	Runner     RunnerConfig     `koanf:"runner" json:"runner"`
	Regression RegressionConfig `koanf:"regression" json:"regression"`
	Cost       CostConfig       `koanf:"cost" json:"cost"`
	Logging    LoggingConfig    `koanf:"logging" json:"logging"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Backend is "fs" or "badger".
	Backend string `koanf:"backend" json:"backend"`

	// Path is the root directory for stored data.
	Path string `koanf:"path" json:"path"`
}

// RunnerConfig configures test execution.
type RunnerConfig struct {
	// Parallelism bounds concurrent test executions.
	Parallelism int `koanf:"parallelism" json:"parallelism"`

	// DefaultTimeout applies to test cases without their own timeout.
	DefaultTimeout Duration `koanf:"default_timeout" json:"default_timeout"`

	// PassThreshold is the aggregate score at which a test passes.
	PassThreshold float64 `koanf:"pass_threshold" json:"pass_threshold"`
}

// RegressionConfig configures baseline comparison.
type RegressionConfig struct {
	// Threshold is the score delta at which a change counts as a
	// regression or an improvement.
	Threshold float64 `koanf:"threshold" json:"threshold"`
}

// CostConfig configures pricing and budgets.
type CostConfig struct {
	// PricingFile is the YAML pricing table path. Empty disables cost
	// accounting.
	PricingFile string `koanf:"pricing_file" json:"pricing_file"`

	// BudgetUSD caps total run spend. Zero disables the budget.
	BudgetUSD float64 `koanf:"budget_usd" json:"budget_usd"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level" json:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format" json:"format"`
}

// applyDefaults fills zero values with defaults.
func applyDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "fs"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = ".agentprobe"
	}
	if cfg.Runner.Parallelism == 0 {
		cfg.Runner.Parallelism = 1
	}
	if cfg.Runner.DefaultTimeout == 0 {
		cfg.Runner.DefaultTimeout = Duration(2 * time.Minute)
	}
	if cfg.Runner.PassThreshold == 0 {
		cfg.Runner.PassThreshold = 0.7
	}
	if cfg.Regression.Threshold == 0 {
		cfg.Regression.Threshold = 0.05
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "fs", "badger":
	default:
		return fmt.Errorf("storage.backend must be fs or badger, got %q", c.Storage.Backend)
	}
	if c.Runner.Parallelism < 1 {
		return fmt.Errorf("runner.parallelism must be at least 1, got %d", c.Runner.Parallelism)
	}
	if c.Runner.PassThreshold < 0 || c.Runner.PassThreshold > 1 {
		return fmt.Errorf("runner.pass_threshold must be in [0, 1], got %v", c.Runner.PassThreshold)
	}
	if c.Regression.Threshold <= 0 || c.Regression.Threshold > 1 {
		return fmt.Errorf("regression.threshold must be in (0, 1], got %v", c.Regression.Threshold)
	}
	if c.Cost.BudgetUSD < 0 {
		return fmt.Errorf("cost.budget_usd must not be negative, got %v", c.Cost.BudgetUSD)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// Default returns the configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
