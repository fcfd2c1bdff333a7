// Package main implements the agentprobe CLI for inspecting stored
// traces and baselines and running regression comparisons.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentprobe/internal/config"
	"github.com/fyrsmithlabs/agentprobe/internal/logging"
	"github.com/fyrsmithlabs/agentprobe/internal/storage"
)

var (
	// configPath is the optional YAML config file
	configPath string
	// outputJSON switches output to JSON
	outputJSON bool
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agentprobe",
	Short: "Trace capture, replay, and regression detection for AI agents",
	Long: `agentprobe records agent execution traces, replays them against mocked
tools, and compares test runs against stored baselines to surface
regressions.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output results as JSON")
}

// setup loads config, builds the logger, and opens the configured
// store. The caller must Close the store.
func setup() (*config.Config, *zap.Logger, storage.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.New(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	var store storage.Store
	switch cfg.Storage.Backend {
	case "badger":
		store, err = storage.NewBadgerStore(storage.DefaultBadgerConfig(cfg.Storage.Path), logger)
	default:
		store, err = storage.NewFSStore(cfg.Storage.Path, logger)
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}
	return cfg, logger, store, nil
}
