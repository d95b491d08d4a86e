package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"caprock-hq/mesa/pkg/config"
	"caprock-hq/mesa/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "mesa",
	Short: "Mesa - plugging plan compiler for well P&A filings",
	Long: `Mesa compiles compliance plans for well plugging and abandonment filings.

Given a well's facts and its jurisdiction, it:
  - Resolves the layered plugging policy (base, district, county, field)
  - Falls back geospatially when a field has no policy in its county
  - Generates the plugging steps the policy requires
  - Computes cement volumes and sack counts per step
  - Assembles the plan with a filing-ready export table

For more information, visit: https://github.com/caprock-hq/mesa`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "mesa.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the config file named by --config, honoring --verbose.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the process logger from configuration.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	})
}
