package main

import (
	"fmt"
	"os"

	"github.com/nvandessel/artcheck/internal/config"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "artcheck",
		Short: "Check ARTRollout simulation output against care-continuum baselines",
		Long: `artcheck validates the ARTRollout output of an HIV epidemic simulation
against published care-continuum benchmarks.

For every ARTRollout file in a batch it aggregates monthly counts into
calendar years, computes the in-care, viral suppression and
in-care-within-30-days ratios, and reports whether each lies within the
tolerance band around its baseline.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.artcheck/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: warn, info, debug, trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newPlotCmd(),
		newBaselinesCmd(),
		newHistoryCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

// loadConfig loads the --config file if given, otherwise the default
// location, and applies the global --log-level flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadPath(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}
