package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/artcheck/internal/constants"
	"github.com/nvandessel/artcheck/internal/continuum"
	"github.com/nvandessel/artcheck/internal/logging"
	"github.com/nvandessel/artcheck/internal/plot"
	"github.com/nvandessel/artcheck/internal/report"
	"github.com/spf13/cobra"
)

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [numerics-file]",
		Short: "Redraw the comparison charts from a numerics report",
		Long: `Read a check_summary_numerics.txt written by "artcheck run" and draw one
comparison chart per ratio against the baseline table, without
re-reading the ARTRollout files.

Charts are written next to the report unless --out is given.

Examples:
  artcheck plot
  artcheck plot ./batch/check_summary_numerics.txt --plot-format svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("plot-format") {
				cfg.Output.PlotFormat, _ = cmd.Flags().GetString("plot-format")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			path := constants.NumericsReport
			if len(args) == 1 {
				path = args[0]
			}
			outDir, _ := cmd.Flags().GetString("out")
			if outDir == "" {
				outDir = filepath.Dir(path)
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open numerics report: %w", err)
			}
			runs, err := report.ReadNumerics(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
			baselines := continuum.NewComparator(cfg.Comparison.Tolerance, cfg.Comparison.Baselines).Baselines
			series := func(r continuum.Ratio) []plot.Series { return plot.ReportSeries(runs, r) }
			written := renderPlots(logger, outDir, cfg.Output.PlotFormat, baselines, series)
			if len(written) == 0 {
				return fmt.Errorf("no charts drawn from %s", path)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"runs":  len(runs),
					"plots": written,
				})
			}
			for _, p := range written {
				fmt.Fprintf(cmd.OutOrStdout(), "Chart: %s\n", p)
			}
			return nil
		},
	}

	cmd.Flags().String("out", "", "Output directory (default: the report's directory)")
	cmd.Flags().String("plot-format", "", "Chart format: pdf, png, svg")

	return cmd
}
