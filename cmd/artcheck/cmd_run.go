package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/nvandessel/artcheck/internal/artfile"
	"github.com/nvandessel/artcheck/internal/config"
	"github.com/nvandessel/artcheck/internal/constants"
	"github.com/nvandessel/artcheck/internal/continuum"
	"github.com/nvandessel/artcheck/internal/logging"
	"github.com/nvandessel/artcheck/internal/metrics"
	"github.com/nvandessel/artcheck/internal/plot"
	"github.com/nvandessel/artcheck/internal/report"
	"github.com/nvandessel/artcheck/internal/store"
	"github.com/nvandessel/artcheck/internal/validate"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Check every ARTRollout file in a batch directory",
		Long: `Find every ARTRollout file under path (default: current directory),
aggregate it into calendar years and compare the yearly ratios against
the baseline table.

Writes check_summary_passfail.txt, check_summary_numerics.txt, one
comparison chart per ratio, artcheck.prom and the run history database
to the output directory.

The older two-argument form is also accepted:
  artcheck run <anchor-month> <path>

Examples:
  artcheck run ./batch
  artcheck run ./batch --mode lag-corrected --category HISPANIC
  artcheck run 600 ./batch --no-plots`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			root, err := resolveRunArgs(cfg, args)
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
			defer stop()

			return runBatch(ctx, cmd, cfg, root)
		},
	}

	cmd.Flags().String("mode", "", "Aggregation mode: simple or lag-corrected")
	cmd.Flags().String("category", "", "Demographic category: WHITE, BLACK, HISPANIC, OTHER, TOTAL")
	cmd.Flags().String("query-mode", "", "Category query: filtered or aggregate")
	cmd.Flags().Int("anchor-year", 0, "Calendar year of the anchor month")
	cmd.Flags().Int("anchor-month", 0, "Simulation month index that falls in the anchor year")
	cmd.Flags().Float64("tolerance", 0, "Relative tolerance around each baseline (e.g. 0.10)")
	cmd.Flags().String("pattern", "", "Glob for input files, relative to path")
	cmd.Flags().Bool("strict", false, "Fail a file on any non-integer token")
	cmd.Flags().Bool("require-complete", false, "Fail a lag-corrected file whose last year lacks lag months")
	cmd.Flags().String("out", "", "Output directory")
	cmd.Flags().String("plot-format", "", "Chart format: pdf, png, svg")
	cmd.Flags().Bool("no-plots", false, "Skip chart rendering")
	cmd.Flags().Bool("no-store", false, "Skip saving runs to the history database")
	cmd.Flags().Bool("no-metrics", false, "Skip writing artcheck.prom")
	cmd.Flags().Bool("global", false, "Save history to ~/.artcheck instead of the output directory")

	return cmd
}

// resolveRunArgs returns the batch root. It also accepts the older
// positional forms "<anchor-month>" and "<anchor-month> <path>".
func resolveRunArgs(cfg *config.Config, args []string) (string, error) {
	switch len(args) {
	case 0:
		return ".", nil
	case 1:
		if month, err := strconv.Atoi(args[0]); err == nil {
			if _, statErr := os.Stat(args[0]); statErr != nil {
				cfg.Aggregation.Anchor.Month = month
				return ".", nil
			}
		}
		return args[0], nil
	default:
		month, err := strconv.Atoi(args[0])
		if err != nil {
			return "", fmt.Errorf("anchor month must be an integer, got %q", args[0])
		}
		cfg.Aggregation.Anchor.Month = month
		return args[1], nil
	}
}

// applyRunFlags copies explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()

	stringFlags := map[string]*string{
		"mode":        &cfg.Aggregation.Mode,
		"category":    &cfg.Aggregation.Category,
		"query-mode":  &cfg.Aggregation.QueryMode,
		"pattern":     &cfg.Input.Pattern,
		"out":         &cfg.Output.Dir,
		"plot-format": &cfg.Output.PlotFormat,
	}
	for name, dst := range stringFlags {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}

	if f.Changed("anchor-year") {
		cfg.Aggregation.Anchor.Year, _ = f.GetInt("anchor-year")
	}
	if f.Changed("anchor-month") {
		cfg.Aggregation.Anchor.Month, _ = f.GetInt("anchor-month")
	}
	if f.Changed("tolerance") {
		cfg.Comparison.Tolerance, _ = f.GetFloat64("tolerance")
	}
	if f.Changed("strict") {
		cfg.Input.StrictTokens, _ = f.GetBool("strict")
	}
	if f.Changed("require-complete") {
		cfg.Aggregation.RequireComplete, _ = f.GetBool("require-complete")
	}
	if noPlots, _ := f.GetBool("no-plots"); noPlots {
		cfg.Output.Plots = false
	}
	if noStore, _ := f.GetBool("no-store"); noStore {
		cfg.Output.History = false
	}
	if noMetrics, _ := f.GetBool("no-metrics"); noMetrics {
		cfg.Output.Metrics = false
	}
	if global, _ := f.GetBool("global"); global {
		cfg.Output.HistoryScope = string(constants.ScopeGlobal)
	}
}

// runOutputs lists the files a batch wrote.
type runOutputs struct {
	PassFail string   `json:"passfail"`
	Numerics string   `json:"numerics"`
	Plots    []string `json:"plots,omitempty"`
	History  string   `json:"history,omitempty"`
	Metrics  string   `json:"metrics,omitempty"`
	Trace    string   `json:"trace,omitempty"`
}

func runBatch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, root string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	outDir := cfg.Output.Dir

	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())

	files, err := artfile.Discover(root, cfg.Input.Pattern)
	if err != nil {
		return fmt.Errorf("failed to find input files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matching %q under %s", cfg.Input.Pattern, root)
	}

	// The trace creates outDir, so it opens only once there is work to do.
	trace := logging.NewTraceLogger(outDir, cfg.Logging.Level)
	defer trace.Close()

	aggOpts, err := cfg.AggregateOptions()
	if err != nil {
		return err
	}
	// Record canonical names in reports and history.
	cfg.Aggregation.Mode = string(aggOpts.Mode)
	cfg.Aggregation.Category = string(aggOpts.Category)
	cfg.Aggregation.QueryMode = string(aggOpts.QueryMode)
	comparator := continuum.NewComparator(cfg.Comparison.Tolerance, cfg.Comparison.Baselines)

	runner := validate.NewRunner(comparator, validate.Options{
		Read:      artfile.ReadOptions{StrictTokens: cfg.Input.StrictTokens},
		Aggregate: aggOpts,
	})
	runner.Logger = logger
	runner.Trace = trace
	var recorder *metrics.Recorder
	if cfg.Output.Metrics {
		recorder = metrics.NewRecorder()
		runner.Metrics = recorder
	}

	batch, err := runner.RunFiles(ctx, files)
	if err != nil {
		return fmt.Errorf("batch stopped after %d of %d files: %w", len(batch.Runs), len(files), err)
	}

	outputs, err := writeReports(outDir, batch)
	if err != nil {
		return err
	}
	if trace != nil {
		outputs.Trace = filepath.Join(outDir, logging.TraceFile)
	}

	if cfg.Output.Plots {
		names, evals := batch.Evaluations()
		series := func(r continuum.Ratio) []plot.Series { return plot.RunSeries(names, evals, r) }
		outputs.Plots = renderPlots(logger, outDir, cfg.Output.PlotFormat, comparator.Baselines, series)
	}

	if cfg.Output.History {
		path, err := saveHistory(ctx, cfg, batch)
		if err != nil {
			logger.Warn("failed to save run history", "error", err)
		} else {
			outputs.History = path
		}
	}

	if recorder != nil {
		path := filepath.Join(outDir, constants.MetricsFile)
		if err := recorder.WriteTextfile(path); err != nil {
			logger.Warn("failed to write metrics", "error", err)
		} else {
			outputs.Metrics = path
		}
	}

	if jsonOut {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
			"batch":   batch,
			"outputs": outputs,
		})
	}
	printBatch(cmd.OutOrStdout(), batch, outputs)
	return nil
}

func writeReports(dir string, batch validate.Batch) (runOutputs, error) {
	w, err := report.Create(dir)
	if err != nil {
		return runOutputs{}, fmt.Errorf("failed to create reports: %w", err)
	}
	for _, r := range batch.Runs {
		if err := w.WriteRun(report.Run{Name: r.Name, Evaluation: r.Evaluation, Err: r.Err}); err != nil {
			w.Close()
			return runOutputs{}, err
		}
	}
	if err := w.Close(); err != nil {
		return runOutputs{}, fmt.Errorf("failed to close reports: %w", err)
	}

	return runOutputs{
		PassFail: filepath.Join(dir, constants.PassFailReport),
		Numerics: filepath.Join(dir, constants.NumericsReport),
	}, nil
}

// chartSpecs maps each ratio to its file stem and labels.
var chartSpecs = []struct {
	ratio  continuum.Ratio
	stem   string
	title  string
	ylabel string
}{
	{continuum.RatioInCare, constants.InCarePlot, "In care", "In care / diagnosed"},
	{continuum.RatioSuppressed, constants.SuppressedPlot, "Viral suppression", "Suppressed VL / diagnosed"},
	{continuum.RatioWithin30, constants.Within30Plot, "In care within 30 days", "Enrolled in 30 days / new diagnoses"},
}

// renderPlots draws one chart per ratio, taking the run lines from series.
// A chart that cannot be drawn is logged and skipped.
func renderPlots(logger *slog.Logger, dir, format string, baselines continuum.BaselineTable, series func(continuum.Ratio) []plot.Series) []string {
	var written []string
	for _, spec := range chartSpecs {
		path := filepath.Join(dir, spec.stem+"."+format)
		chart := plot.Chart{
			Title:    spec.title,
			YLabel:   spec.ylabel,
			Runs:     series(spec.ratio),
			Baseline: plot.BaselineSeries(baselines, spec.ratio),
		}
		if err := plot.Render(path, chart); err != nil {
			logger.Warn("failed to render chart", "chart", spec.stem, "error", err)
			continue
		}
		written = append(written, path)
	}
	return written
}

// saveHistory stores every run of the batch and returns the database path.
func saveHistory(ctx context.Context, cfg *config.Config, batch validate.Batch) (string, error) {
	dir := cfg.Output.Dir
	if constants.Scope(cfg.Output.HistoryScope) == constants.ScopeGlobal {
		var err error
		dir, err = store.GlobalDir()
		if err != nil {
			return "", err
		}
	}

	s, err := store.NewSQLiteResultStore(dir)
	if err != nil {
		return "", err
	}
	defer s.Close()

	for _, r := range batch.Runs {
		rec := toRunRecord(cfg, batch, r)
		if _, err := s.SaveRun(ctx, &rec); err != nil {
			return "", fmt.Errorf("saving %s: %w", r.Name, err)
		}
	}
	return s.Path(), nil
}

func toRunRecord(cfg *config.Config, batch validate.Batch, r validate.RunResult) store.RunRecord {
	file := r.File
	if abs, err := filepath.Abs(file); err == nil {
		file = abs
	}
	return store.RunRecord{
		BatchID:      batch.ID,
		File:         file,
		CreatedAt:    batch.Finished,
		Mode:         cfg.Aggregation.Mode,
		Category:     cfg.Aggregation.Category,
		QueryMode:    cfg.Aggregation.QueryMode,
		Anchor:       cfg.Aggregation.Anchor,
		Tolerance:    cfg.Comparison.Tolerance,
		Observations: r.Observations,
		Summaries:    r.Aggregation.Summaries,
		Years:        r.Evaluation.Years,
		Truncated:    r.Aggregation.Truncated,
		Skipped:      r.Evaluation.Skipped,
		Error:        r.Error,
	}
}

func printBatch(w io.Writer, batch validate.Batch, outputs runOutputs) {
	for _, r := range batch.Runs {
		if r.Failed() {
			fmt.Fprintf(w, "%s: ERROR %v\n", r.Name, r.Err)
			continue
		}
		passed := 0
		for _, y := range r.Evaluation.Years {
			if y.Passed() {
				passed++
			}
		}
		fmt.Fprintf(w, "%s: %d/%d years pass", r.Name, passed, len(r.Evaluation.Years))
		if len(r.Aggregation.Truncated) > 0 {
			fmt.Fprintf(w, " (dropped %v)", r.Aggregation.Truncated)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\n%d files, %d failed (batch %s)\n", len(batch.Runs), batch.Failures(), batch.ID)
	fmt.Fprintf(w, "Reports: %s, %s\n", outputs.PassFail, outputs.Numerics)
	for _, p := range outputs.Plots {
		fmt.Fprintf(w, "Chart:   %s\n", p)
	}
	if outputs.History != "" {
		fmt.Fprintf(w, "History: %s\n", outputs.History)
	}
	if outputs.Metrics != "" {
		fmt.Fprintf(w, "Metrics: %s\n", outputs.Metrics)
	}
}
