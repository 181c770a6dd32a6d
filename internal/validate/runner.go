// Package validate runs the care-continuum check over a batch of
// ARTRollout files, one file at a time.
package validate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/artcheck/internal/aggregate"
	"github.com/nvandessel/artcheck/internal/artfile"
	"github.com/nvandessel/artcheck/internal/continuum"
	"github.com/nvandessel/artcheck/internal/ensemble"
	"github.com/nvandessel/artcheck/internal/logging"
	"github.com/nvandessel/artcheck/internal/metrics"
	"github.com/nvandessel/artcheck/internal/models"
)

// RunResult is the outcome for one input file. A failed file has Err set
// and no evaluation; it never aborts the batch.
type RunResult struct {
	File         string               `json:"file"`
	Name         string               `json:"name"`
	Observations int                  `json:"observations"`
	Aggregation  aggregate.Result     `json:"aggregation"`
	Evaluation   continuum.Evaluation `json:"evaluation"`
	Error        string               `json:"error,omitempty"`
	Err          error                `json:"-"`
}

// Failed reports whether the file could not be evaluated.
func (r RunResult) Failed() bool {
	return r.Err != nil
}

// Batch is the outcome for a whole input directory.
type Batch struct {
	ID       string          `json:"id"`
	Started  time.Time       `json:"started"`
	Finished time.Time       `json:"finished"`
	Runs     []RunResult     `json:"runs"`
	Ensemble []ensemble.Stat `json:"ensemble,omitempty"`
}

// Failures counts runs with an error.
func (b Batch) Failures() int {
	n := 0
	for _, r := range b.Runs {
		if r.Failed() {
			n++
		}
	}
	return n
}

// Evaluations returns the names and evaluations of the successful runs.
func (b Batch) Evaluations() ([]string, []continuum.Evaluation) {
	var names []string
	var evals []continuum.Evaluation
	for _, r := range b.Runs {
		if r.Failed() {
			continue
		}
		names = append(names, r.Name)
		evals = append(evals, r.Evaluation)
	}
	return names, evals
}

// Options configures a Runner.
type Options struct {
	Read      artfile.ReadOptions
	Aggregate aggregate.Options
}

// Runner evaluates files against a Comparator. Logger must be non-nil;
// Trace and Metrics may be nil.
type Runner struct {
	opts       Options
	comparator *continuum.Comparator

	Logger  *slog.Logger
	Trace   *logging.TraceLogger
	Metrics *metrics.Recorder
}

// NewRunner returns a Runner that discards log output.
func NewRunner(comparator *continuum.Comparator, opts Options) *Runner {
	return &Runner{
		opts:       opts,
		comparator: comparator,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// RunFiles evaluates each file in order. It stops early only when ctx is
// cancelled, returning the runs finished so far together with ctx's error.
func (r *Runner) RunFiles(ctx context.Context, files []string) (Batch, error) {
	b := Batch{ID: uuid.NewString(), Started: time.Now().UTC()}
	r.Logger.Info("starting batch", "batch", b.ID, "files", len(files),
		"mode", r.opts.Aggregate.Mode, "category", r.opts.Aggregate.Category)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			b.Finished = time.Now().UTC()
			return b, err
		}
		b.Runs = append(b.Runs, r.RunFile(f))
	}

	_, evals := b.Evaluations()
	b.Ensemble = ensemble.Summarize(evals, r.comparator.Baselines)
	b.Finished = time.Now().UTC()
	r.Metrics.Finish(b.Started)

	r.Logger.Info("batch complete", "batch", b.ID, "runs", len(b.Runs), "failed", b.Failures(),
		"elapsed", b.Finished.Sub(b.Started).Round(time.Millisecond))
	return b, nil
}

// RunFile reads and evaluates one file.
func (r *Runner) RunFile(path string) RunResult {
	obs, err := artfile.ReadFile(path, r.opts.Read)
	if err != nil {
		res := RunResult{File: path, Name: filepath.Base(path), Err: err, Error: err.Error()}
		r.record(res)
		return res
	}
	r.Metrics.Parsed(len(obs))

	res := r.Evaluate(filepath.Base(path), obs)
	res.File = path
	r.record(res)
	return res
}

// Evaluate aggregates and compares an already-parsed observation sequence.
func (r *Runner) Evaluate(name string, obs []models.Observation) RunResult {
	res := RunResult{Name: name, Observations: len(obs)}

	agg, err := aggregate.Aggregate(obs, r.opts.Aggregate)
	if err != nil {
		res.Err = fmt.Errorf("aggregating %s: %w", name, err)
		res.Error = res.Err.Error()
		return res
	}
	res.Aggregation = agg
	res.Evaluation = r.comparator.EvaluateRun(agg.Summaries)
	return res
}

// record logs, traces and counts a finished run.
func (r *Runner) record(res RunResult) {
	if res.Failed() {
		r.Logger.Error("run failed", "file", res.Name, "error", res.Err)
		r.Trace.Log("run_failed", map[string]any{"file": res.File, "error": res.Err.Error()})
		r.Metrics.FileDone("error")
		return
	}

	r.Metrics.FileDone("ok")
	r.Metrics.Dropped(len(res.Aggregation.Truncated), len(res.Evaluation.Skipped))

	if len(res.Aggregation.Truncated) > 0 {
		r.Logger.Warn("dropped trailing year without lag months", "file", res.Name, "years", res.Aggregation.Truncated)
	}
	if len(res.Evaluation.Skipped) > 0 {
		r.Logger.Debug("no baseline for years", "file", res.Name, "years", res.Evaluation.Skipped)
	}

	for _, s := range res.Aggregation.Summaries {
		r.Logger.Log(context.Background(), logging.LevelTrace, "yearly summary", "file", res.Name,
			"year", s.Year, "detected", s.Detected, "in_care", s.InCare, "suppressed_vl", s.SuppressedVL,
			"new_diagnosis", s.NewDiagnosis, "enrolled_in_30", s.EnrolledIn30)
	}

	for _, y := range res.Evaluation.Years {
		fields := map[string]any{"file": res.File, "year": y.Year}
		for _, ratio := range continuum.Ratios {
			c := y.Check(ratio)
			r.Metrics.Checked(ratio.String(), string(c.Verdict))
			fields[ratio.String()] = string(c.Verdict)
			fields[ratio.String()+"_value"] = continuum.ReduceDigits(c.Value)
		}
		r.Trace.Log("year_checked", fields)
	}

	r.Logger.Info("run evaluated", "file", res.Name, "observations", res.Observations,
		"years", len(res.Evaluation.Years))
}
