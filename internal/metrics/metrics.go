// Package metrics counts what a validation batch did and writes the counts
// as a Prometheus textfile for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the batch counters on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	FilesProcessed *prometheus.CounterVec
	Observations   prometheus.Counter
	YearChecks     *prometheus.CounterVec
	YearsTruncated prometheus.Counter
	YearsSkipped   prometheus.Counter
	Duration       prometheus.Gauge
	LastSuccess    prometheus.Gauge
}

// NewRecorder registers a fresh set of counters.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		FilesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artcheck_files_processed_total",
				Help: "ARTRollout files processed, by outcome",
			},
			[]string{"status"},
		),
		Observations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artcheck_observations_parsed_total",
			Help: "Monthly rows parsed across all files",
		}),
		YearChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artcheck_year_checks_total",
				Help: "Yearly ratio checks against the baseline, by ratio and verdict",
			},
			[]string{"ratio", "verdict"},
		),
		YearsTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artcheck_years_truncated_total",
			Help: "Trailing years dropped because lag months were missing",
		}),
		YearsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artcheck_years_skipped_total",
			Help: "Aggregated years with no baseline entry",
		}),
		Duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "artcheck_batch_duration_seconds",
			Help: "Wall time of the last batch",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "artcheck_last_batch_timestamp_seconds",
			Help: "Unix time the last batch finished",
		}),
	}

	r.registry.MustRegister(
		r.FilesProcessed,
		r.Observations,
		r.YearChecks,
		r.YearsTruncated,
		r.YearsSkipped,
		r.Duration,
		r.LastSuccess,
	)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// FileDone counts one processed file; status is "ok" or "error".
func (r *Recorder) FileDone(status string) {
	if r == nil {
		return
	}
	r.FilesProcessed.WithLabelValues(status).Inc()
}

// Parsed adds n parsed monthly rows.
func (r *Recorder) Parsed(n int) {
	if r == nil {
		return
	}
	r.Observations.Add(float64(n))
}

// Checked counts one ratio verdict.
func (r *Recorder) Checked(ratio, verdict string) {
	if r == nil {
		return
	}
	r.YearChecks.WithLabelValues(ratio, verdict).Inc()
}

// Dropped counts truncated and skipped years.
func (r *Recorder) Dropped(truncated, skipped int) {
	if r == nil {
		return
	}
	r.YearsTruncated.Add(float64(truncated))
	r.YearsSkipped.Add(float64(skipped))
}

// Finish records the batch wall time and completion timestamp.
func (r *Recorder) Finish(started time.Time) {
	if r == nil {
		return
	}
	r.Duration.Set(time.Since(started).Seconds())
	r.LastSuccess.SetToCurrentTime()
}

// WriteTextfile writes the registry in the Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
