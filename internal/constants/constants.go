// Package constants provides named defaults used throughout artcheck.
package constants

// Output file names written into the output directory.
const (
	// PassFailReport lists PASS/FAIL verdicts per run and year.
	PassFailReport = "check_summary_passfail.txt"

	// NumericsReport lists the simulated ratios per run and year.
	NumericsReport = "check_summary_numerics.txt"

	// MetricsFile is the Prometheus textfile written after a batch.
	MetricsFile = "artcheck.prom"

	// DatabaseFile is the run-history database.
	DatabaseFile = "artcheck.db"
)

// Plot file names, one per care-continuum ratio. The extension selects the
// image format.
const (
	InCarePlot     = "in_care"
	SuppressedPlot = "supp_vl"
	Within30Plot   = "in_care_within30"

	DefaultPlotFormat = "pdf"
)

// ConfigDir is the per-user directory holding config.yaml and the
// run-history database.
const ConfigDir = ".artcheck"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARTCHECK_"
