// Package report renders evaluation results as the tab-separated
// pass/fail and numeric summaries.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nvandessel/artcheck/internal/constants"
	"github.com/nvandessel/artcheck/internal/continuum"
)

// Header is the column header written before each run's rows.
const Header = "Year\t In Care%\t Suppr. VL%\t In Care in 30 days% "

// Run is what gets reported for one input file.
type Run struct {
	Name       string
	Evaluation continuum.Evaluation
	Err        error
}

// Writer writes runs to a pass/fail stream and a numerics stream.
type Writer struct {
	passFail *bufio.Writer
	numerics *bufio.Writer
	closers  []io.Closer
}

// NewWriter wraps two streams.
func NewWriter(passFail, numerics io.Writer) *Writer {
	return &Writer{
		passFail: bufio.NewWriter(passFail),
		numerics: bufio.NewWriter(numerics),
	}
}

// Create opens (truncating) the two report files inside dir.
func Create(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}
	pf, err := os.Create(filepath.Join(dir, constants.PassFailReport))
	if err != nil {
		return nil, fmt.Errorf("creating pass/fail report: %w", err)
	}
	num, err := os.Create(filepath.Join(dir, constants.NumericsReport))
	if err != nil {
		pf.Close()
		return nil, fmt.Errorf("creating numerics report: %w", err)
	}

	w := NewWriter(pf, num)
	w.closers = []io.Closer{pf, num}
	return w, nil
}

// WriteRun appends one run: its name, the header, one row per evaluated
// year, and a blank separator line. A failed run gets an error line in
// place of the header and rows.
func (w *Writer) WriteRun(run Run) error {
	fmt.Fprintln(w.passFail, run.Name)
	fmt.Fprintln(w.numerics, run.Name)

	if run.Err != nil {
		fmt.Fprintf(w.passFail, "error: %v\n", run.Err)
		fmt.Fprintf(w.numerics, "error: %v\n", run.Err)
	} else {
		fmt.Fprintln(w.passFail, Header)
		fmt.Fprintln(w.numerics, Header)

		for _, y := range run.Evaluation.Years {
			in, sup, w30 := y.Check(continuum.RatioInCare), y.Check(continuum.RatioSuppressed), y.Check(continuum.RatioWithin30)
			fmt.Fprintf(w.passFail, "%d:\t %s\t\t%s\t\t%s\n", y.Year, in.Verdict, sup.Verdict, w30.Verdict)
			fmt.Fprintf(w.numerics, "%d:\t %s\t\t%s\t\t%s\n", y.Year,
				continuum.ReduceDigits(in.Value), continuum.ReduceDigits(sup.Value), continuum.ReduceDigits(w30.Value))
		}
	}

	fmt.Fprintln(w.passFail)
	fmt.Fprintln(w.numerics)
	return w.Flush()
}

// Flush flushes both streams.
func (w *Writer) Flush() error {
	if err := w.passFail.Flush(); err != nil {
		return fmt.Errorf("writing pass/fail report: %w", err)
	}
	if err := w.numerics.Flush(); err != nil {
		return fmt.Errorf("writing numerics report: %w", err)
	}
	return nil
}

// Close flushes and closes any files opened by Create.
func (w *Writer) Close() error {
	err := w.Flush()
	for _, c := range w.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	w.closers = nil
	return err
}
