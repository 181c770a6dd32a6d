// Package plot draws simulated care-continuum ratios for every run of a
// batch against the baseline series.
package plot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/nvandessel/artcheck/internal/continuum"
	"github.com/nvandessel/artcheck/internal/report"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Series is one line on a chart, keyed by calendar year.
type Series struct {
	Name   string
	Points map[int]float64
}

// xys returns the finite points in year order. Missing years are bridged.
func (s Series) xys() plotter.XYs {
	years := make([]int, 0, len(s.Points))
	for y, v := range s.Points {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		years = append(years, y)
	}
	sort.Ints(years)

	xys := make(plotter.XYs, len(years))
	for i, y := range years {
		xys[i].X = float64(y)
		xys[i].Y = s.Points[y]
	}
	return xys
}

// Chart is one ratio across runs.
type Chart struct {
	Title    string
	YLabel   string
	Runs     []Series
	Baseline *Series
}

// RunSeries extracts one ratio from each run's evaluation.
func RunSeries(names []string, evals []continuum.Evaluation, r continuum.Ratio) []Series {
	out := make([]Series, len(evals))
	for i, ev := range evals {
		s := Series{Name: names[i], Points: make(map[int]float64, len(ev.Years))}
		for _, y := range ev.Years {
			s.Points[y.Year] = y.Check(r).Value
		}
		out[i] = s
	}
	return out
}

// ReportSeries extracts one ratio from runs read back from a numerics
// report. Runs that recorded an error have no rows and are skipped.
func ReportSeries(runs []report.NumericsRun, r continuum.Ratio) []Series {
	var out []Series
	for _, run := range runs {
		if run.Error != "" {
			continue
		}
		s := Series{Name: run.Name, Points: make(map[int]float64, len(run.Rows))}
		for _, row := range run.Rows {
			s.Points[row.Year] = row.Values[r]
		}
		out = append(out, s)
	}
	return out
}

// BaselineSeries extracts one ratio from the baseline table.
func BaselineSeries(b continuum.BaselineTable, r continuum.Ratio) *Series {
	s := &Series{Name: "baseline", Points: make(map[int]float64, len(b))}
	for y, t := range b {
		s.Points[y] = r.Target(t)
	}
	return s
}

// yearTicks puts a labelled tick on every whole year.
type yearTicks struct{}

func (yearTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for y := math.Ceil(min); y <= max; y++ {
		ticks = append(ticks, plot.Tick{Value: y, Label: strconv.Itoa(int(y))})
	}
	return ticks
}

// Render draws the chart and saves it to path; the extension selects the
// format (pdf, png, svg).
func Render(path string, c Chart) error {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = "Year"
	p.Y.Label.Text = c.YLabel
	p.X.Tick.Marker = yearTicks{}
	p.Legend.Top = true

	drawn := 0
	for i, s := range c.Runs {
		xys := s.xys()
		if len(xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("plotting %s: %w", s.Name, err)
		}
		line.Width = vg.Points(0.5)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.Name, line)
		drawn++
	}

	if c.Baseline != nil {
		if xys := c.Baseline.xys(); len(xys) > 0 {
			line, points, err := plotter.NewLinePoints(xys)
			if err != nil {
				return fmt.Errorf("plotting baseline: %w", err)
			}
			line.Width = vg.Points(1.5)
			line.Color = color.Black
			points.Color = color.Black
			p.Add(line, points)
			p.Legend.Add(c.Baseline.Name, line, points)
			drawn++
		}
	}

	if drawn == 0 {
		return fmt.Errorf("chart %q has no finite data", c.Title)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating plot directory: %w", err)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
