// Package ensemble summarizes one ratio across all runs of a batch.
package ensemble

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/nvandessel/artcheck/internal/continuum"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stat describes one (year, ratio) cell across the runs that reached it.
// Moments cover finite values only; PassRate counts every run.
type Stat struct {
	Year     int             `json:"year"`
	Ratio    continuum.Ratio `json:"ratio"`
	Baseline float64         `json:"baseline"`
	Runs     int             `json:"runs"`
	Finite   int             `json:"finite"`
	Mean     float64         `json:"mean"`
	StdDev   float64         `json:"std_dev"`
	Min      float64         `json:"min"`
	Max      float64         `json:"max"`
	PassRate float64         `json:"pass_rate"`
}

// MarshalJSON writes undefined moments as null.
func (s Stat) MarshalJSON() ([]byte, error) {
	type stat struct {
		Year     int             `json:"year"`
		Ratio    continuum.Ratio `json:"ratio"`
		Baseline float64         `json:"baseline"`
		Runs     int             `json:"runs"`
		Finite   int             `json:"finite"`
		Mean     *float64        `json:"mean"`
		StdDev   *float64        `json:"std_dev"`
		Min      *float64        `json:"min"`
		Max      *float64        `json:"max"`
		PassRate float64         `json:"pass_rate"`
	}
	return json.Marshal(stat{
		Year:     s.Year,
		Ratio:    s.Ratio,
		Baseline: s.Baseline,
		Runs:     s.Runs,
		Finite:   s.Finite,
		Mean:     finite(s.Mean),
		StdDev:   finite(s.StdDev),
		Min:      finite(s.Min),
		Max:      finite(s.Max),
		PassRate: s.PassRate,
	})
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

type cellKey struct {
	year  int
	ratio continuum.Ratio
}

type cell struct {
	values []float64
	runs   int
	passes int
}

// Summarize folds per-run evaluations into per-year, per-ratio statistics,
// ordered by year then ratio.
func Summarize(evals []continuum.Evaluation, baselines continuum.BaselineTable) []Stat {
	cells := make(map[cellKey]*cell)
	for _, ev := range evals {
		for _, y := range ev.Years {
			for _, r := range continuum.Ratios {
				k := cellKey{year: y.Year, ratio: r}
				c, ok := cells[k]
				if !ok {
					c = &cell{}
					cells[k] = c
				}
				check := y.Check(r)
				c.runs++
				if check.Verdict == continuum.Pass {
					c.passes++
				}
				if !math.IsNaN(check.Value) && !math.IsInf(check.Value, 0) {
					c.values = append(c.values, check.Value)
				}
			}
		}
	}

	stats := make([]Stat, 0, len(cells))
	for k, c := range cells {
		s := Stat{
			Year:     k.year,
			Ratio:    k.ratio,
			Runs:     c.runs,
			Finite:   len(c.values),
			PassRate: float64(c.passes) / float64(c.runs),
			Mean:     math.NaN(),
			StdDev:   math.NaN(),
			Min:      math.NaN(),
			Max:      math.NaN(),
		}
		if t, ok := baselines[k.year]; ok {
			s.Baseline = k.ratio.Target(t)
		}
		if len(c.values) > 0 {
			s.Mean, s.StdDev = stat.MeanStdDev(c.values, nil)
			if len(c.values) < 2 {
				s.StdDev = 0
			}
			s.Min = floats.Min(c.values)
			s.Max = floats.Max(c.values)
		}
		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Year != stats[j].Year {
			return stats[i].Year < stats[j].Year
		}
		return stats[i].Ratio < stats[j].Ratio
	})
	return stats
}
