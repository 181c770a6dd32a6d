package plot

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nvandessel/artcheck/internal/continuum"
	"github.com/nvandessel/artcheck/internal/report"
)

func evaluation(values map[int]float64) continuum.Evaluation {
	var ev continuum.Evaluation
	for _, y := range []int{2014, 2015, 2016} {
		v, ok := values[y]
		if !ok {
			continue
		}
		ev.Years = append(ev.Years, continuum.YearResult{Year: y, Checks: [3]continuum.Check{
			{Verdict: continuum.Pass, Value: v},
			{Verdict: continuum.Pass, Value: v / 2},
			{Verdict: continuum.Fail, Value: math.Inf(1)},
		}})
	}
	return ev
}

func TestRunSeries(t *testing.T) {
	evals := []continuum.Evaluation{
		evaluation(map[int]float64{2014: 0.7, 2015: 0.8}),
		evaluation(map[int]float64{2016: 0.6}),
	}
	got := RunSeries([]string{"a", "b"}, evals, continuum.RatioSuppressed)

	want := []Series{
		{Name: "a", Points: map[int]float64{2014: 0.35, 2015: 0.4}},
		{Name: "b", Points: map[int]float64{2016: 0.3}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RunSeries() mismatch (-want +got):\n%s", diff)
	}
}

func TestReportSeries(t *testing.T) {
	runs := []report.NumericsRun{
		{Name: "a", Rows: []report.NumericsRow{
			{Year: 2014, Values: [3]float64{0.7, 0.52, 0.64}},
			{Year: 2015, Values: [3]float64{0.68, 0.57, math.Inf(1)}},
		}},
		{Name: "bad", Error: "line 7: invalid input"},
		{Name: "b", Rows: []report.NumericsRow{{Year: 2016, Values: [3]float64{0.7, 0.59, 0.7}}}},
	}

	got := ReportSeries(runs, continuum.RatioSuppressed)
	want := []Series{
		{Name: "a", Points: map[int]float64{2014: 0.52, 2015: 0.57}},
		{Name: "b", Points: map[int]float64{2016: 0.59}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReportSeries() mismatch (-want +got):\n%s", diff)
	}
}

func TestSeries_xysSkipsNonFinite(t *testing.T) {
	s := Series{Points: map[int]float64{2016: 0.5, 2014: 0.7, 2015: math.NaN(), 2017: math.Inf(1)}}
	xys := s.xys()
	if len(xys) != 2 {
		t.Fatalf("len(xys) = %d, want 2", len(xys))
	}
	if xys[0].X != 2014 || xys[1].X != 2016 {
		t.Errorf("xys = %v, want 2014 then 2016", xys)
	}
}

func TestBaselineSeries(t *testing.T) {
	s := BaselineSeries(continuum.DefaultBaselines(), continuum.RatioWithin30)
	if len(s.Points) != 6 || s.Points[2019] != 0.85 {
		t.Errorf("baseline series = %+v", s.Points)
	}
}

func TestYearTicks(t *testing.T) {
	ticks := yearTicks{}.Ticks(2013.5, 2016.2)
	var labels []string
	for _, tk := range ticks {
		labels = append(labels, tk.Label)
	}
	if diff := cmp.Diff([]string{"2014", "2015", "2016"}, labels); diff != "" {
		t.Errorf("tick labels mismatch (-want +got):\n%s", diff)
	}
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	evals := []continuum.Evaluation{
		evaluation(map[int]float64{2014: 0.7, 2015: 0.8, 2016: 0.75}),
		evaluation(map[int]float64{2014: 0.65, 2016: 0.7}),
	}
	chart := Chart{
		Title:    "In care",
		YLabel:   "In Care%",
		Runs:     RunSeries([]string{"a", "b"}, evals, continuum.RatioInCare),
		Baseline: BaselineSeries(continuum.DefaultBaselines(), continuum.RatioInCare),
	}

	for _, name := range []string{"in_care.png", "in_care.svg", "sub/in_care.pdf"} {
		path := filepath.Join(dir, name)
		if err := Render(path, chart); err != nil {
			t.Fatalf("Render(%s) error = %v", name, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Stat(%s) error = %v", name, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestRender_NoData(t *testing.T) {
	chart := Chart{
		Title: "Within 30",
		Runs:  RunSeries([]string{"a"}, []continuum.Evaluation{evaluation(map[int]float64{2014: 1})}, continuum.RatioWithin30),
	}
	if err := Render(filepath.Join(t.TempDir(), "w.png"), chart); err == nil {
		t.Error("Render() with only non-finite values expected error")
	}
}

func TestRender_LegendNamesEveryRun(t *testing.T) {
	evals := []continuum.Evaluation{
		evaluation(map[int]float64{2014: 0.7, 2015: 0.8}),
		evaluation(map[int]float64{2014: 0.65, 2015: 0.7}),
	}
	chart := Chart{
		Title:    "In care",
		Runs:     RunSeries([]string{"alpha_run", "beta_run"}, evals, continuum.RatioInCare),
		Baseline: BaselineSeries(continuum.DefaultBaselines(), continuum.RatioInCare),
	}

	path := filepath.Join(t.TempDir(), "in_care.svg")
	if err := Render(path, chart); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"alpha_run", "beta_run", "baseline"} {
		if !strings.Contains(string(data), name) {
			t.Errorf("legend missing %q", name)
		}
	}
}
