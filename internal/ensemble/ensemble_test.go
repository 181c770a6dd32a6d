package ensemble

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/nvandessel/artcheck/internal/continuum"
)

func year(y int, inCare float64, inCareVerdict continuum.Verdict, within30 float64) continuum.YearResult {
	return continuum.YearResult{Year: y, Checks: [3]continuum.Check{
		{Verdict: inCareVerdict, Value: inCare},
		{Verdict: continuum.Pass, Value: 0.55},
		{Verdict: continuum.Fail, Value: within30},
	}}
}

func TestSummarize(t *testing.T) {
	evals := []continuum.Evaluation{
		{Years: []continuum.YearResult{year(2014, 0.6, continuum.Fail, 0.5), year(2015, 0.7, continuum.Pass, 0.6)}},
		{Years: []continuum.YearResult{year(2014, 0.7, continuum.Pass, math.Inf(1))}},
		{Years: []continuum.YearResult{year(2014, 0.8, continuum.Fail, math.NaN())}},
	}

	stats := Summarize(evals, continuum.DefaultBaselines())

	if len(stats) != 6 {
		t.Fatalf("len(stats) = %d, want 6", len(stats))
	}
	if stats[0].Year != 2014 || stats[0].Ratio != continuum.RatioInCare {
		t.Fatalf("first stat = %+v, want 2014 in_care", stats[0])
	}

	inCare := stats[0]
	if inCare.Runs != 3 || inCare.Finite != 3 {
		t.Errorf("runs/finite = %d/%d, want 3/3", inCare.Runs, inCare.Finite)
	}
	if math.Abs(inCare.Mean-0.7) > 1e-12 {
		t.Errorf("Mean = %v, want 0.7", inCare.Mean)
	}
	if math.Abs(inCare.StdDev-0.1) > 1e-12 {
		t.Errorf("StdDev = %v, want 0.1", inCare.StdDev)
	}
	if inCare.Min != 0.6 || inCare.Max != 0.8 {
		t.Errorf("Min/Max = %v/%v, want 0.6/0.8", inCare.Min, inCare.Max)
	}
	if math.Abs(inCare.PassRate-1.0/3) > 1e-12 {
		t.Errorf("PassRate = %v, want 1/3", inCare.PassRate)
	}
	if inCare.Baseline != 0.67 {
		t.Errorf("Baseline = %v, want 0.67", inCare.Baseline)
	}

	within := stats[2]
	if within.Ratio != continuum.RatioWithin30 || within.Finite != 1 || within.Runs != 3 {
		t.Errorf("within30 stat = %+v, want 1 finite of 3 runs", within)
	}
	if within.StdDev != 0 || within.Mean != 0.5 {
		t.Errorf("single-value moments = %v/%v, want 0.5/0", within.Mean, within.StdDev)
	}

	if stats[3].Year != 2015 || stats[3].Runs != 1 {
		t.Errorf("2015 stat = %+v, want one run", stats[3])
	}
}

func TestSummarize_Empty(t *testing.T) {
	if got := Summarize(nil, continuum.DefaultBaselines()); len(got) != 0 {
		t.Errorf("Summarize(nil) = %v, want empty", got)
	}
}

func TestSummarize_AllNonFinite(t *testing.T) {
	evals := []continuum.Evaluation{
		{Years: []continuum.YearResult{year(2030, math.NaN(), continuum.Fail, math.NaN())}},
	}
	stats := Summarize(evals, continuum.DefaultBaselines())
	if !math.IsNaN(stats[0].Mean) || stats[0].Finite != 0 {
		t.Errorf("stat = %+v, want NaN mean with no finite values", stats[0])
	}
	if stats[0].Baseline != 0 {
		t.Errorf("Baseline = %v, want 0 for a year without a baseline", stats[0].Baseline)
	}
}

func TestStatJSON_UndefinedMomentsAreNull(t *testing.T) {
	evals := []continuum.Evaluation{
		{Years: []continuum.YearResult{year(2016, math.NaN(), continuum.Fail, 0.7)}},
	}
	stats := Summarize(evals, continuum.DefaultBaselines())

	data, err := json.Marshal(stats[0])
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got := string(data)
	for _, want := range []string{`"ratio":"in_care"`, `"mean":null`, `"std_dev":null`, `"baseline":0.7`} {
		if !strings.Contains(got, want) {
			t.Errorf("JSON %s missing %s", got, want)
		}
	}
}
