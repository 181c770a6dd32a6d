package continuum

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/nvandessel/artcheck/internal/models"
)

// DefaultTolerance is the accepted relative deviation from a baseline.
const DefaultTolerance = 0.10

// Verdict is the outcome of one ratio check.
type Verdict string

const (
	Pass Verdict = "PASS"
	Fail Verdict = "FAIL"
)

// Ratio names one of the three care-continuum ratios.
type Ratio int

const (
	RatioInCare Ratio = iota
	RatioSuppressed
	RatioWithin30
)

// Ratios lists the ratios in report column order.
var Ratios = []Ratio{RatioInCare, RatioSuppressed, RatioWithin30}

func (r Ratio) String() string {
	switch r {
	case RatioInCare:
		return "in_care"
	case RatioSuppressed:
		return "suppressed_vl"
	case RatioWithin30:
		return "in_care_within_30"
	}
	return fmt.Sprintf("Ratio(%d)", int(r))
}

// MarshalText encodes a Ratio by name.
func (r Ratio) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Value returns this ratio from a yearly summary.
func (r Ratio) Value(s models.Summary) float64 {
	switch r {
	case RatioInCare:
		return s.InCareFraction()
	case RatioSuppressed:
		return s.SuppressedFraction()
	case RatioWithin30:
		return s.Within30Fraction()
	}
	return math.NaN()
}

// Target returns this ratio's baseline from a Targets triple.
func (r Ratio) Target(t Targets) float64 {
	switch r {
	case RatioInCare:
		return t.InCare
	case RatioSuppressed:
		return t.Suppressed
	case RatioWithin30:
		return t.Within30
	}
	return math.NaN()
}

// Check is one verdict together with the simulated value it was based on.
type Check struct {
	Verdict Verdict `json:"verdict"`
	Value   float64 `json:"value"`
}

// MarshalJSON writes a non-finite Value as null.
func (c Check) MarshalJSON() ([]byte, error) {
	type check struct {
		Verdict Verdict  `json:"verdict"`
		Value   *float64 `json:"value"`
	}
	out := check{Verdict: c.Verdict}
	if !math.IsNaN(c.Value) && !math.IsInf(c.Value, 0) {
		out.Value = &c.Value
	}
	return json.Marshal(out)
}

// YearResult holds the three checks for one calendar year, indexed by Ratio.
type YearResult struct {
	Year   int      `json:"year"`
	Checks [3]Check `json:"checks"`
}

// Check returns the check for one ratio.
func (y YearResult) Check(r Ratio) Check {
	return y.Checks[r]
}

// Passed reports whether all three checks passed.
func (y YearResult) Passed() bool {
	for _, c := range y.Checks {
		if c.Verdict != Pass {
			return false
		}
	}
	return true
}

// Evaluation is the comparison of one run's yearly summaries.
type Evaluation struct {
	Years []YearResult `json:"years"`

	// Skipped lists summary years that have no baseline entry.
	Skipped []int `json:"skipped,omitempty"`
}

// Comparator checks yearly summaries against a baseline table.
type Comparator struct {
	Tolerance float64
	Baselines BaselineTable
}

// NewComparator returns a Comparator with the given tolerance and table.
// A non-positive tolerance selects DefaultTolerance; a nil table selects
// DefaultBaselines.
func NewComparator(tolerance float64, baselines BaselineTable) *Comparator {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if baselines == nil {
		baselines = DefaultBaselines()
	}
	return &Comparator{Tolerance: tolerance, Baselines: baselines}
}

// Compare reports whether simulated lies strictly inside the tolerance band
// around baseline. Values on the band edges and NaN fail.
func (c *Comparator) Compare(simulated, baseline float64) bool {
	return baseline*(1-c.Tolerance) < simulated && simulated < baseline*(1+c.Tolerance)
}

// EvaluateYear checks a summary's three ratios against targets.
func (c *Comparator) EvaluateYear(s models.Summary, t Targets) YearResult {
	res := YearResult{Year: s.Year}
	for _, r := range Ratios {
		v := r.Value(s)
		verdict := Fail
		if c.Compare(v, r.Target(t)) {
			verdict = Pass
		}
		res.Checks[r] = Check{Verdict: verdict, Value: v}
	}
	return res
}

// EvaluateRun checks every summary that has a baseline entry, keeping the
// summaries' order. Years without a baseline are listed in Skipped.
func (c *Comparator) EvaluateRun(summaries []models.Summary) Evaluation {
	var ev Evaluation
	for _, s := range summaries {
		t, ok := c.Baselines[s.Year]
		if !ok {
			ev.Skipped = append(ev.Skipped, s.Year)
			continue
		}
		ev.Years = append(ev.Years, c.EvaluateYear(s, t))
	}
	return ev
}

// ReduceDigits renders x with exactly two decimals, e.g. 0.7 -> "0.70".
// Exact binary ties round half to even: 0.125 -> "0.12", 0.625 -> "0.62".
func ReduceDigits(x float64) string {
	return fmt.Sprintf("%.2f", x)
}
