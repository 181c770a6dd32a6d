package aggregate

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nvandessel/artcheck/internal/models"
)

var anchor2014 = models.Anchor{Year: 2014, Month: 12}

type month struct {
	time                                          int
	infected, detected, inCare, newDiag, enrolled int
	suppressed                                    int
}

// observation builds a row where every count sits in the male and
// white non-hispanic cells of its record.
func observation(t *testing.T, m month) models.Observation {
	t.Helper()
	row := make([]int, 73)
	row[0] = m.time
	row[1] = 10000
	counts := []int{m.infected, m.detected, m.inCare, m.newDiag, m.enrolled, m.suppressed}
	for q, c := range counts {
		off := 6 + q*models.RecordLen
		row[off] = c
		row[off+7] = c
	}
	obs, err := models.NewObservation(row)
	if err != nil {
		t.Fatalf("NewObservation() error = %v", err)
	}
	return obs
}

// months builds observations for each time in [from, to] with flows of 2
// new diagnoses and 1 enrollment per month and detected = 10*time.
func months(t *testing.T, from, to int) []models.Observation {
	t.Helper()
	var out []models.Observation
	for tm := from; tm <= to; tm++ {
		out = append(out, observation(t, month{
			time:       tm,
			infected:   200,
			detected:   10 * tm,
			inCare:     7 * tm,
			newDiag:    2,
			enrolled:   1,
			suppressed: 5 * tm,
		}))
	}
	return out
}

func options(mode Mode) Options {
	opts := DefaultOptions()
	opts.Mode = mode
	opts.Anchor = anchor2014
	return opts
}

func TestAggregate_Simple(t *testing.T) {
	res, err := Aggregate(months(t, 1, 24), options(ModeSimple))
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	want := []models.Summary{
		{Year: 2014, Infected: 200, Detected: 120, InCare: 84, NewDiagnosis: 24, EnrolledIn30: 12, SuppressedVL: 60},
		{Year: 2015, Infected: 200, Detected: 240, InCare: 168, NewDiagnosis: 24, EnrolledIn30: 12, SuppressedVL: 120},
	}
	if diff := cmp.Diff(want, res.Summaries); diff != "" {
		t.Errorf("summaries mismatch (-want +got):\n%s", diff)
	}
	if len(res.Truncated) != 0 {
		t.Errorf("Truncated = %v, want none", res.Truncated)
	}
	for _, s := range res.Summaries {
		if s.InCareFraction() != 0.7 {
			t.Errorf("year %d InCareFraction() = %v, want 0.7", s.Year, s.InCareFraction())
		}
	}
}

func TestAggregate_LagCorrected(t *testing.T) {
	res, err := Aggregate(months(t, 1, 27), options(ModeLagCorrected))
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	// Year one folds months 1-14 and snapshots month 14; year two folds
	// months 15-26 and snapshots month 26.
	want := []models.Summary{
		{Year: 2014, Infected: 200, Detected: 140, InCare: 98, NewDiagnosis: 28, EnrolledIn30: 14, SuppressedVL: 70},
		{Year: 2015, Infected: 200, Detected: 260, InCare: 182, NewDiagnosis: 24, EnrolledIn30: 12, SuppressedVL: 130},
	}
	if diff := cmp.Diff(want, res.Summaries); diff != "" {
		t.Errorf("summaries mismatch (-want +got):\n%s", diff)
	}
	if res.Mode != ModeLagCorrected {
		t.Errorf("Mode = %q, want %q", res.Mode, ModeLagCorrected)
	}
}

func TestAggregate_LagCorrectedTruncation(t *testing.T) {
	obs := months(t, 1, 25)

	res, err := Aggregate(obs, options(ModeLagCorrected))
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(res.Summaries) != 1 || res.Summaries[0].Year != 2014 {
		t.Fatalf("Summaries = %+v, want only 2014", res.Summaries)
	}
	if diff := cmp.Diff([]int{2015}, res.Truncated); diff != "" {
		t.Errorf("Truncated mismatch (-want +got):\n%s", diff)
	}

	opts := options(ModeLagCorrected)
	opts.RequireComplete = true
	if _, err := Aggregate(obs, opts); !errors.Is(err, models.ErrInsufficientData) {
		t.Errorf("Aggregate(RequireComplete) error = %v, want ErrInsufficientData", err)
	}
}

func TestAggregate_PartialYearDropped(t *testing.T) {
	for _, mode := range []Mode{ModeSimple, ModeLagCorrected} {
		res, err := Aggregate(months(t, 1, 11), options(mode))
		if err != nil {
			t.Fatalf("Aggregate(%s) error = %v", mode, err)
		}
		if len(res.Summaries) != 0 {
			t.Errorf("Aggregate(%s) = %+v, want no summaries", mode, res.Summaries)
		}
	}

	res, err := Aggregate(months(t, 1, 20), options(ModeSimple))
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(res.Summaries) != 1 {
		t.Errorf("len(Summaries) = %d, want 1", len(res.Summaries))
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	obs := months(t, 1, 40)
	for _, mode := range []Mode{ModeSimple, ModeLagCorrected} {
		first, err := Aggregate(obs, options(mode))
		if err != nil {
			t.Fatalf("Aggregate(%s) error = %v", mode, err)
		}
		second, err := Aggregate(obs, options(mode))
		if err != nil {
			t.Fatalf("Aggregate(%s) error = %v", mode, err)
		}
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("Aggregate(%s) not idempotent (-first +second):\n%s", mode, diff)
		}
	}
}

func TestAggregate_GapInMonths(t *testing.T) {
	obs := append(months(t, 1, 12), months(t, 25, 36)...)

	res, err := Aggregate(obs, options(ModeSimple))
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	var years []int
	for _, s := range res.Summaries {
		years = append(years, s.Year)
	}
	if diff := cmp.Diff([]int{2014, 2016}, years); diff != "" {
		t.Errorf("years mismatch (-want +got):\n%s", diff)
	}
	if res.Summaries[1].NewDiagnosis != 24 {
		t.Errorf("NewDiagnosis after gap = %d, want 24", res.Summaries[1].NewDiagnosis)
	}
}

func TestAggregate_MonthZeroIsYearEnd(t *testing.T) {
	res, err := Aggregate(months(t, 0, 12), options(ModeSimple))
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(res.Summaries) != 2 {
		t.Fatalf("len(Summaries) = %d, want 2", len(res.Summaries))
	}
	if res.Summaries[0].Year != 2013 || res.Summaries[0].NewDiagnosis != 2 {
		t.Errorf("first summary = %+v, want year 2013 with one month of flow", res.Summaries[0])
	}
}

func TestAggregate_Category(t *testing.T) {
	opts := options(ModeSimple)
	opts.Category = models.CategoryWhite
	res, err := Aggregate(months(t, 1, 12), opts)
	if err != nil {
		t.Fatalf("Aggregate(WHITE) error = %v", err)
	}
	if res.Summaries[0].Detected != 120 {
		t.Errorf("WHITE Detected = %d, want 120", res.Summaries[0].Detected)
	}

	opts.Category = models.CategoryHispanic
	res, err = Aggregate(months(t, 1, 12), opts)
	if err != nil {
		t.Fatalf("Aggregate(HISPANIC) error = %v", err)
	}
	if res.Summaries[0].Detected != 0 || res.Summaries[0].NewDiagnosis != 0 {
		t.Errorf("HISPANIC summary = %+v, want zero counts", res.Summaries[0])
	}
}

func TestAggregate_InvalidOptions(t *testing.T) {
	opts := options(ModeSimple)
	opts.Category = "ASIAN"
	if _, err := Aggregate(months(t, 1, 12), opts); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("Aggregate(ASIAN) error = %v, want ErrInvalidInput", err)
	}

	opts = options("weekly")
	if _, err := Aggregate(months(t, 1, 12), opts); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("Aggregate(weekly) error = %v, want ErrInvalidInput", err)
	}
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"":              ModeSimple,
		"simple":        ModeSimple,
		"lag":           ModeLagCorrected,
		"Lag-Corrected": ModeLagCorrected,
	}
	for in, want := range tests {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMode("december"); err == nil {
		t.Error("ParseMode(december) expected error")
	}
}
