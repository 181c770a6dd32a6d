// Package aggregate folds monthly simulation observations into calendar-year
// summaries.
package aggregate

import (
	"fmt"
	"strings"

	"github.com/nvandessel/artcheck/internal/models"
)

// Mode selects which month supplies a year's point-in-time figures.
type Mode string

const (
	// ModeSimple snapshots the year-end month itself.
	ModeSimple Mode = "simple"

	// ModeLagCorrected snapshots LagMonths after the year-end month and
	// folds the flow quantities of those months into the closing year.
	ModeLagCorrected Mode = "lag-corrected"
)

// LagMonths is the reporting lag applied in ModeLagCorrected.
const LagMonths = 2

// ParseMode maps a name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSimple, "":
		return ModeSimple, nil
	case ModeLagCorrected, "lag":
		return ModeLagCorrected, nil
	}
	return "", fmt.Errorf("unknown aggregation mode %q: %w", s, models.ErrInvalidInput)
}

// Options controls one aggregation pass.
type Options struct {
	Mode      Mode
	Category  models.Category
	QueryMode models.QueryMode
	Anchor    models.Anchor

	// RequireComplete turns a dropped trailing year into ErrInsufficientData.
	RequireComplete bool
}

// DefaultOptions aggregates TOTAL counts in simple mode with the default anchor.
func DefaultOptions() Options {
	return Options{
		Mode:      ModeSimple,
		Category:  models.CategoryTotal,
		QueryMode: models.QueryFiltered,
		Anchor:    models.DefaultAnchor,
	}
}

// Result is the outcome of one aggregation pass.
type Result struct {
	Mode      Mode             `json:"mode"`
	Summaries []models.Summary `json:"summaries"`

	// Truncated lists calendar years whose year-end was reached but whose
	// lag months were missing from the input. They are not in Summaries.
	Truncated []int `json:"truncated,omitempty"`
}

// Aggregate turns an ordered observation sequence into one Summary per
// year-end boundary, in the order the boundaries appear. A trailing partial
// year without a boundary produces nothing. Aggregate does not modify obs
// and returns the same result for the same input.
func Aggregate(obs []models.Observation, opts Options) (Result, error) {
	if opts.Mode == "" {
		opts.Mode = ModeSimple
	}
	if opts.Mode != ModeSimple && opts.Mode != ModeLagCorrected {
		return Result{}, fmt.Errorf("aggregate: unknown mode %q: %w", opts.Mode, models.ErrInvalidInput)
	}
	if opts.QueryMode == "" {
		opts.QueryMode = models.QueryFiltered
	}

	// Reject a bad category or query mode before touching data.
	if _, err := (models.Record{}).Count(opts.QueryMode, opts.Category); err != nil {
		return Result{}, fmt.Errorf("aggregate: %w", err)
	}

	count := func(o models.Observation, q models.Quantity) int {
		n, _ := o.Get(q).Count(opts.QueryMode, opts.Category)
		return n
	}

	res := Result{Mode: opts.Mode}
	var newDiag, enrolled int

	for i := 0; i < len(obs); i++ {
		month := obs[i]
		newDiag += count(month, models.NewDiagnosis)
		enrolled += count(month, models.EnrolledIn30)

		if !month.IsYearEnd() {
			continue
		}

		year := month.CalendarYear(opts.Anchor)
		snapshot := month

		if opts.Mode == ModeLagCorrected {
			if i+LagMonths >= len(obs) {
				if opts.RequireComplete {
					return Result{}, fmt.Errorf("aggregate: year %d needs %d months past time %d, have %d: %w",
						year, LagMonths, month.Time, len(obs)-1-i, models.ErrInsufficientData)
				}
				res.Truncated = append(res.Truncated, year)
				break
			}
			for j := 1; j <= LagMonths; j++ {
				newDiag += count(obs[i+j], models.NewDiagnosis)
				enrolled += count(obs[i+j], models.EnrolledIn30)
			}
			snapshot = obs[i+LagMonths]
			i += LagMonths
		}

		res.Summaries = append(res.Summaries, models.Summary{
			Year:         year,
			Infected:     count(snapshot, models.Infected),
			Detected:     count(snapshot, models.Detected),
			InCare:       count(snapshot, models.InCare),
			NewDiagnosis: newDiag,
			EnrolledIn30: enrolled,
			SuppressedVL: count(snapshot, models.SuppressedVL),
		})

		newDiag, enrolled = 0, 0
	}

	return res, nil
}
