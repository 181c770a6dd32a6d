package models

import (
	"fmt"
	"strings"
)

// RecordLen is the number of values in one stratified count vector.
const RecordLen = 11

// Category selects a demographic slice of a Record.
type Category string

const (
	CategoryWhite    Category = "WHITE"
	CategoryBlack    Category = "BLACK"
	CategoryHispanic Category = "HISPANIC"
	CategoryOther    Category = "OTHER"
	CategoryTotal    Category = "TOTAL"
)

// Categories lists every supported demographic filter.
var Categories = []Category{CategoryWhite, CategoryBlack, CategoryHispanic, CategoryOther, CategoryTotal}

// ParseCategory maps a case-insensitive name to a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown demographic category %q: %w", s, ErrInvalidInput)
}

// QueryMode chooses how ethnicity cells are combined for a Category.
//
// The two modes disagree for WHITE, BLACK, OTHER and HISPANIC. Both are kept
// until the intended semantics are confirmed.
type QueryMode string

const (
	// QueryFiltered counts non-hispanic cells only for WHITE/BLACK/OTHER and
	// all three hispanic cells for HISPANIC.
	QueryFiltered QueryMode = "filtered"

	// QueryAggregate combines hispanic and non-hispanic cells for
	// WHITE/BLACK/OTHER, and counts black and white hispanic cells for HISPANIC.
	QueryAggregate QueryMode = "aggregate"
)

// ParseQueryMode maps a name to a QueryMode.
func ParseQueryMode(s string) (QueryMode, error) {
	switch QueryMode(strings.ToLower(strings.TrimSpace(s))) {
	case QueryFiltered, "":
		return QueryFiltered, nil
	case QueryAggregate:
		return QueryAggregate, nil
	}
	return "", fmt.Errorf("unknown query mode %q: %w", s, ErrInvalidInput)
}

// Genders is the male/female split of a count.
type Genders struct {
	Male   int `json:"male"`
	Female int `json:"female"`
}

// Orientations breaks the male population down by sexual orientation.
type Orientations struct {
	MSM  int `json:"msm"`
	MSMW int `json:"msmw"`
	MSW  int `json:"msw"`
}

// Ethnicities holds the six race/hispanic-origin cells.
type Ethnicities struct {
	BlackNonHispanic int `json:"black_non_hispanic"`
	BlackHispanic    int `json:"black_hispanic"`
	WhiteNonHispanic int `json:"white_non_hispanic"`
	WhiteHispanic    int `json:"white_hispanic"`
	OtherNonHispanic int `json:"other_non_hispanic"`
	OtherHispanic    int `json:"other_hispanic"`
}

// Sum returns the total over all six cells.
func (e Ethnicities) Sum() int {
	return e.BlackNonHispanic + e.BlackHispanic +
		e.WhiteNonHispanic + e.WhiteHispanic +
		e.OtherNonHispanic + e.OtherHispanic
}

// Record is one quantity of interest (infected, detected, ...) at one time
// point, stratified by gender, orientation and ethnicity.
//
// Layout of the source vector:
//
//	| Gender  | Orientation | Ethnicity                |
//	| [0],[1] | [2],[3],[4] | [5],[6],[7],[8],[9],[10] |
type Record struct {
	Gender      Genders      `json:"gender"`
	Orientation Orientations `json:"orientation"`
	Ethnicity   Ethnicities  `json:"ethnicity"`
}

// NewRecord builds a Record from exactly RecordLen values.
func NewRecord(values []int) (Record, error) {
	if len(values) != RecordLen {
		return Record{}, fmt.Errorf("record needs %d values, got %d: %w", RecordLen, len(values), ErrInvalidInput)
	}
	return Record{
		Gender: Genders{Male: values[0], Female: values[1]},
		Orientation: Orientations{
			MSM:  values[2],
			MSMW: values[3],
			MSW:  values[4],
		},
		Ethnicity: Ethnicities{
			BlackNonHispanic: values[5],
			BlackHispanic:    values[6],
			WhiteNonHispanic: values[7],
			WhiteHispanic:    values[8],
			OtherNonHispanic: values[9],
			OtherHispanic:    values[10],
		},
	}, nil
}

// Total is male + female. Input is assumed self-consistent, so this also
// equals the ethnicity sum; the two are not cross-checked.
func (r Record) Total() int {
	return r.Gender.Male + r.Gender.Female
}

// FilteredCount returns the count for a demographic filter, counting
// non-hispanic cells only for WHITE, BLACK and OTHER.
func (r Record) FilteredCount(c Category) (int, error) {
	e := r.Ethnicity
	switch c {
	case CategoryWhite:
		return e.WhiteNonHispanic, nil
	case CategoryBlack:
		return e.BlackNonHispanic, nil
	case CategoryOther:
		return e.OtherNonHispanic, nil
	case CategoryHispanic:
		return e.WhiteHispanic + e.BlackHispanic + e.OtherHispanic, nil
	case CategoryTotal:
		return r.Total(), nil
	}
	return 0, fmt.Errorf("filtered count for %q: %w", c, ErrInvalidInput)
}

// AggregateCount returns the count for a demographic filter, combining the
// hispanic and non-hispanic cells of WHITE, BLACK and OTHER. HISPANIC here
// excludes the other-hispanic cell.
func (r Record) AggregateCount(c Category) (int, error) {
	e := r.Ethnicity
	switch c {
	case CategoryWhite:
		return e.WhiteHispanic + e.WhiteNonHispanic, nil
	case CategoryBlack:
		return e.BlackHispanic + e.BlackNonHispanic, nil
	case CategoryOther:
		return e.OtherHispanic + e.OtherNonHispanic, nil
	case CategoryHispanic:
		return e.BlackHispanic + e.WhiteHispanic, nil
	case CategoryTotal:
		return r.Total(), nil
	}
	return 0, fmt.Errorf("aggregate count for %q: %w", c, ErrInvalidInput)
}

// Count dispatches to FilteredCount or AggregateCount.
func (r Record) Count(mode QueryMode, c Category) (int, error) {
	switch mode {
	case QueryFiltered:
		return r.FilteredCount(c)
	case QueryAggregate:
		return r.AggregateCount(c)
	}
	return 0, fmt.Errorf("count with query mode %q: %w", mode, ErrInvalidInput)
}
