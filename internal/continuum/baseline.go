// Package continuum compares simulated care-continuum ratios against
// published baseline values.
package continuum

import (
	"fmt"
	"sort"
)

// Targets are the three published ratios for one calendar year.
type Targets struct {
	InCare     float64 `json:"in_care" yaml:"in_care"`
	Suppressed float64 `json:"suppressed" yaml:"suppressed"`
	Within30   float64 `json:"within_30" yaml:"within_30"`
}

// BaselineTable maps a calendar year to its published targets.
type BaselineTable map[int]Targets

// DefaultBaselines returns the Miami care continuum from the 2019 Florida
// HIV integrated epidemiological profile.
//
//	year  in_care  suppressed_VL  in_care_within_30
//	2014   0.67        0.52            0.64
//	2015   0.68        0.57            0.68
//	2016   0.70        0.59            0.70
//	2017   0.71        0.60            0.79
//	2018   0.72        0.62            0.84
//	2019   0.73        0.62            0.85
func DefaultBaselines() BaselineTable {
	return BaselineTable{
		2014: {InCare: 0.67, Suppressed: 0.52, Within30: 0.64},
		2015: {InCare: 0.68, Suppressed: 0.57, Within30: 0.68},
		2016: {InCare: 0.70, Suppressed: 0.59, Within30: 0.70},
		2017: {InCare: 0.71, Suppressed: 0.60, Within30: 0.79},
		2018: {InCare: 0.72, Suppressed: 0.62, Within30: 0.84},
		2019: {InCare: 0.73, Suppressed: 0.62, Within30: 0.85},
	}
}

// Years returns the table's years in ascending order.
func (b BaselineTable) Years() []int {
	years := make([]int, 0, len(b))
	for y := range b {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Validate rejects non-positive targets, which would make every comparison fail.
func (b BaselineTable) Validate() error {
	if len(b) == 0 {
		return fmt.Errorf("baseline table is empty")
	}
	for y, t := range b {
		if t.InCare <= 0 || t.Suppressed <= 0 || t.Within30 <= 0 {
			return fmt.Errorf("baseline %d has non-positive target: %+v", y, t)
		}
	}
	return nil
}
