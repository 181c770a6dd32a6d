package models

import "fmt"

// MonthsPerYear is the number of simulation time steps in one calendar year.
const MonthsPerYear = 12

// MinRowLen is the shortest row that holds a full Observation.
const MinRowLen = 72

// Quantity names one of the six quantities of interest in a monthly row.
type Quantity int

const (
	Infected Quantity = iota
	Detected
	InCare
	NewDiagnosis
	EnrolledIn30
	SuppressedVL
)

var quantityNames = [...]string{"infected", "detected", "in_care", "new_diagnosis", "enrolled_in_30", "suppressed_vl"}

func (q Quantity) String() string {
	if q < 0 || int(q) >= len(quantityNames) {
		return fmt.Sprintf("Quantity(%d)", int(q))
	}
	return quantityNames[q]
}

// quantityOffsets are the row offsets where each quantity's record starts.
var quantityOffsets = [...]int{6, 17, 28, 39, 50, 61}

// Anchor pins a simulation time index to a real-world calendar year: the
// time step Month falls in calendar year Year.
type Anchor struct {
	Year  int `json:"year" yaml:"year"`
	Month int `json:"month" yaml:"month"`
}

// DefaultAnchor treats time step 12 as the end of 1990.
var DefaultAnchor = Anchor{Year: 1990, Month: 12}

// Observation is one monthly row of simulation output.
type Observation struct {
	Time       int
	Population int
	records    [6]Record
}

// NewObservation builds an Observation from a parsed row. Values past
// MinRowLen are ignored.
func NewObservation(row []int) (Observation, error) {
	if len(row) < MinRowLen {
		return Observation{}, fmt.Errorf("row has %d values, need at least %d: %w", len(row), MinRowLen, ErrInvalidInput)
	}
	if row[0] < 0 {
		return Observation{}, fmt.Errorf("negative time index %d: %w", row[0], ErrInvalidInput)
	}

	o := Observation{Time: row[0], Population: row[1]}
	for q, off := range quantityOffsets {
		rec, err := NewRecord(row[off : off+RecordLen])
		if err != nil {
			return Observation{}, fmt.Errorf("%s: %w", Quantity(q), err)
		}
		o.records[q] = rec
	}
	return o, nil
}

// Get returns the record for one quantity of interest.
func (o Observation) Get(q Quantity) Record {
	return o.records[q]
}

// IsYearEnd reports whether a whole number of years has elapsed at this step.
func (o Observation) IsYearEnd() bool {
	return o.Time%MonthsPerYear == 0
}

// YearsElapsed is the number of whole years since the start of the simulation.
func (o Observation) YearsElapsed() int {
	return o.Time / MonthsPerYear
}

// CalendarYear maps the observation's time index to a calendar year using
// the anchor's (year, month) pair.
func (o Observation) CalendarYear(a Anchor) int {
	return a.Year - (a.Month/MonthsPerYear - o.YearsElapsed())
}

// ValidateSequence checks that time indices strictly increase.
func ValidateSequence(obs []Observation) error {
	for i := 1; i < len(obs); i++ {
		if obs[i].Time <= obs[i-1].Time {
			return fmt.Errorf("time index %d at position %d does not follow %d: %w",
				obs[i].Time, i, obs[i-1].Time, ErrInvalidInput)
		}
	}
	return nil
}
