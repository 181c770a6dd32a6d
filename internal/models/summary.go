package models

// Epsilon keeps the within-30-days fraction finite when a year had no new
// diagnoses.
const Epsilon = 0.0001

// Summary is one calendar year of aggregated figures for one run.
// Point-in-time counts are taken at the year's snapshot month; NewDiagnosis
// and EnrolledIn30 are summed over every month folded into the year.
type Summary struct {
	Year         int `json:"year"`
	Infected     int `json:"infected"`
	Detected     int `json:"detected"`
	InCare       int `json:"in_care"`
	NewDiagnosis int `json:"new_diagnosis"`
	EnrolledIn30 int `json:"enrolled_in_30"`
	SuppressedVL int `json:"suppressed_vl"`
}

// InCareFraction is in-care / detected.
func (s Summary) InCareFraction() float64 {
	return float64(s.InCare) / float64(s.Detected)
}

// SuppressedFraction is suppressed-VL / detected.
func (s Summary) SuppressedFraction() float64 {
	return float64(s.SuppressedVL) / float64(s.Detected)
}

// Within30Fraction is enrolled-within-30-days / (new diagnoses + Epsilon).
func (s Summary) Within30Fraction() float64 {
	return float64(s.EnrolledIn30) / (float64(s.NewDiagnosis) + Epsilon)
}
