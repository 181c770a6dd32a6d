package artfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nvandessel/artcheck/internal/models"
)

// rowLine renders a 73-value monthly row with the given time index.
func rowLine(time int) string {
	vals := make([]string, 73)
	for i := range vals {
		vals[i] = "0"
	}
	vals[0] = fmt.Sprint(time)
	vals[1] = "5000"
	vals[17] = "100" // detected, male
	vals[28] = "70"  // in care, male
	return strings.Join(vals, "\t")
}

func artFile(times ...int) string {
	var b strings.Builder
	b.WriteString("ARTRollout output\n")
	b.WriteString("run 1\n")
	b.WriteString("\n")
	b.WriteString("time pop x y z\n")
	for _, tm := range times {
		b.WriteString(rowLine(tm))
		b.WriteString("\n")
	}
	return b.String()
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []int
	}{
		{"plain", "1 2 3", []int{1, 2, 3}},
		{"tabs and spaces", "  10\t20   30 ", []int{10, 20, 30}},
		{"drops words", "month 12 total 40", []int{12, 40}},
		{"drops negatives", "5 -3 7", []int{5, 7}},
		{"drops decimals", "1.5 2", []int{2}},
		{"empty", "", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseLine(tt.line)); diff != "" {
				t.Errorf("ParseLine(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestParseLineStrict(t *testing.T) {
	got, err := ParseLineStrict("1 2\t3")
	if err != nil {
		t.Fatalf("ParseLineStrict() error = %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
		t.Errorf("ParseLineStrict() mismatch (-want +got):\n%s", diff)
	}

	for _, line := range []string{"1 -2 3", "1 x 3", "1 2.0"} {
		if _, err := ParseLineStrict(line); !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("ParseLineStrict(%q) error = %v, want ErrInvalidInput", line, err)
		}
	}
}

func TestReadObservations(t *testing.T) {
	obs, err := ReadObservations(strings.NewReader(artFile(1, 2, 3, 12)), ReadOptions{})
	if err != nil {
		t.Fatalf("ReadObservations() error = %v", err)
	}
	if len(obs) != 4 {
		t.Fatalf("len(obs) = %d, want 4", len(obs))
	}
	if obs[3].Time != 12 || !obs[3].IsYearEnd() {
		t.Errorf("last observation time = %d, want year-end 12", obs[3].Time)
	}
	if got := obs[0].Get(models.Detected).Total(); got != 100 {
		t.Errorf("detected = %d, want 100", got)
	}
}

func TestReadObservations_SkipsHeaderAndBlankLines(t *testing.T) {
	input := artFile(1, 2) + "\n\n"
	obs, err := ReadObservations(strings.NewReader(input), ReadOptions{})
	if err != nil {
		t.Fatalf("ReadObservations() error = %v", err)
	}
	if len(obs) != 2 {
		t.Errorf("len(obs) = %d, want 2", len(obs))
	}
}

func TestReadObservations_ShortRowFailsRun(t *testing.T) {
	input := artFile(1, 2) + "3 4 5\n"
	_, err := ReadObservations(strings.NewReader(input), ReadOptions{})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("ReadObservations() error = %v, want ErrInvalidInput", err)
	}
	if !strings.Contains(err.Error(), "line 7") {
		t.Errorf("error %q does not name line 7", err)
	}
}

func TestReadObservations_StrictTokens(t *testing.T) {
	input := artFile(1) + rowLine(2) + "\tNA\n"

	if _, err := ReadObservations(strings.NewReader(input), ReadOptions{}); err != nil {
		t.Errorf("lenient ReadObservations() error = %v", err)
	}
	_, err := ReadObservations(strings.NewReader(input), ReadOptions{StrictTokens: true})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("strict ReadObservations() error = %v, want ErrInvalidInput", err)
	}
}

func TestReadObservations_OutOfOrder(t *testing.T) {
	_, err := ReadObservations(strings.NewReader(artFile(2, 1)), ReadOptions{})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("ReadObservations(out of order) error = %v, want ErrInvalidInput", err)
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ARTRollout_1.xls")
	if err := os.WriteFile(path, []byte(artFile(11, 12)), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	obs, err := ReadFile(path, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(obs) != 2 {
		t.Errorf("len(obs) = %d, want 2", len(obs))
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.xls"), ReadOptions{}); err == nil {
		t.Error("ReadFile(missing) expected error")
	}
}
