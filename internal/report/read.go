package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// NumericsRow is one year of a numerics report.
type NumericsRow struct {
	Year   int        `json:"year"`
	Values [3]float64 `json:"values"`
}

// NumericsRun is one run block of a numerics report.
type NumericsRun struct {
	Name  string        `json:"name"`
	Rows  []NumericsRow `json:"rows,omitempty"`
	Error string        `json:"error,omitempty"`
}

// ReadNumerics parses a numerics report written by Writer back into runs.
func ReadNumerics(r io.Reader) ([]NumericsRun, error) {
	scanner := bufio.NewScanner(r)

	var (
		runs    []NumericsRun
		current *NumericsRun
		lineNum int
	)
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		switch {
		case strings.TrimSpace(line) == "":
			current = nil
		case current == nil:
			runs = append(runs, NumericsRun{Name: line})
			current = &runs[len(runs)-1]
		case line == Header || strings.HasPrefix(line, "Year\t"):
		case strings.HasPrefix(line, "error: "):
			current.Error = strings.TrimPrefix(line, "error: ")
		default:
			row, err := parseNumericsRow(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			current.Rows = append(current.Rows, row)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading numerics report: %w", err)
	}
	return runs, nil
}

func parseNumericsRow(line string) (NumericsRow, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return NumericsRow{}, fmt.Errorf("expected year and 3 values, got %d fields", len(fields))
	}

	var row NumericsRow
	year, err := strconv.Atoi(strings.TrimSuffix(fields[0], ":"))
	if err != nil {
		return NumericsRow{}, fmt.Errorf("bad year %q", fields[0])
	}
	row.Year = year

	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return NumericsRow{}, fmt.Errorf("bad value %q", f)
		}
		row.Values[i] = v
	}
	return row, nil
}
