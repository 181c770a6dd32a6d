// Package artfile reads ARTRollout simulation output and finds it on disk.
//
// ARTRollout files carry an .xls extension but are whitespace-delimited
// text: four header lines followed by one row of integers per month.
package artfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nvandessel/artcheck/internal/models"
)

// HeaderLines is the number of lines before the first monthly row.
const HeaderLines = 4

// ParseLine splits on whitespace and keeps the tokens that are non-negative
// integers. Anything else, including negative numbers and decimals, is
// dropped silently.
func ParseLine(line string) []int {
	fields := strings.Fields(line)
	values := make([]int, 0, len(fields))
	for _, f := range fields {
		if !isDigits(f) {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			continue
		}
		values = append(values, n)
	}
	return values
}

// ParseLineStrict is ParseLine but fails on any token that is not a
// non-negative integer.
func ParseLineStrict(line string) ([]int, error) {
	fields := strings.Fields(line)
	values := make([]int, 0, len(fields))
	for i, f := range fields {
		if !isDigits(f) {
			return nil, fmt.Errorf("token %d %q is not a non-negative integer: %w", i, f, models.ErrInvalidInput)
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("token %d %q: %v: %w", i, f, err, models.ErrInvalidInput)
		}
		values = append(values, n)
	}
	return values, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ReadOptions controls how rows are parsed.
type ReadOptions struct {
	// StrictTokens rejects rows containing non-integer tokens instead of
	// dropping the tokens.
	StrictTokens bool
}

// ReadObservations parses every monthly row after the header. Blank lines
// are skipped; any other malformed row fails the whole read. The returned
// observations are checked for strictly increasing time indices.
func ReadObservations(r io.Reader, opts ReadOptions) ([]models.Observation, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var obs []models.Observation
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum <= HeaderLines {
			continue
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var row []int
		if opts.StrictTokens {
			var err error
			row, err = ParseLineStrict(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
		} else {
			row = ParseLine(line)
		}

		o, err := models.NewObservation(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		obs = append(obs, o)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	if err := models.ValidateSequence(obs); err != nil {
		return nil, err
	}
	return obs, nil
}

// ReadFile opens path and reads its observations.
func ReadFile(path string, opts ReadOptions) ([]models.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	obs, err := ReadObservations(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return obs, nil
}
