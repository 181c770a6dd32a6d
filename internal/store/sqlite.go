// Package store keeps a history of evaluated runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/artcheck/internal/constants"
	"github.com/nvandessel/artcheck/internal/continuum"
	"github.com/nvandessel/artcheck/internal/models"

	_ "modernc.org/sqlite" // SQLite driver
)

// RunRecord is one evaluated ARTRollout file.
type RunRecord struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batch_id"`
	File      string    `json:"file"`
	CreatedAt time.Time `json:"created_at"`

	Mode      string        `json:"mode"`
	Category  string        `json:"category"`
	QueryMode string        `json:"query_mode"`
	Anchor    models.Anchor `json:"anchor"`
	Tolerance float64       `json:"tolerance"`

	Observations int                    `json:"observations"`
	Summaries    []models.Summary       `json:"summaries,omitempty"`
	Years        []continuum.YearResult `json:"years,omitempty"`
	Truncated    []int                  `json:"truncated,omitempty"`
	Skipped      []int                  `json:"skipped,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

// ListOptions filters ListRuns.
type ListOptions struct {
	BatchID string
	Limit   int
}

// SQLiteResultStore persists RunRecords in <dir>/artcheck.db.
type SQLiteResultStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteResultStore opens (creating if needed) the run-history database
// inside dir.
func NewSQLiteResultStore(dir string) (*SQLiteResultStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	dbPath := filepath.Join(dir, constants.DatabaseFile)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteResultStore{db: db, dbPath: dbPath}, nil
}

// GlobalDir returns ~/.artcheck.
func GlobalDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, constants.ConfigDir), nil
}

// Path returns the database file path.
func (s *SQLiteResultStore) Path() string {
	return s.dbPath
}

// SaveRun stores a run and its yearly rows in one transaction. An empty ID
// is replaced with a new UUID and a zero CreatedAt with the current time;
// the assigned ID is returned.
func (s *SQLiteResultStore) SaveRun(ctx context.Context, run *RunRecord) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	truncated, err := marshalYears(run.Truncated)
	if err != nil {
		return "", err
	}
	skipped, err := marshalYears(run.Skipped)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, batch_id, file, created_at, mode, category, query_mode,
			anchor_year, anchor_month, tolerance, observations, truncated, skipped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.BatchID, run.File, run.CreatedAt.Format(time.RFC3339Nano),
		run.Mode, run.Category, run.QueryMode,
		run.Anchor.Year, run.Anchor.Month, run.Tolerance,
		run.Observations, truncated, skipped, nullString(run.Error))
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for _, sm := range run.Summaries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO year_summaries (run_id, year, infected, detected, in_care,
				new_diagnosis, enrolled_in_30, suppressed_vl)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, sm.Year, sm.Infected, sm.Detected, sm.InCare,
			sm.NewDiagnosis, sm.EnrolledIn30, sm.SuppressedVL)
		if err != nil {
			return "", fmt.Errorf("failed to insert summary for %d: %w", sm.Year, err)
		}
	}

	for _, yr := range run.Years {
		for _, r := range continuum.Ratios {
			c := yr.Check(r)
			_, err := tx.ExecContext(ctx, `
				INSERT INTO year_checks (run_id, year, ratio, verdict, value)
				VALUES (?, ?, ?, ?, ?)`,
				run.ID, yr.Year, int(r), string(c.Verdict), nullFloat(c.Value))
			if err != nil {
				return "", fmt.Errorf("failed to insert %s check for %d: %w", r, yr.Year, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

const runColumns = `id, batch_id, file, created_at, mode, category, query_mode,
	anchor_year, anchor_month, tolerance, observations, truncated, skipped, error`

// GetRun loads a run with its summaries and checks. It returns nil, nil
// when no run has that ID.
func (s *SQLiteResultStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	if err := s.loadSummaries(ctx, run); err != nil {
		return nil, err
	}
	if err := s.loadChecks(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns run headers, newest first, without yearly rows.
func (s *SQLiteResultStore) ListRuns(ctx context.Context, opts ListOptions) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if opts.BatchID != "" {
		query += ` WHERE batch_id = ?`
		args = append(args, opts.BatchID)
	}
	query += ` ORDER BY created_at DESC, file ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its yearly rows.
func (s *SQLiteResultStore) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteResultStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		run                RunRecord
		createdAt          string
		truncated, skipped sql.NullString
		errText            sql.NullString
	)
	err := row.Scan(&run.ID, &run.BatchID, &run.File, &createdAt,
		&run.Mode, &run.Category, &run.QueryMode,
		&run.Anchor.Year, &run.Anchor.Month, &run.Tolerance,
		&run.Observations, &truncated, &skipped, &errText)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		run.CreatedAt = t
	}
	if run.Truncated, err = unmarshalYears(truncated); err != nil {
		return nil, err
	}
	if run.Skipped, err = unmarshalYears(skipped); err != nil {
		return nil, err
	}
	run.Error = errText.String
	return &run, nil
}

func (s *SQLiteResultStore) loadSummaries(ctx context.Context, run *RunRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, infected, detected, in_care, new_diagnosis, enrolled_in_30, suppressed_vl
		FROM year_summaries WHERE run_id = ? ORDER BY year`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sm models.Summary
		if err := rows.Scan(&sm.Year, &sm.Infected, &sm.Detected, &sm.InCare,
			&sm.NewDiagnosis, &sm.EnrolledIn30, &sm.SuppressedVL); err != nil {
			return fmt.Errorf("failed to scan summary: %w", err)
		}
		run.Summaries = append(run.Summaries, sm)
	}
	return rows.Err()
}

func (s *SQLiteResultStore) loadChecks(ctx context.Context, run *RunRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, ratio, verdict, value
		FROM year_checks WHERE run_id = ? ORDER BY year, ratio`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load checks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			year, ratio int
			verdict     string
			value       sql.NullFloat64
		)
		if err := rows.Scan(&year, &ratio, &verdict, &value); err != nil {
			return fmt.Errorf("failed to scan check: %w", err)
		}
		if ratio < 0 || ratio >= len(continuum.Ratios) {
			return fmt.Errorf("unknown ratio %d for year %d", ratio, year)
		}

		n := len(run.Years)
		if n == 0 || run.Years[n-1].Year != year {
			run.Years = append(run.Years, continuum.YearResult{Year: year})
			n++
		}
		v := math.NaN()
		if value.Valid {
			v = value.Float64
		}
		run.Years[n-1].Checks[ratio] = continuum.Check{Verdict: continuum.Verdict(verdict), Value: v}
	}
	return rows.Err()
}

func marshalYears(years []int) (sql.NullString, error) {
	if len(years) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(years)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode years: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalYears(s sql.NullString) ([]int, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var years []int
	if err := json.Unmarshal([]byte(s.String), &years); err != nil {
		return nil, fmt.Errorf("failed to decode years: %w", err)
	}
	return years, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullFloat stores NaN and ±Inf as NULL; SQLite has no representation for them.
func nullFloat(f float64) sql.NullFloat64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}
