package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusEmpty   = "empty"
	StatusFailed  = "failed"
)

var ErrRunNotFound = errors.New("run not found")

// Run is one scrape invocation.
type Run struct {
	RunID        int64
	RunKey       string
	Company      string
	Source       string
	RangeStart   string
	RangeEnd     string
	Status       string
	ScrapedCount int
	KeptCount    int
	OutputPath   string
	ErrorMessage string
	CreatedAt    time.Time
	FinishedAt   sql.NullTime
}

// Duration is how long a finished run took, zero while running.
func (r Run) Duration() time.Duration {
	if !r.FinishedAt.Valid {
		return 0
	}
	return r.FinishedAt.Time.Sub(r.CreatedAt)
}

// RunResult is what a run reports when it ends.
type RunResult struct {
	Status       string
	ScrapedCount int
	KeptCount    int
	OutputPath   string
	Err          error
}

// CreateRun inserts a run in the running state and returns its run_id.
func (db *DB) CreateRun(runKey, company, source, rangeStart, rangeEnd string) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO runs (run_key, company, source, range_start, range_end, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runKey, company, source, rangeStart, rangeEnd, StatusRunning, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return runID, nil
}

// FinishRun records the outcome of a run.
func (db *DB) FinishRun(runID int64, res RunResult) error {
	var errMsg sql.NullString
	if res.Err != nil {
		errMsg = NewNullString(res.Err.Error())
	}

	result, err := db.Exec(`
		UPDATE runs
		SET status = ?, scraped_count = ?, kept_count = ?, output_path = ?, error_message = ?, finished_at = ?
		WHERE run_id = ?
	`, res.Status, res.ScrapedCount, res.KeptCount, NewNullString(res.OutputPath), errMsg, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `run_id, run_key, company, source, range_start, range_end, status,
	scraped_count, kept_count, output_path, error_message, created_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var outputPath, errMsg sql.NullString
	err := row.Scan(&r.RunID, &r.RunKey, &r.Company, &r.Source, &r.RangeStart, &r.RangeEnd, &r.Status,
		&r.ScrapedCount, &r.KeptCount, &outputPath, &errMsg, &r.CreatedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}
	r.OutputPath = outputPath.String
	r.ErrorMessage = errMsg.String
	return &r, nil
}

// GetRun returns a run by run_id.
func (db *DB) GetRun(runID int64) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// GetRunByKey returns a run by its xid key.
func (db *DB) GetRunByKey(runKey string) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_key = ?`, runKey)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY run_id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// NewNullString creates a sql.NullString from a string value.
func NewNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
