package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run lifecycle statuses.
const (
	RunStatusPending = "pending"
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

// Run describes a tracking run over stored volumes.
type Run struct {
	RunID      string     `json:"run_id"`
	AtlasID    string     `json:"atlas_id"`
	FieldID    string     `json:"field_id"`
	MaskID     string     `json:"mask_id"`
	Mode       string     `json:"mode"`
	SeedCount  int        `json:"seed_count"`
	Params     string     `json:"params"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreateRun records a new pending run and returns its ID. params is the
// JSON-encoded tuning snapshot the run will execute with.
func (db *DB) CreateRun(atlasID, fieldID, maskID, mode string, seedCount int, params string) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO runs (run_id, atlas_id, field_id, mask_id, mode, seed_count, params, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, atlasID, fieldID, maskID, mode, seedCount, params, RunStatusPending,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// MarkRunStarted flips a pending run to running and stamps the start time.
func (db *DB) MarkRunStarted(runID string) error {
	res, err := db.Exec(
		"UPDATE runs SET status = ?, started_at = ? WHERE run_id = ?",
		RunStatusRunning, time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run %s started: %w", runID, err)
	}
	return requireRowAffected(res, runID)
}

// MarkRunDone records a successful finish.
func (db *DB) MarkRunDone(runID string) error {
	res, err := db.Exec(
		"UPDATE runs SET status = ?, finished_at = ? WHERE run_id = ?",
		RunStatusDone, time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run %s done: %w", runID, err)
	}
	return requireRowAffected(res, runID)
}

// MarkRunFailed records a failure with its cause.
func (db *DB) MarkRunFailed(runID string, cause error) error {
	res, err := db.Exec(
		"UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE run_id = ?",
		RunStatusFailed, cause.Error(), time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run %s failed: %w", runID, err)
	}
	return requireRowAffected(res, runID)
}

func requireRowAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// GetRun loads a single run by ID.
func (db *DB) GetRun(runID string) (*Run, error) {
	row := db.QueryRow(
		`SELECT run_id, atlas_id, field_id, mask_id, mode, seed_count, params,
			status, error, started_at, finished_at, created_at
		FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns all runs, newest first.
func (db *DB) ListRuns() ([]Run, error) {
	rows, err := db.Query(
		`SELECT run_id, atlas_id, field_id, mask_id, mode, seed_count, params,
			status, error, started_at, finished_at, created_at
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var errMsg sql.NullString
	var started, finished sql.NullTime
	err := row.Scan(
		&run.RunID, &run.AtlasID, &run.FieldID, &run.MaskID,
		&run.Mode, &run.SeedCount, &run.Params,
		&run.Status, &errMsg, &started, &finished, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	if started.Valid {
		t := started.Time
		run.StartedAt = &t
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
