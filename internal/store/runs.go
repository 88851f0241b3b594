package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/gridrun/internal/metrics"
)

// Run is one entry of the task run log.
type Run struct {
	ID             string               `json:"run_id"`
	Function       string               `json:"function"`
	Table          string               `json:"table,omitempty"`
	Batch          int                  `json:"batch,omitempty"`
	NBatch         int                  `json:"n_batch,omitempty"`
	Total          int                  `json:"total"`
	Completed      int                  `json:"completed"`
	Failed         int                  `json:"failed"`
	ElapsedSeconds float64              `json:"elapsed_seconds"`
	Durations      *metrics.Aggregation `json:"durations,omitempty"`
	StartedAt      time.Time            `json:"started_at"`
	FinishedAt     time.Time            `json:"finished_at"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// RecordRun appends run to the log, assigning an id when it has none.
func (s *Store) RecordRun(run *Run) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	var durations sql.NullString
	if run.Durations != nil {
		data, err := json.Marshal(run.Durations)
		if err != nil {
			return fmt.Errorf("failed to encode durations: %w", err)
		}
		durations = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.Exec(`INSERT INTO task_runs (
			run_id, function, table_name, batch, n_batch, total, completed, failed,
			elapsed_seconds, durations_json, started_at_unix_ms, finished_at_unix_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Function, run.Table, run.Batch, run.NBatch, run.Total, run.Completed, run.Failed,
		run.ElapsedSeconds, durations, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `run_id, function, table_name, batch, n_batch, total, completed, failed,
	elapsed_seconds, durations_json, started_at_unix_ms, finished_at_unix_ms`

// ListRuns returns the most recent runs first. A non-positive limit means 50.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		"SELECT "+runColumns+" FROM task_runs ORDER BY started_at_unix_ms DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// GetRun returns one run by id.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow("SELECT "+runColumns+" FROM task_runs WHERE run_id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run                 Run
		durations           sql.NullString
		startedMs, finishMs int64
	)
	err := sc.Scan(&run.ID, &run.Function, &run.Table, &run.Batch, &run.NBatch,
		&run.Total, &run.Completed, &run.Failed, &run.ElapsedSeconds, &durations,
		&startedMs, &finishMs)
	if err != nil {
		return nil, err
	}
	if durations.Valid {
		run.Durations = &metrics.Aggregation{}
		if err := json.Unmarshal([]byte(durations.String), run.Durations); err != nil {
			return nil, fmt.Errorf("run %s: bad durations: %w", run.ID, err)
		}
	}
	run.StartedAt = time.UnixMilli(startedMs).UTC()
	run.FinishedAt = time.UnixMilli(finishMs).UTC()
	return &run, nil
}
