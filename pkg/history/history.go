// Package history persists finalized run attempts and their per-action
// outcomes to a sqlite database.
package history

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ivikasavnish/go-replay/pkg/replay"
)

// Run is one persisted run attempt.
type Run struct {
	ID         int64      `json:"id"`
	ConfigName string     `json:"config_name"`
	Status     string     `json:"status"`
	Live       bool       `json:"live"`
	Total      int        `json:"total"`
	Completed  int        `json:"completed"`
	Failed     int        `json:"failed"`
	Skipped    int        `json:"skipped"`
	DurationMs int64      `json:"duration_ms"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// Store wraps the sqlite database holding run history.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		config_name TEXT NOT NULL,
		status TEXT NOT NULL,
		live INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL,
		completed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		action_index INTEGER NOT NULL,
		action_name TEXT NOT NULL,
		success INTEGER NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL,
		recorded_at TIMESTAMP NOT NULL,
		UNIQUE(run_id, action_index)
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun persists one finalized run record with its outcomes.
func (s *Store) SaveRun(record replay.RunRecord) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO runs (config_name, status, live, total, completed, failed, skipped, duration_ms, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ConfigName, string(record.Status), record.Live,
		record.Summary.Total, record.Summary.Completed, record.Summary.Failed,
		record.Summary.Skipped, record.Summary.DurationMs,
		record.Summary.StartedAt, record.Summary.EndedAt,
	)
	if err != nil {
		return 0, err
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, o := range record.Outcomes {
		_, err := tx.Exec(
			`INSERT INTO outcomes (run_id, action_index, action_name, success, error, duration_ms, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, o.Index, o.Name, o.Success, o.Error, o.DurationMs, o.Timestamp,
		)
		if err != nil {
			return 0, err
		}
	}

	return runID, tx.Commit()
}

// ListRuns returns up to limit persisted runs, newest first.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, config_name, status, live, total, completed, failed, skipped, duration_ms, started_at, ended_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var endedAt sql.NullTime
		err := rows.Scan(
			&run.ID, &run.ConfigName, &run.Status, &run.Live,
			&run.Total, &run.Completed, &run.Failed, &run.Skipped,
			&run.DurationMs, &run.StartedAt, &endedAt,
		)
		if err != nil {
			return nil, err
		}
		if endedAt.Valid {
			run.EndedAt = &endedAt.Time
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// Outcomes returns the persisted outcomes for one run in action order.
func (s *Store) Outcomes(runID int64) ([]replay.ActionOutcome, error) {
	rows, err := s.db.Query(
		`SELECT action_index, action_name, success, error, duration_ms, recorded_at
		 FROM outcomes WHERE run_id = ? ORDER BY action_index`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []replay.ActionOutcome
	for rows.Next() {
		var o replay.ActionOutcome
		var errText sql.NullString
		err := rows.Scan(&o.Index, &o.Name, &o.Success, &errText, &o.DurationMs, &o.Timestamp)
		if err != nil {
			return nil, err
		}
		if errText.Valid {
			o.Error = errText.String
		}
		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}
