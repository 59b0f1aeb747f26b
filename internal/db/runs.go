package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/handwarp/internal/session"
	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// Run describes one simulator or study session.
type Run struct {
	RunID       string
	Participant int
	StartStep   int
	Technique   string
	Selection   string
	Curve       string
	StudyMode   bool
	Source      string
	ConfigJSON  string
	Started     time.Time

	// Set by FinishRun.
	Finished       time.Time
	Frames         uint64
	PinsCompleted  int
	PinsCorrect    int
	DroppedRecords uint64
}

// CreateRun inserts r and returns its run ID. A UUID is assigned when
// r.RunID is empty.
func (db *DB) CreateRun(r Run) (string, error) {
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	if r.ConfigJSON == "" {
		r.ConfigJSON = "{}"
	}
	_, err := db.Exec(`INSERT INTO runs (
			run_id, participant, start_step, technique, selection, curve,
			study_mode, source, config_json, started_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Participant, r.StartStep, r.Technique, r.Selection, r.Curve,
		boolToInt(r.StudyMode), r.Source, r.ConfigJSON, r.Started.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return r.RunID, nil
}

// FinishRun stores the end time and final counters of a run.
func (db *DB) FinishRun(runID string, at time.Time, stats session.Stats, dropped uint64) error {
	res, err := db.Exec(`UPDATE runs SET
			finished_unix_nanos = ?, frames = ?, pins_completed = ?,
			pins_correct = ?, dropped_records = ?
		WHERE run_id = ?`,
		at.UnixNano(), int64(stats.Frames), stats.PinsCompleted,
		stats.PinsCorrect, int64(dropped), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `run_id, participant, start_step, technique, selection, curve,
	study_mode, source, config_json, started_unix_nanos, finished_unix_nanos,
	frames, pins_completed, pins_correct, dropped_records`

// GetRun returns a single run.
func (db *DB) GetRun(runID string) (Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// Runs lists runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	rows, err := db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY started_unix_nanos DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r         Run
		studyMode int
		started   int64
		finished  sql.NullInt64
		frames    int64
		dropped   int64
	)
	if err := s.Scan(
		&r.RunID, &r.Participant, &r.StartStep, &r.Technique, &r.Selection, &r.Curve,
		&studyMode, &r.Source, &r.ConfigJSON, &started, &finished,
		&frames, &r.PinsCompleted, &r.PinsCorrect, &dropped,
	); err != nil {
		return Run{}, err
	}
	r.StudyMode = studyMode != 0
	r.Started = time.Unix(0, started).UTC()
	if finished.Valid {
		r.Finished = time.Unix(0, finished.Int64).UTC()
	}
	r.Frames = uint64(frames)
	r.DroppedRecords = uint64(dropped)
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
