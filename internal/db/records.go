package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/handwarp/internal/geom"
	"github.com/banshee-data/handwarp/internal/session"
	"github.com/google/uuid"
)

// InsertTicks writes a batch of tick records in one transaction.
func (db *DB) InsertTicks(runID string, recs []session.TickRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tick batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO tick_records (
			run_id, frame, t_unix_nanos,
			real_x, real_y, real_z, real_qw, real_qx, real_qy, real_qz,
			virtual_x, virtual_y, virtual_z,
			head_x, head_y, head_z, body_x, body_y, body_z,
			depth, target_id, technique, offset_magnitude,
			target_digit, last_input, condition_index, redirecting
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare tick insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		rp, vp := r.RealHand.Position, r.VirtualHand.Position
		q := r.RealHand.Orientation
		if _, err := stmt.Exec(
			runID, int64(r.Frame), r.Time.UnixNano(),
			rp.X, rp.Y, rp.Z, q.Real, q.Imag, q.Jmag, q.Kmag,
			vp.X, vp.Y, vp.Z,
			r.Head.Position.X, r.Head.Position.Y, r.Head.Position.Z,
			r.Body.Position.X, r.Body.Position.Y, r.Body.Position.Z,
			r.Depth, r.TargetID, r.Technique, r.OffsetMagnitude,
			r.TargetDigit, r.LastInput, r.ConditionIndex, boolToInt(r.Redirecting),
		); err != nil {
			return fmt.Errorf("failed to insert tick %d: %w", r.Frame, err)
		}
	}
	return tx.Commit()
}

// InsertPin writes one completed PIN attempt.
func (db *DB) InsertPin(runID string, rec session.PinRecord) error {
	pinJSON, err := json.Marshal(rec.Pin)
	if err != nil {
		return err
	}
	inputJSON, err := json.Marshal(rec.Input)
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT INTO pin_attempts (
			attempt_id, run_id, participant, condition_index,
			start_unix_nanos, end_unix_nanos, pin_json, input_json, success
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AttemptID.String(), runID, rec.Participant, rec.ConditionIndex,
		rec.Start.UnixNano(), rec.End.UnixNano(), string(pinJSON), string(inputJSON),
		boolToInt(rec.Success),
	)
	if err != nil {
		return fmt.Errorf("failed to insert pin attempt: %w", err)
	}
	return nil
}

// InsertCondition writes one condition change.
func (db *DB) InsertCondition(runID string, rec session.ConditionRecord) error {
	_, err := db.Exec(`INSERT INTO condition_changes (
			run_id, t_unix_nanos, participant, step, condition_index,
			keypad_size, curve, max_angle_deg, keypad_scale, keypad_span
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.Time.UnixNano(), rec.Participant, rec.Step, rec.ConditionIndex,
		rec.KeypadSize, rec.Curve, rec.MaxAngleDeg, rec.KeypadScale, rec.KeypadSpan,
	)
	if err != nil {
		return fmt.Errorf("failed to insert condition change: %w", err)
	}
	return nil
}

// TickRow is the stored subset of a session.TickRecord.
type TickRow struct {
	Frame           uint64
	Time            time.Time
	RealHand        geom.Vec
	VirtualHand     geom.Vec
	Depth           float64
	TargetID        int
	Technique       string
	OffsetMagnitude float64
	TargetDigit     int
	LastInput       int
	ConditionIndex  int
	Redirecting     bool
}

// Ticks returns the tick rows of a run in frame order.
func (db *DB) Ticks(runID string) ([]TickRow, error) {
	rows, err := db.Query(`SELECT frame, t_unix_nanos,
			real_x, real_y, real_z, virtual_x, virtual_y, virtual_z,
			depth, target_id, technique, offset_magnitude,
			target_digit, last_input, condition_index, redirecting
		FROM tick_records WHERE run_id = ? ORDER BY frame`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TickRow
	for rows.Next() {
		var (
			r           TickRow
			frame, ts   int64
			redirecting int
		)
		if err := rows.Scan(&frame, &ts,
			&r.RealHand.X, &r.RealHand.Y, &r.RealHand.Z,
			&r.VirtualHand.X, &r.VirtualHand.Y, &r.VirtualHand.Z,
			&r.Depth, &r.TargetID, &r.Technique, &r.OffsetMagnitude,
			&r.TargetDigit, &r.LastInput, &r.ConditionIndex, &redirecting,
		); err != nil {
			return nil, err
		}
		r.Frame = uint64(frame)
		r.Time = time.Unix(0, ts).UTC()
		r.Redirecting = redirecting != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// PinAttempts returns the PIN attempts of a run in completion order.
func (db *DB) PinAttempts(runID string) ([]session.PinRecord, error) {
	rows, err := db.Query(`SELECT attempt_id, participant, condition_index,
			start_unix_nanos, end_unix_nanos, pin_json, input_json, success
		FROM pin_attempts WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.PinRecord
	for rows.Next() {
		var (
			rec             session.PinRecord
			id              string
			start, end      int64
			pinJSON, inJSON string
			success         int
		)
		if err := rows.Scan(&id, &rec.Participant, &rec.ConditionIndex,
			&start, &end, &pinJSON, &inJSON, &success); err != nil {
			return nil, err
		}
		if rec.AttemptID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("attempt %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(pinJSON), &rec.Pin); err != nil {
			return nil, fmt.Errorf("attempt %s pin: %w", id, err)
		}
		if err := json.Unmarshal([]byte(inJSON), &rec.Input); err != nil {
			return nil, fmt.Errorf("attempt %s input: %w", id, err)
		}
		rec.Start = time.Unix(0, start).UTC()
		rec.End = time.Unix(0, end).UTC()
		rec.Success = success != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Conditions returns the condition changes of a run in the order applied.
func (db *DB) Conditions(runID string) ([]session.ConditionRecord, error) {
	rows, err := db.Query(`SELECT t_unix_nanos, participant, step, condition_index,
			keypad_size, curve, max_angle_deg, keypad_scale, keypad_span
		FROM condition_changes WHERE run_id = ? ORDER BY change_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.ConditionRecord
	for rows.Next() {
		var (
			rec session.ConditionRecord
			ts  int64
		)
		if err := rows.Scan(&ts, &rec.Participant, &rec.Step, &rec.ConditionIndex,
			&rec.KeypadSize, &rec.Curve, &rec.MaxAngleDeg, &rec.KeypadScale, &rec.KeypadSpan); err != nil {
			return nil, err
		}
		rec.Time = time.Unix(0, ts).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PinSummaryRow aggregates the PIN attempts of one condition.
type PinSummaryRow struct {
	ConditionIndex int
	Attempts       int
	Correct        int
	MeanDuration   time.Duration
}

// SuccessRate is Correct/Attempts, or 0 without attempts.
func (r PinSummaryRow) SuccessRate() float64 {
	if r.Attempts == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Attempts)
}

// PinSummary counts attempts and successes per condition.
func (db *DB) PinSummary(runID string) ([]PinSummaryRow, error) {
	rows, err := db.Query(`SELECT condition_index, COUNT(*), SUM(success),
			AVG(end_unix_nanos - start_unix_nanos)
		FROM pin_attempts WHERE run_id = ?
		GROUP BY condition_index ORDER BY condition_index`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PinSummaryRow
	for rows.Next() {
		var (
			r    PinSummaryRow
			mean float64
		)
		if err := rows.Scan(&r.ConditionIndex, &r.Attempts, &r.Correct, &mean); err != nil {
			return nil, err
		}
		r.MeanDuration = time.Duration(mean)
		out = append(out, r)
	}
	return out, rows.Err()
}
