package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/motion.capture/internal/capture"
	"github.com/banshee-data/motion.capture/internal/exercise"
)

// ErrSessionNotFound is returned when a session id is not in the journal.
var ErrSessionNotFound = errors.New("session not found")

// Error kinds stored in capture_errors.kind.
const (
	KindDecode    = "decode"
	KindIntegrity = "integrity"
	KindOther     = "other"
)

var _ capture.Journal = (*DB)(nil)

// SessionRecord is one journaled capture session.
type SessionRecord struct {
	ID          string
	Exercise    string
	Sensors     []string
	ColumnCount int
	Output      string
	Started     time.Time
	Ended       time.Time // zero while capturing
	State       string
	Reason      string
	Message     string
	Rows        int
	Errors      int
	CadenceJSON string
}

// ErrorRecord is one counted data error.
type ErrorRecord struct {
	Sensor   string
	Kind     string
	Detail   string
	Recorded time.Time
}

// SessionStarted implements capture.Journal.
func (db *DB) SessionStarted(ctx context.Context, info capture.SessionInfo) error {
	sensors := make([]string, len(info.Sensors))
	for i, id := range info.Sensors {
		sensors[i] = id.String()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO capture_sessions (
			session_id, exercise, sensors, column_count, output, started_unix_nanos, state
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.Exercise, strings.Join(sensors, ","), len(info.Columns), info.Output,
		info.Started.UnixNano(), capture.StateCapturing.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to journal session %s: %w", info.ID, err)
	}
	return nil
}

// ErrorRecorded implements capture.Journal.
func (db *DB) ErrorRecorded(ctx context.Context, sessionID string, sensor exercise.SensorID, err error, at time.Time) error {
	_, execErr := db.ExecContext(ctx,
		`INSERT INTO capture_errors (session_id, sensor, kind, detail, recorded_unix_nanos)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, sensor.String(), errorKind(err), err.Error(), at.UnixNano(),
	)
	if execErr != nil {
		return fmt.Errorf("failed to journal error for session %s: %w", sessionID, execErr)
	}
	return nil
}

// SessionFinished implements capture.Journal.
func (db *DB) SessionFinished(ctx context.Context, r capture.Result) error {
	cadence, err := json.Marshal(r.Cadence)
	if err != nil {
		return fmt.Errorf("failed to encode cadence: %w", err)
	}

	res, err := db.ExecContext(ctx,
		`UPDATE capture_sessions SET
			ended_unix_nanos = ?, state = ?, reason = ?, message = ?,
			rows_written = ?, error_count = ?, cadence_json = ?
		WHERE session_id = ?`,
		r.Ended.UnixNano(), r.State.String(), string(r.Reason), r.Message,
		r.Rows, r.Errors, string(cadence), r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to journal end of session %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", r.ID, ErrSessionNotFound)
	}
	return nil
}

// Session returns the journal entry for id.
func (db *DB) Session(ctx context.Context, id string) (*SessionRecord, error) {
	var (
		rec     SessionRecord
		sensors string
		started int64
		ended   sql.NullInt64
		cadence sql.NullString
	)
	err := db.QueryRowContext(ctx,
		`SELECT session_id, exercise, sensors, column_count, output, started_unix_nanos,
			ended_unix_nanos, state, reason, message, rows_written, error_count, cadence_json
		FROM capture_sessions WHERE session_id = ?`, id,
	).Scan(&rec.ID, &rec.Exercise, &sensors, &rec.ColumnCount, &rec.Output, &started,
		&ended, &rec.State, &rec.Reason, &rec.Message, &rec.Rows, &rec.Errors, &cadence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	if sensors != "" {
		rec.Sensors = strings.Split(sensors, ",")
	}
	rec.Started = time.Unix(0, started).UTC()
	if ended.Valid {
		rec.Ended = time.Unix(0, ended.Int64).UTC()
	}
	rec.CadenceJSON = cadence.String
	return &rec, nil
}

// SessionErrors returns the counted errors of session id in the order they
// were recorded.
func (db *DB) SessionErrors(ctx context.Context, id string) ([]ErrorRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT sensor, kind, detail, recorded_unix_nanos
		FROM capture_errors WHERE session_id = ? ORDER BY error_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query errors for session %s: %w", id, err)
	}
	defer rows.Close()

	var out []ErrorRecord
	for rows.Next() {
		var rec ErrorRecord
		var recorded int64
		if err := rows.Scan(&rec.Sensor, &rec.Kind, &rec.Detail, &recorded); err != nil {
			return nil, err
		}
		rec.Recorded = time.Unix(0, recorded).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func errorKind(err error) string {
	var decodeErr *capture.FrameDecodeError
	var integrityErr *capture.RowIntegrityError
	switch {
	case errors.As(err, &decodeErr):
		return KindDecode
	case errors.As(err, &integrityErr):
		return KindIntegrity
	default:
		return KindOther
	}
}
