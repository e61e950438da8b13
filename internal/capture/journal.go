package capture

import (
	"context"
	"time"

	"github.com/banshee-data/motion.capture/internal/exercise"
)

// SessionInfo describes a session when it starts.
type SessionInfo struct {
	ID       string
	Exercise string
	Sensors  []exercise.SensorID
	Columns  []string
	Output   string
	Started  time.Time
}

// Journal keeps a durable account of sessions and their counted errors.
// Journal failures are logged and never interrupt a capture.
type Journal interface {
	SessionStarted(ctx context.Context, info SessionInfo) error
	ErrorRecorded(ctx context.Context, sessionID string, sensor exercise.SensorID, err error, at time.Time) error
	SessionFinished(ctx context.Context, result Result) error
}
