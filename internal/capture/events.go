package capture

import (
	"time"

	"github.com/banshee-data/motion.capture/internal/cadence"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateStopped
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateStopped:
		return "stopped"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateAborted
}

// MarshalText renders the state name in JSON status payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reason explains why a session left the capturing state.
type Reason string

const (
	ReasonRequested        Reason = "stop requested"
	ReasonSourcesExhausted Reason = "sources exhausted"
	ReasonErrorBudget      Reason = "error budget exceeded"
	ReasonSinkFailure      Reason = "sink failure"
)

// Status messages published while a session runs.
const (
	StatusConnecting = "Connecting to sensors..."
	StatusConnected  = "Sensors connected"
)

// EventKind identifies an Event.
type EventKind int

const (
	// EventStatus carries a human readable status line.
	EventStatus EventKind = iota
	// EventRowCount reports the number of rows written so far.
	EventRowCount
	// EventAbort is published once when a session aborts.
	EventAbort
	// EventFinished is the last event of every session.
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventRowCount:
		return "row-count"
	case EventAbort:
		return "abort"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// terminal events are never dropped.
func (k EventKind) terminal() bool {
	return k == EventAbort || k == EventFinished
}

// Event is an outbound notification to the session owner.
type Event struct {
	Kind    EventKind
	Time    time.Time
	State   State
	Reason  Reason
	Message string
	Rows    int
	Errors  int
}

// Result is the final account of a session, returned by Wait.
type Result struct {
	ID      string
	State   State
	Reason  Reason
	Message string
	Rows    int
	Errors  int
	// Err is the cause of an abort, or a failure to close the sink.
	Err     error
	Started time.Time
	Ended   time.Time
	Cadence []cadence.Summary
}

// reservedEvents is the room kept for the Abort and Finished events.
const reservedEvents = 2

// eventQueue delivers events without ever blocking the publisher.
// Non-terminal events are dropped once only the reserved room is left, so
// the terminal events always fit. Only one goroutine publishes at a time.
type eventQueue struct {
	ch     chan Event
	closed bool
}

func newEventQueue(size int) *eventQueue {
	if size < 1 {
		size = 1
	}
	return &eventQueue{ch: make(chan Event, size+reservedEvents)}
}

// publish reports whether ev was queued.
func (q *eventQueue) publish(ev Event) bool {
	if q.closed {
		return false
	}
	if !ev.Kind.terminal() && len(q.ch) >= cap(q.ch)-reservedEvents {
		return false
	}
	select {
	case q.ch <- ev:
		return true
	default:
		return false
	}
}

func (q *eventQueue) close() {
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
