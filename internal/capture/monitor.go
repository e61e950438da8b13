package capture

import (
	"errors"
	"fmt"
)

const (
	// DefaultErrorThreshold is the number of counted errors that aborts a
	// session.
	DefaultErrorThreshold = 4
	// DefaultAbortMessage is shown to the operator when a session aborts.
	DefaultAbortMessage = "Bad data, stop and restart"
)

// ErrErrorBudgetExceeded is matched by errors.Is against an
// *ErrorBudgetExceeded.
var ErrErrorBudgetExceeded = errors.New("error budget exceeded")

// ErrorBudgetExceeded is the one-shot abort notification of a session.
type ErrorBudgetExceeded struct {
	Count     int
	Threshold int
	Message   string
	// Last is the error that exhausted the budget.
	Last error
}

func (e *ErrorBudgetExceeded) Error() string {
	return fmt.Sprintf("%s: %d errors (threshold %d)", e.Message, e.Count, e.Threshold)
}

func (e *ErrorBudgetExceeded) Unwrap() []error {
	if e.Last == nil {
		return []error{ErrErrorBudgetExceeded}
	}
	return []error{ErrErrorBudgetExceeded, e.Last}
}

// ErrorMonitor counts decode and integrity errors for a session. It is
// owned by the session consumer and is not safe for concurrent use.
type ErrorMonitor struct {
	threshold int
	message   string
	count     int
	tripped   bool
}

// NewErrorMonitor returns a monitor that trips on the threshold-th error.
// Non-positive thresholds and empty messages take the defaults.
func NewErrorMonitor(threshold int, message string) *ErrorMonitor {
	if threshold <= 0 {
		threshold = DefaultErrorThreshold
	}
	if message == "" {
		message = DefaultAbortMessage
	}
	return &ErrorMonitor{threshold: threshold, message: message}
}

// Record counts err. It returns a non-nil *ErrorBudgetExceeded exactly once,
// on the call that reaches the threshold. Calls after that are ignored.
func (m *ErrorMonitor) Record(err error) *ErrorBudgetExceeded {
	if m.tripped || err == nil {
		return nil
	}
	m.count++
	if m.count < m.threshold {
		return nil
	}
	m.tripped = true
	return &ErrorBudgetExceeded{
		Count:     m.count,
		Threshold: m.threshold,
		Message:   m.message,
		Last:      err,
	}
}

// Count returns the number of counted errors.
func (m *ErrorMonitor) Count() int {
	return m.count
}

// Tripped reports whether the threshold has been reached.
func (m *ErrorMonitor) Tripped() bool {
	return m.tripped
}
