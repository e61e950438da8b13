// Package monitoring holds the diagnostic logger shared by the capture
// pipeline. Producers, the session consumer and the sinks all log through
// Logf so tests can mute or capture output in one place.
package monitoring

import (
	"fmt"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Prefixed returns a logger that prepends prefix to every message and then
// defers to whatever Logf is current at call time.
func Prefixed(prefix string) func(format string, v ...interface{}) {
	return func(format string, v ...interface{}) {
		Logf("%s: %s", prefix, fmt.Sprintf(format, v...))
	}
}
