// Package sink persists synchronized rows. A RowSink is opened once with the
// session header, receives each emitted row and is closed once when the
// session stops or aborts.
package sink

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned by Write on a sink that was never opened.
	ErrNotOpen = errors.New("sink not open")
	// ErrClosed is returned by Open or Write after Close.
	ErrClosed = errors.New("sink closed")
	// ErrAlreadyOpen is returned by a second Open.
	ErrAlreadyOpen = errors.New("sink already open")
)

// RowSink receives the rows of one capture session. record[0] is the row
// timestamp in milliseconds; the remaining values follow the header order.
type RowSink interface {
	Open(header []string) error
	Write(record []float64) error
	Close() error
}

// multi fans rows out to several sinks.
type multi struct {
	sinks []RowSink
}

// Multi returns a RowSink that forwards to every sink in order. The first
// sink is normally the durable one; a failure from any sink is reported.
func Multi(sinks ...RowSink) RowSink {
	return &multi{sinks: sinks}
}

func (m *multi) Open(header []string) error {
	for i, s := range m.sinks {
		if err := s.Open(header); err != nil {
			for _, opened := range m.sinks[:i] {
				_ = opened.Close()
			}
			return fmt.Errorf("open sink %d: %w", i, err)
		}
	}
	return nil
}

func (m *multi) Write(record []float64) error {
	var errs []error
	for i, s := range m.sinks {
		if err := s.Write(record); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (m *multi) Close() error {
	var errs []error
	for i, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
