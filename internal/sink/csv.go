package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// CSVSink writes a session table as CSV: the header on the first line, then
// one line per row. Every row is flushed and fsynced before Write returns,
// trading throughput for losing at most the row in flight on a crash.
type CSVSink struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	csv    *csv.Writer
	rows   uint64
	opened bool
	closed bool
}

// NewCSVSink returns a sink that will create path on Open.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Path returns the output file path.
func (s *CSVSink) Path() string {
	return s.path
}

// Rows returns the number of rows written so far.
func (s *CSVSink) Rows() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Open creates the file (and its directory) and writes the header.
func (s *CSVSink) Open(header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.opened {
		return ErrAlreadyOpen
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("csv create %s: %w", s.path, err)
	}

	s.file = f
	s.csv = csv.NewWriter(f)
	s.opened = true

	if err := s.csv.Write(header); err != nil {
		return fmt.Errorf("csv write header: %w", err)
	}
	return s.flushLocked()
}

// Write appends one row and syncs it to disk.
func (s *CSVSink) Write(record []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if !s.opened {
		return ErrNotOpen
	}

	fields := make([]string, len(record))
	for i, v := range record {
		fields[i] = FormatValue(v)
	}
	if err := s.csv.Write(fields); err != nil {
		return fmt.Errorf("csv write row: %w", err)
	}
	if err := s.flushLocked(); err != nil {
		return err
	}
	s.rows++
	return nil
}

func (s *CSVSink) flushLocked() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return fmt.Errorf("csv flush: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("csv sync: %w", err)
	}
	return nil
}

// Close finalises the file. Closing twice is a no-op.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if !s.opened {
		return nil
	}

	s.csv.Flush()
	flushErr := s.csv.Error()
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("csv close: %w", err)
	}
	if flushErr != nil {
		return fmt.Errorf("csv flush: %w", flushErr)
	}
	return nil
}

// FormatValue renders a value in the shortest decimal form that round-trips.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
