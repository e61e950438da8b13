// Package overlay keeps a sliding window of the most recent rows of a
// session so an operator can eyeball the signals while capturing.
package overlay

import (
	"fmt"
	"strings"
	"sync"

	"github.com/banshee-data/motion.capture/internal/exercise"
	"github.com/banshee-data/motion.capture/internal/sink"
)

// DefaultSize is the number of rows kept by NewWindow(0).
const DefaultSize = 500

// Window is a RowSink holding the last N rows in memory. It keeps its rows
// after Close so the final seconds of a session stay viewable.
type Window struct {
	mu     sync.Mutex
	header []string
	rows   [][]float64
	next   int
	total  int
	opened bool
	closed bool
}

var _ sink.RowSink = (*Window)(nil)

// NewWindow returns a Window keeping size rows.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultSize
	}
	return &Window{rows: make([][]float64, 0, size)}
}

func (w *Window) Open(header []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return sink.ErrClosed
	}
	if w.opened {
		return sink.ErrAlreadyOpen
	}
	w.header = append([]string(nil), header...)
	w.opened = true
	return nil
}

func (w *Window) Write(record []float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.closed:
		return sink.ErrClosed
	case !w.opened:
		return sink.ErrNotOpen
	}

	rec := append([]float64(nil), record...)
	if len(w.rows) < cap(w.rows) {
		w.rows = append(w.rows, rec)
	} else {
		w.rows[w.next] = rec
		w.next = (w.next + 1) % cap(w.rows)
	}
	w.total++
	return nil
}

func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// Header returns the header the window was opened with.
func (w *Window) Header() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.header...)
}

// Total returns the number of rows written, including those that have
// left the window.
func (w *Window) Total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.total
}

// Rows returns a copy of the window, oldest first.
func (w *Window) Rows() [][]float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([][]float64, 0, len(w.rows))
	out = append(out, w.rows[w.next:]...)
	out = append(out, w.rows[:w.next]...)
	return out
}

// Series is one column of the window against the timestamp column.
type Series struct {
	Column string
	X      []float64
	Y      []float64
}

// Series extracts the named columns. An unknown column is an error.
func (w *Window) Series(columns ...string) ([]Series, error) {
	header := w.Header()
	rows := w.Rows()

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}

	out := make([]Series, 0, len(columns))
	for _, col := range columns {
		i, ok := index[col]
		if !ok || i == 0 {
			return nil, fmt.Errorf("unknown column %q", col)
		}
		s := Series{Column: col, X: make([]float64, 0, len(rows)), Y: make([]float64, 0, len(rows))}
		for _, r := range rows {
			if i < len(r) {
				s.X = append(s.X, r[0])
				s.Y = append(s.Y, r[i])
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// DefaultColumns picks each sensor's accelerometer X axis, which is enough
// to see every limb move.
func (w *Window) DefaultColumns() []string {
	var cols []string
	for _, h := range w.Header() {
		for _, r := range exercise.Roles() {
			if h == r.Prefix+"_Accel_X" {
				cols = append(cols, h)
			}
		}
	}
	return cols
}

// parseColumns splits a comma separated column query.
func parseColumns(q string) []string {
	var cols []string
	for _, c := range strings.Split(q, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}
