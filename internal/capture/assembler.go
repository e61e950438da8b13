package capture

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/motion.capture/internal/exercise"
)

// ErrInactiveSensor is returned when a reading arrives for a sensor that is
// not part of the exercise.
var ErrInactiveSensor = errors.New("sensor not active for exercise")

// Row is one synchronized record: the timestamp of the lowest-id active
// sensor followed by every active sensor's values in ascending id order.
type Row struct {
	Timestamp float64
	Values    []float64
}

// Record flattens the row into the layout written by a sink.
func (r Row) Record() []float64 {
	out := make([]float64, 0, 1+len(r.Values))
	out = append(out, r.Timestamp)
	return append(out, r.Values...)
}

// RowIntegrityError reports an assembled row whose width disagrees with
// the exercise header. The row is not emitted.
type RowIntegrityError struct {
	Got  int
	Want int
}

func (e *RowIntegrityError) Error() string {
	return fmt.Sprintf("row integrity: assembled %d values, header expects %d", e.Got, e.Want)
}

// RoundMillis rounds a millisecond timestamp to three decimal places.
func RoundMillis(ms float64) float64 {
	return math.Round(ms*1000) / 1000
}

// Assembler holds the latest unconsumed reading per active sensor and emits
// a row once every active sensor has contributed.
type Assembler struct {
	cfg     exercise.Config
	slots   [exercise.MaxSensors + 1]*Reading
	active  [exercise.MaxSensors + 1]bool
	index   [exercise.MaxSensors + 1]bool
	filled  int
	emitted int
}

// NewAssembler returns an Assembler for cfg's active sensors.
func NewAssembler(cfg exercise.Config) *Assembler {
	a := &Assembler{cfg: cfg}
	for _, id := range cfg.Sensors {
		if id.Valid() {
			a.active[id] = true
			a.index[id] = cfg.IncludesIndex(id)
		}
	}
	return a
}

// Offer stores r as sensor id's latest reading, replacing any unconsumed
// one. When every active slot is filled it returns the assembled row and
// clears all slots. A row whose width disagrees with the header is
// reported as a *RowIntegrityError; the slots are cleared in that case too
// so the next full set can be tried.
func (a *Assembler) Offer(id exercise.SensorID, r Reading) (Row, bool, error) {
	if !id.Valid() || !a.active[id] {
		return Row{}, false, fmt.Errorf("offer sensor %d: %w", int(id), ErrInactiveSensor)
	}

	if a.slots[id] == nil {
		a.filled++
	}
	reading := r
	a.slots[id] = &reading

	if a.filled < len(a.cfg.Sensors) {
		return Row{}, false, nil
	}

	row := Row{Values: make([]float64, 0, a.cfg.RowWidth())}
	first := true
	for _, sid := range a.cfg.Sensors {
		slot := a.slots[sid]
		if first {
			row.Timestamp = RoundMillis(slot.Elapsed)
			first = false
		}
		row.Values = append(row.Values, slot.Project(a.index[sid])...)
	}
	a.Reset()

	if len(row.Values) != a.cfg.RowWidth() {
		return Row{}, false, &RowIntegrityError{Got: len(row.Values), Want: a.cfg.RowWidth()}
	}
	a.emitted++
	return row, true, nil
}

// Pending reports whether sensor id has an unconsumed reading.
func (a *Assembler) Pending(id exercise.SensorID) bool {
	return id.Valid() && a.slots[id] != nil
}

// Emitted returns the number of rows assembled successfully.
func (a *Assembler) Emitted() int {
	return a.emitted
}

// Reset discards every pending reading.
func (a *Assembler) Reset() {
	for i := range a.slots {
		a.slots[i] = nil
	}
	a.filled = 0
}
