package exercise

import (
	"fmt"
	"strings"
)

const (
	// TimestampColumn must lead every exercise's column list.
	TimestampColumn = "timestamp"

	// AxisCount is the number of IMU values every frame carries after the
	// sequence index: accelerometer X/Y/Z then gyroscope X/Y/Z.
	AxisCount = 6

	indexSuffix = "_index"
)

// Config is the static description of one exercise: which sensors must
// contribute to every row and the header of the session table. It is read
// only for the duration of a session.
type Config struct {
	Name    string     `json:"name" yaml:"name"`
	Sensors []SensorID `json:"sensors" yaml:"sensors"`
	Columns []string   `json:"columns" yaml:"columns"`
}

// IncludesIndex reports whether the exercise records the per-frame sequence
// index for sensor id, which it does when the header names a
// "<role>_index" column.
func (c Config) IncludesIndex(id SensorID) bool {
	if !id.Valid() {
		return false
	}
	want := id.Role().Prefix + indexSuffix
	for _, col := range c.Columns {
		if col == want {
			return true
		}
	}
	return false
}

// Width returns the number of values sensor id contributes to a row.
func (c Config) Width(id SensorID) int {
	if c.IncludesIndex(id) {
		return AxisCount + 1
	}
	return AxisCount
}

// RowWidth is the number of values in an emitted row, excluding the
// timestamp column.
func (c Config) RowWidth() int {
	if len(c.Columns) == 0 {
		return 0
	}
	return len(c.Columns) - 1
}

// HasSensor reports whether id is in the active set.
func (c Config) HasSensor(id SensorID) bool {
	for _, s := range c.Sensors {
		if s == id {
			return true
		}
	}
	return false
}

// ValidateSensors checks the active set alone: at least one sensor, every
// id on the rig, strictly ascending. A session can run with a header that
// disagrees with the set; such rows are rejected as integrity errors.
func (c Config) ValidateSensors() error {
	if len(c.Sensors) == 0 {
		return fmt.Errorf("exercise %q: no sensors", c.Name)
	}
	for i, id := range c.Sensors {
		if !id.Valid() {
			return fmt.Errorf("exercise %q: sensor id %d out of range 1..%d", c.Name, int(id), MaxSensors)
		}
		if i > 0 && id <= c.Sensors[i-1] {
			return fmt.Errorf("exercise %q: sensors must be strictly ascending, got %v", c.Name, c.Sensors)
		}
	}
	return nil
}

// Validate checks the full invariant: a valid active set, a header that
// starts with the timestamp column, only columns belonging to active
// sensors, and len(Columns) == 1 + sum of per-sensor widths.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("exercise name must not be empty")
	}
	if err := c.ValidateSensors(); err != nil {
		return err
	}
	if len(c.Columns) == 0 || c.Columns[0] != TimestampColumn {
		return fmt.Errorf("exercise %q: first column must be %q", c.Name, TimestampColumn)
	}

	for _, col := range c.Columns[1:] {
		if !c.ownsColumn(col) {
			return fmt.Errorf("exercise %q: column %q does not belong to an active sensor", c.Name, col)
		}
	}

	want := 1
	for _, id := range c.Sensors {
		want += c.Width(id)
	}
	if len(c.Columns) != want {
		return fmt.Errorf("exercise %q: %d columns, want %d for sensors %v", c.Name, len(c.Columns), want, c.Sensors)
	}
	return nil
}

func (c Config) ownsColumn(col string) bool {
	for _, id := range c.Sensors {
		if strings.HasPrefix(col, id.Role().Prefix+"_") {
			return true
		}
	}
	return false
}
