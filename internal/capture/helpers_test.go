package capture

import (
	"os"
	"testing"

	"github.com/banshee-data/motion.capture/internal/exercise"
	"github.com/banshee-data/motion.capture/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

var axes = []string{"ax", "ay", "az", "gx", "gy", "gz"}

// columnsFor builds the per-sensor part of a header.
func columnsFor(id exercise.SensorID, withIndex bool) []string {
	var cols []string
	if withIndex {
		cols = append(cols, id.String()+"_index")
	}
	for _, a := range axes {
		cols = append(cols, id.String()+"_"+a)
	}
	return cols
}

// testConfig builds a valid exercise for ids; sensors listed in indexed
// also record their sequence index.
func testConfig(ids []exercise.SensorID, indexed ...exercise.SensorID) exercise.Config {
	cfg := exercise.Config{Name: "test exercise", Sensors: ids, Columns: []string{exercise.TimestampColumn}}
	for _, id := range ids {
		withIndex := false
		for _, x := range indexed {
			withIndex = withIndex || x == id
		}
		cfg.Columns = append(cfg.Columns, columnsFor(id, withIndex)...)
	}
	return cfg
}

func reading(elapsed float64, values ...float64) Reading {
	r := Reading{Elapsed: elapsed}
	copy(r.Values[:], values)
	return r
}
