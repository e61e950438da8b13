// Package cadence tracks how regularly each sensor channel delivers
// readings. A healthy IMU streams at a steady rate; a widening spread in
// inter-frame intervals is the first sign of a radio link degrading.
package cadence

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/motion.capture/internal/exercise"
)

// DefaultWindow is the number of recent intervals kept per channel.
const DefaultWindow = 512

// Summary describes the inter-reading intervals of one channel, in
// milliseconds.
type Summary struct {
	Sensor   exercise.SensorID `json:"sensor"`
	Readings int               `json:"readings"`
	MeanMs   float64           `json:"mean_ms"`
	StdDevMs float64           `json:"stddev_ms"`
	MinMs    float64           `json:"min_ms"`
	MaxMs    float64           `json:"max_ms"`
}

type channel struct {
	readings  int
	last      float64
	intervals []float64
	next      int
}

// Tracker accumulates per-channel interval statistics over a sliding
// window. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	window   int
	channels map[exercise.SensorID]*channel
}

// NewTracker returns a Tracker keeping window intervals per channel.
func NewTracker(window int) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{window: window, channels: make(map[exercise.SensorID]*channel)}
}

// Observe records a reading from sensor id taken elapsedMs after the
// channel origin.
func (t *Tracker) Observe(id exercise.SensorID, elapsedMs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, ok := t.channels[id]
	if !ok {
		ch = &channel{intervals: make([]float64, 0, t.window)}
		t.channels[id] = ch
	}
	ch.readings++
	if ch.readings > 1 {
		d := elapsedMs - ch.last
		if len(ch.intervals) < t.window {
			ch.intervals = append(ch.intervals, d)
		} else {
			ch.intervals[ch.next] = d
			ch.next = (ch.next + 1) % t.window
		}
	}
	ch.last = elapsedMs
}

// Summary returns the statistics for sensor id. ok is false if the channel
// has not produced a reading.
func (t *Tracker) Summary(id exercise.SensorID) (Summary, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, ok := t.channels[id]
	if !ok {
		return Summary{}, false
	}
	return summarise(id, ch), true
}

// Summaries returns every observed channel in ascending sensor order.
func (t *Tracker) Summaries() []Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Summary, 0, len(t.channels))
	for id, ch := range t.channels {
		out = append(out, summarise(id, ch))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sensor < out[j].Sensor })
	return out
}

// Reset forgets every channel.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels = make(map[exercise.SensorID]*channel)
}

func summarise(id exercise.SensorID, ch *channel) Summary {
	s := Summary{Sensor: id, Readings: ch.readings}
	switch len(ch.intervals) {
	case 0:
		return s
	case 1:
		s.MeanMs = ch.intervals[0]
	default:
		s.MeanMs, s.StdDevMs = stat.MeanStdDev(ch.intervals, nil)
	}
	s.MinMs = floats.Min(ch.intervals)
	s.MaxMs = floats.Max(ch.intervals)
	return s
}
