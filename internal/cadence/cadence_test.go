package cadence

import (
	"math"
	"testing"

	"github.com/banshee-data/motion.capture/internal/exercise"
)

func TestTracker_SteadyStream(t *testing.T) {
	tr := NewTracker(0)
	for i := 0; i < 10; i++ {
		tr.Observe(exercise.RightHand, float64(i)*20)
	}

	s, ok := tr.Summary(exercise.RightHand)
	if !ok {
		t.Fatal("expected summary for right hand")
	}
	if s.Readings != 10 {
		t.Errorf("Readings = %d, want 10", s.Readings)
	}
	if s.MeanMs != 20 || s.MinMs != 20 || s.MaxMs != 20 {
		t.Errorf("got mean=%v min=%v max=%v, want all 20", s.MeanMs, s.MinMs, s.MaxMs)
	}
	if s.StdDevMs != 0 {
		t.Errorf("StdDevMs = %v, want 0", s.StdDevMs)
	}
}

func TestTracker_Jitter(t *testing.T) {
	tr := NewTracker(0)
	for _, ms := range []float64{0, 10, 30, 40, 60} {
		tr.Observe(exercise.Ball, ms)
	}

	s, _ := tr.Summary(exercise.Ball)
	// intervals 10, 20, 10, 20
	if s.MeanMs != 15 {
		t.Errorf("MeanMs = %v, want 15", s.MeanMs)
	}
	want := math.Sqrt(100.0 / 3)
	if math.Abs(s.StdDevMs-want) > 1e-9 {
		t.Errorf("StdDevMs = %v, want %v", s.StdDevMs, want)
	}
	if s.MinMs != 10 || s.MaxMs != 20 {
		t.Errorf("min/max = %v/%v, want 10/20", s.MinMs, s.MaxMs)
	}
}

func TestTracker_SingleReading(t *testing.T) {
	tr := NewTracker(0)
	tr.Observe(exercise.LeftLeg, 5)

	s, ok := tr.Summary(exercise.LeftLeg)
	if !ok || s.Readings != 1 {
		t.Fatalf("got %+v ok=%v, want one reading", s, ok)
	}
	if s.MeanMs != 0 || s.MaxMs != 0 {
		t.Errorf("expected zero interval stats, got %+v", s)
	}
}

func TestTracker_WindowSlides(t *testing.T) {
	tr := NewTracker(2)
	for _, ms := range []float64{0, 100, 110, 120} {
		tr.Observe(exercise.RightHand, ms)
	}
	s, _ := tr.Summary(exercise.RightHand)
	if s.MaxMs != 10 {
		t.Errorf("MaxMs = %v, want 10 after the 100ms interval leaves the window", s.MaxMs)
	}
	if s.Readings != 4 {
		t.Errorf("Readings = %d, want 4", s.Readings)
	}
}

func TestTracker_SummariesSorted(t *testing.T) {
	tr := NewTracker(0)
	tr.Observe(exercise.Ball, 0)
	tr.Observe(exercise.RightHand, 0)
	tr.Observe(exercise.LeftHand, 0)

	got := tr.Summaries()
	want := []exercise.SensorID{exercise.RightHand, exercise.LeftHand, exercise.Ball}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Sensor != want[i] {
			t.Errorf("Summaries()[%d].Sensor = %v, want %v", i, got[i].Sensor, want[i])
		}
	}

	tr.Reset()
	if len(tr.Summaries()) != 0 {
		t.Error("expected no summaries after Reset")
	}
	if _, ok := tr.Summary(exercise.Ball); ok {
		t.Error("expected no summary after Reset")
	}
}
