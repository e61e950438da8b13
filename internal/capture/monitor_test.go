package capture

import (
	"errors"
	"testing"
)

func TestErrorMonitor_TripsOnce(t *testing.T) {
	m := NewErrorMonitor(0, "")
	decodeErr := &FrameDecodeError{Frame: "x", Reason: "bad"}

	for i := 1; i < DefaultErrorThreshold; i++ {
		if got := m.Record(decodeErr); got != nil {
			t.Fatalf("Record #%d tripped early: %v", i, got)
		}
	}

	exceeded := m.Record(&RowIntegrityError{Got: 1, Want: 2})
	if exceeded == nil {
		t.Fatalf("Record #%d did not trip", DefaultErrorThreshold)
	}
	if exceeded.Message != DefaultAbortMessage {
		t.Errorf("Message = %q, want %q", exceeded.Message, DefaultAbortMessage)
	}
	if exceeded.Count != DefaultErrorThreshold || exceeded.Threshold != DefaultErrorThreshold {
		t.Errorf("got %+v", exceeded)
	}
	if !errors.Is(exceeded, ErrErrorBudgetExceeded) {
		t.Error("expected errors.Is ErrErrorBudgetExceeded")
	}
	var integrityErr *RowIntegrityError
	if !errors.As(exceeded, &integrityErr) {
		t.Error("expected the last error to be reachable with errors.As")
	}

	for i := 0; i < 10; i++ {
		if got := m.Record(decodeErr); got != nil {
			t.Fatalf("monitor tripped twice")
		}
	}
	if m.Count() != DefaultErrorThreshold {
		t.Errorf("Count() = %d after trip, want %d", m.Count(), DefaultErrorThreshold)
	}
	if !m.Tripped() {
		t.Error("Tripped() = false")
	}
}

func TestErrorMonitor_Custom(t *testing.T) {
	m := NewErrorMonitor(1, "sensor fault")
	exceeded := m.Record(errors.New("boom"))
	if exceeded == nil || exceeded.Message != "sensor fault" {
		t.Fatalf("got %v, want immediate trip with custom message", exceeded)
	}
	if exceeded.Error() != "sensor fault: 1 errors (threshold 1)" {
		t.Errorf("Error() = %q", exceeded.Error())
	}
}

func TestErrorMonitor_IgnoresNil(t *testing.T) {
	m := NewErrorMonitor(2, "")
	m.Record(nil)
	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0", m.Count())
	}
}
