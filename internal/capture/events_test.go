package capture

import "testing"

func TestEventQueue_ReservesTerminalSlots(t *testing.T) {
	q := newEventQueue(3)

	for i := 0; i < 10; i++ {
		q.publish(Event{Kind: EventRowCount, Rows: i})
	}
	if got := len(q.ch); got != 3 {
		t.Fatalf("queued %d non-terminal events, want 3", got)
	}

	if !q.publish(Event{Kind: EventAbort}) {
		t.Error("abort event dropped")
	}
	if !q.publish(Event{Kind: EventFinished}) {
		t.Error("finished event dropped")
	}
	q.close()
	q.close()

	if q.publish(Event{Kind: EventStatus}) {
		t.Error("publish after close succeeded")
	}

	var kinds []EventKind
	for ev := range q.ch {
		kinds = append(kinds, ev.Kind)
	}
	want := []EventKind{EventRowCount, EventRowCount, EventRowCount, EventAbort, EventFinished}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		want     string
		terminal bool
	}{
		{StateIdle, "idle", false},
		{StateCapturing, "capturing", false},
		{StateStopped, "stopped", true},
		{StateAborted, "aborted", true},
		{State(42), "unknown", false},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
		if got := tt.state.Terminal(); got != tt.terminal {
			t.Errorf("State(%d).Terminal() = %v, want %v", int(tt.state), got, tt.terminal)
		}
	}
}
