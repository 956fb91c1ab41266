package edge

import (
	"testing"
	"time"
)

func TestTimerMark(t *testing.T) {
	var tm Timer

	if d := tm.Mark(10 * time.Microsecond); d != 10*time.Microsecond {
		t.Errorf("first mark: got %v, want 10µs", d)
	}
	if d := tm.Mark(130 * time.Microsecond); d != 120*time.Microsecond {
		t.Errorf("second mark: got %v, want 120µs", d)
	}
	if tm.Previous() != 130*time.Microsecond {
		t.Errorf("previous: got %v, want 130µs", tm.Previous())
	}
}

func TestTimerMarkSameInstant(t *testing.T) {
	var tm Timer
	tm.Mark(time.Second)

	if d := tm.Mark(time.Second); d != 0 {
		t.Errorf("expected zero delta, got %v", d)
	}
}

func TestTimerBaseline(t *testing.T) {
	var tm Timer

	// A baseline mark discards the delta; the next edge is measured from it.
	tm.Mark(5 * time.Millisecond)
	if d := tm.Mark(5*time.Millisecond + 80*time.Microsecond); d != 80*time.Microsecond {
		t.Errorf("got %v, want 80µs", d)
	}
}
