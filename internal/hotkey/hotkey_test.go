package hotkey

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTriggerDebouncesBursts(t *testing.T) {
	d := NewDispatcher(20*time.Millisecond, nil)

	var fired atomic.Int32
	d.Bind("toggle-playback", func() { fired.Add(1) })

	for i := 0; i < 5; i++ {
		if !d.Trigger("toggle-playback") {
			t.Fatalf("trigger rejected a bound intent")
		}
	}
	time.Sleep(80 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("burst fired %d times, want 1", got)
	}

	// A later, separate press fires again.
	d.Trigger("toggle-playback")
	time.Sleep(80 * time.Millisecond)
	if got := fired.Load(); got != 2 {
		t.Fatalf("second press fired %d times total, want 2", got)
	}
}

func TestTriggerUnknownIntent(t *testing.T) {
	d := NewDispatcher(time.Millisecond, nil)
	if d.Trigger("nope") {
		t.Fatalf("unknown intent should be rejected")
	}
}
