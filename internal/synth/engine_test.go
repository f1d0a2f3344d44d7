package synth

import "testing"

func TestNormalizeVelocity(t *testing.T) {
	if got := NormalizeVelocity(0); got != 0.1 {
		t.Fatalf("velocity 0 = %v, want 0.1", got)
	}
	if got := NormalizeVelocity(127); got != 1.0 {
		t.Fatalf("velocity 127 = %v, want 1.0", got)
	}
	if got := NormalizeVelocity(200); got != 1.0 {
		t.Fatalf("velocity should clamp, got %v", got)
	}
	mid := NormalizeVelocity(64)
	if mid <= 0.1 || mid >= 1.0 {
		t.Fatalf("velocity 64 = %v, want inside (0.1, 1.0)", mid)
	}
}

func energy(buf []float32) float64 {
	var e float64
	for _, s := range buf {
		if s < 0 {
			e -= float64(s)
		} else {
			e += float64(s)
		}
	}
	return e
}

func TestEngineHonorsLeadIn(t *testing.T) {
	const rate = 48000
	eng := NewEngine(rate, []Note{{Start: 0.5, Duration: 0.25, Pitch: 60, Velocity: 0.8}})

	// First 0.4s: nothing scheduled yet, output must be silent.
	lead := make([]float32, int(0.4*rate)*2)
	eng.Render(lead)
	if e := energy(lead); e != 0 {
		t.Fatalf("energy before first note = %v, want silence", e)
	}

	// The note itself must produce signal.
	body := make([]float32, int(0.3*rate)*2)
	eng.Render(body)
	if e := energy(body); e == 0 {
		t.Fatalf("expected non-zero audio energy during the note")
	}
}

func TestEngineDoneAfterReleaseTail(t *testing.T) {
	const rate = 48000
	eng := NewEngine(rate, []Note{
		{Start: 0, Duration: 0.1, Pitch: 60, Velocity: 1},
		{Start: 0.1, Duration: 0.1, Pitch: 64, Velocity: 1},
	})
	if eng.Done() {
		t.Fatalf("engine done before rendering anything")
	}

	buf := make([]float32, rate*2) // one second covers notes plus release
	eng.Render(buf)
	if !eng.Done() {
		t.Fatalf("engine not done after the full schedule rendered")
	}
	if energy(buf) == 0 {
		t.Fatalf("expected audible preview output")
	}
}

func TestEngineDurationCoversReleaseTail(t *testing.T) {
	eng := NewEngine(48000, []Note{{Start: 1, Duration: 0.5, Pitch: 69, Velocity: 1}})
	if d := eng.Duration(); d < 1.5 || d > 2.0 {
		t.Fatalf("duration = %v, want 1.5 plus release tail", d)
	}
}
