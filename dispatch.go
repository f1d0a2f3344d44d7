package autoplay

import (
	"errors"
	"log/slog"

	"github.com/ludyw21/autoplay-go/internal/keysim"
	"github.com/ludyw21/autoplay-go/internal/midifile"
	"github.com/ludyw21/autoplay-go/internal/mousesim"
	"github.com/ludyw21/autoplay-go/internal/song"
)

// Precondition failures reported by the start operations. All are
// recoverable by adjusting selection, transpose settings, or the window.
var (
	ErrBusy            = errors.New("another playback mode is active")
	ErrNoSong          = errors.New("no song loaded")
	ErrNoPlayableNotes = errors.New("no playable notes inside the window")
	ErrNoBoundNotes    = errors.New("no playable notes map to an input binding")
	ErrNoPreviewer     = errors.New("no audio preview engine configured")
)

// PlanStep is one note that survived filtering: its offset from batch start,
// the shifted pitch, and how long it sounds.
type PlanStep struct {
	Time     float64
	Note     int
	Duration float64
	Velocity int
}

// Dispatcher is the simulated-input backend boundary. Bound is consulted
// while the plan is built; Start receives the whole batch and owns dispatch
// timing from there.
type Dispatcher interface {
	Bound(note int) bool
	Start(steps []PlanStep) error
	Stop() error
}

// filterEligible applies the shared dispatch filter: note-on events only,
// selected tracks when selectedOnly is set, and the shifted pitch inside the
// window. Out-of-window notes are dropped silently, never shifted further.
func filterEligible(snap song.Snapshot, selectedOnly bool) []PlanStep {
	byID := make(map[int]song.Track, len(snap.Tracks))
	for _, t := range snap.Tracks {
		byID[t.ID] = t
	}

	var steps []PlanStep
	for _, ev := range snap.Events {
		if ev.Type != midifile.NoteOn {
			continue
		}
		tr, ok := byID[ev.Track]
		if !ok {
			continue
		}
		if selectedOnly && !tr.Selected {
			continue
		}
		note := ev.Note + tr.Shift()
		if !snap.Window.Contains(note) {
			continue
		}
		steps = append(steps, PlanStep{
			Time:     ev.Time,
			Note:     note,
			Duration: ev.Duration,
			Velocity: ev.Velocity,
		})
	}
	return steps
}

// buildPlan runs both filtering passes and reports which one emptied the
// batch, so the caller can surface the right precondition failure.
func buildPlan(snap song.Snapshot, selectedOnly bool, d Dispatcher, log *slog.Logger) ([]PlanStep, error) {
	eligible := filterEligible(snap, selectedOnly)
	if len(eligible) == 0 {
		return nil, ErrNoPlayableNotes
	}

	var plan []PlanStep
	dropped := 0
	for _, st := range eligible {
		if !d.Bound(st.Note) {
			dropped++
			continue
		}
		plan = append(plan, st)
	}
	if dropped > 0 {
		log.Debug("dropped notes without input binding", "count", dropped)
	}
	if len(plan) == 0 {
		return nil, ErrNoBoundNotes
	}
	return plan, nil
}

func planSpan(plan []PlanStep) float64 {
	var end float64
	for _, st := range plan {
		if e := st.Time + st.Duration; e > end {
			end = e
		}
	}
	return end
}

// KeyDispatcher translates plan notes into key-press events through a
// note-to-key binding table and hands them to the key simulator.
type KeyDispatcher struct {
	Bindings map[int]string
	Sim      *keysim.Simulator
}

func (d *KeyDispatcher) Bound(note int) bool {
	_, ok := d.Bindings[note]
	return ok
}

func (d *KeyDispatcher) Start(steps []PlanStep) error {
	events := make([]keysim.KeyEvent, 0, len(steps))
	for _, st := range steps {
		events = append(events, keysim.KeyEvent{
			Time:     st.Time,
			Key:      d.Bindings[st.Note],
			Duration: st.Duration,
		})
	}
	return d.Sim.Start(events)
}

func (d *KeyDispatcher) Stop() error { return d.Sim.Stop() }

// MouseCoordinate is a screen position bound to a note.
type MouseCoordinate struct {
	X int
	Y int
}

// MouseDispatcher translates plan notes into timed clicks for instruments
// driven by mouse input.
type MouseDispatcher struct {
	Bindings map[int]MouseCoordinate
	Sim      *mousesim.Simulator
}

func (d *MouseDispatcher) Bound(note int) bool {
	_, ok := d.Bindings[note]
	return ok
}

func (d *MouseDispatcher) Start(steps []PlanStep) error {
	events := make([]mousesim.ClickEvent, 0, len(steps))
	for _, st := range steps {
		at := d.Bindings[st.Note]
		events = append(events, mousesim.ClickEvent{
			Time:     st.Time,
			X:        at.X,
			Y:        at.Y,
			Duration: st.Duration,
		})
	}
	return d.Sim.Start(events)
}

func (d *MouseDispatcher) Stop() error { return d.Sim.Stop() }
