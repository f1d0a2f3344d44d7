// Package autoplay plays a parsed MIDI song through a simulated-input
// backend, keeping each track's pitch range inside a constrained playable
// window. The Player is the playback state machine; range analysis and
// transpose suggestions live in the song store it wraps.
package autoplay

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ludyw21/autoplay-go/internal/config"
	"github.com/ludyw21/autoplay-go/internal/keysim"
	"github.com/ludyw21/autoplay-go/internal/notes"
	"github.com/ludyw21/autoplay-go/internal/song"
	"github.com/ludyw21/autoplay-go/internal/synth"
)

// State is the playback mode. Exactly one non-idle state is active at a
// time; starting a mode from another non-idle state fails with ErrBusy.
type State int

const (
	StateIdle State = iota
	StateCountingDown
	StatePlaying
	StatePreviewing
	StateAudioPreviewing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCountingDown:
		return "counting-down"
	case StatePlaying:
		return "playing"
	case StatePreviewing:
		return "previewing"
	case StateAudioPreviewing:
		return "audio-previewing"
	default:
		return "unknown"
	}
}

// EventKind identifies player lifecycle events delivered through Watch.
type EventKind int

const (
	EventCountdownTick EventKind = iota
	EventStarted
	EventRemainingTick
	EventStopped
)

// Event carries one lifecycle notification. Err is set only when a backend
// failure forced the stop.
type Event struct {
	Kind         EventKind
	State        State
	Session      uuid.UUID
	TicksLeft    int
	RemainingSec int
	Err          error
}

// Previewer is the local audio engine boundary for audio preview mode.
type Previewer interface {
	Start(notes []synth.Note) error
	Stop() error
}

// Status is a point-in-time snapshot of the player for status surfaces.
type Status struct {
	State        State     `json:"state"`
	Session      uuid.UUID `json:"session,omitempty"`
	RemainingSec int       `json:"remaining_sec"`
	SongPath     string    `json:"song_path,omitempty"`
}

type session struct {
	id        uuid.UUID
	mode      State
	cancel    chan struct{}
	cancelled bool
	started   bool // backend dispatch actually began
	endsAt    time.Time
}

const defaultCountdownTicks = 3

// Player is the playback controller. It owns at most one live session and
// drives it through countdown, dispatch, and the remaining-time ticker.
type Player struct {
	store      *song.Store
	dispatcher Dispatcher
	previewer  Previewer
	log        *slog.Logger

	countdownTicks int
	tickInterval   time.Duration
	leadIn         float64

	mu    sync.Mutex
	state State
	sess  *session

	eventMu sync.Mutex
	eventCh chan Event
}

type Option func(*Player)

// WithDispatcher sets the simulated-input backend. The default is a key
// dispatcher over the stock 21-key layout with a dry-run injector.
func WithDispatcher(d Dispatcher) Option {
	return func(p *Player) { p.dispatcher = d }
}

// WithPreviewer sets the audio-preview engine.
func WithPreviewer(pre Previewer) Option {
	return func(p *Player) { p.previewer = pre }
}

// WithCountdownTicks overrides the pre-roll countdown length.
func WithCountdownTicks(ticks int) Option {
	return func(p *Player) { p.countdownTicks = ticks }
}

// WithTickInterval overrides the one-second countdown/remaining tick.
func WithTickInterval(d time.Duration) Option {
	return func(p *Player) { p.tickInterval = d }
}

// WithLeadIn sets the audio-preview scheduling lead-in in seconds.
func WithLeadIn(seconds float64) Option {
	return func(p *Player) { p.leadIn = seconds }
}

func WithLogger(log *slog.Logger) Option {
	return func(p *Player) { p.log = log }
}

func NewPlayer(store *song.Store, opts ...Option) *Player {
	p := &Player{
		store:          store,
		log:            slog.Default(),
		countdownTicks: defaultCountdownTicks,
		tickInterval:   time.Second,
		leadIn:         0.2,
		state:          StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dispatcher == nil {
		p.dispatcher = &KeyDispatcher{
			Bindings: config.Default().KeyBindings,
			Sim:      keysim.New(keysim.LogInjector{Log: p.log}, p.log),
		}
	}
	return p
}

// Watch returns a channel receiving lifecycle events. The channel is
// buffered; events are dropped rather than blocking the player. Only the
// most recent Watch channel receives events.
func (p *Player) Watch() <-chan Event {
	ch := make(chan Event, 16)
	p.eventMu.Lock()
	p.eventCh = ch
	p.eventMu.Unlock()
	return ch
}

func (p *Player) send(ev Event) {
	p.eventMu.Lock()
	ch := p.eventCh
	p.eventMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}

// State returns the current playback mode.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Status reports the current mode, session and remaining time.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{State: p.state, SongPath: p.store.Snapshot().Path}
	if p.sess != nil {
		st.Session = p.sess.id
		if p.sess.started {
			st.RemainingSec = ceilSeconds(time.Until(p.sess.endsAt))
		}
	}
	return st
}

// Remaining returns the time left in the active session, zero when idle or
// still counting down.
func (p *Player) Remaining() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil || !p.sess.started {
		return 0
	}
	left := time.Until(p.sess.endsAt)
	if left < 0 {
		return 0
	}
	return left
}

// LoadSong switches the active song. Any active mode is stopped first, then
// the file is parsed and the track list replaced.
func (p *Player) LoadSong(path string) error {
	p.Stop()
	return p.store.Load(path)
}

// SetWindow changes the playable window, re-parsing the active song. Any
// active mode is stopped first; the running plan was filtered against the old
// window and must not keep dispatching against the new one.
func (p *Player) SetWindow(win notes.Window) error {
	p.Stop()
	return p.store.SetWindow(win)
}

// StartPlayback begins simulated-key playback: selection and window
// filtering, binding mapping, then a pre-roll countdown before the backend
// is handed the batch. Precondition failures leave the player idle.
func (p *Player) StartPlayback() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return ErrBusy
	}

	snap := p.store.Snapshot()
	if !snap.Loaded() {
		return ErrNoSong
	}
	plan, err := buildPlan(snap, true, p.dispatcher, p.log)
	if err != nil {
		return err
	}

	sess := &session{id: uuid.New(), mode: StatePlaying, cancel: make(chan struct{})}
	p.sess = sess
	p.state = StateCountingDown
	go p.countdown(sess, plan)
	return nil
}

// StartPreview begins simulated-key preview: window filtering only (track
// selection is ignored) and no countdown.
func (p *Player) StartPreview() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return ErrBusy
	}

	snap := p.store.Snapshot()
	if !snap.Loaded() {
		return ErrNoSong
	}
	plan, err := buildPlan(snap, false, p.dispatcher, p.log)
	if err != nil {
		return err
	}

	sess := &session{id: uuid.New(), mode: StatePreviewing, cancel: make(chan struct{})}
	if err := p.dispatcher.Start(plan); err != nil {
		p.log.Error("preview dispatch failed", "err", err)
		return err
	}
	sess.started = true
	sess.endsAt = time.Now().Add(secondsDuration(planSpan(plan)))
	p.sess = sess
	p.state = StatePreviewing
	go p.tickRemaining(sess)
	p.send(Event{Kind: EventStarted, State: StatePreviewing, Session: sess.id})
	return nil
}

// StartAudioPreview begins local-synthesis preview of the window-filtered
// note set. Each note is scheduled at leadIn + event time; the lead-in
// absorbs scheduling latency.
func (p *Player) StartAudioPreview() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return ErrBusy
	}
	if p.previewer == nil {
		return ErrNoPreviewer
	}

	snap := p.store.Snapshot()
	if !snap.Loaded() {
		return ErrNoSong
	}
	eligible := filterEligible(snap, false)
	if len(eligible) == 0 {
		return ErrNoPlayableNotes
	}

	sched := make([]synth.Note, 0, len(eligible))
	for _, st := range eligible {
		sched = append(sched, synth.Note{
			Start:    p.leadIn + st.Time,
			Duration: st.Duration,
			Pitch:    st.Note,
			Velocity: synth.NormalizeVelocity(st.Velocity),
		})
	}

	sess := &session{id: uuid.New(), mode: StateAudioPreviewing, cancel: make(chan struct{})}
	if err := p.previewer.Start(sched); err != nil {
		p.log.Error("audio preview failed", "err", err)
		return err
	}
	sess.started = true
	sess.endsAt = time.Now().Add(secondsDuration(p.leadIn + planSpan(eligible)))
	p.sess = sess
	p.state = StateAudioPreviewing
	go p.tickRemaining(sess)
	p.send(Event{Kind: EventStarted, State: StateAudioPreviewing, Session: sess.id})
	return nil
}

// Stop ends whichever mode is active and always lands in StateIdle. The
// backend stop runs exactly once per session and only if dispatch actually
// started; its errors are logged, never surfaced. Stopping an idle player
// is a no-op, and a stop during countdown is the normal "changed my mind"
// path, not an error.
func (p *Player) Stop() {
	p.mu.Lock()
	sess := p.sess
	p.sess = nil
	p.state = StateIdle
	if sess != nil && !sess.cancelled {
		close(sess.cancel)
		sess.cancelled = true
	}
	p.mu.Unlock()
	if sess == nil {
		return
	}

	if sess.started {
		switch sess.mode {
		case StateAudioPreviewing:
			if err := p.previewer.Stop(); err != nil {
				p.log.Warn("audio preview stop failed", "err", err)
			}
		default:
			if err := p.dispatcher.Stop(); err != nil {
				p.log.Warn("dispatch stop failed", "err", err)
			}
		}
	}
	p.send(Event{Kind: EventStopped, State: StateIdle, Session: sess.id})
}

// countdown runs the pre-roll ticks and then hands off to dispatch. A stop
// during the wait simply abandons the session.
func (p *Player) countdown(sess *session, plan []PlanStep) {
	for i := p.countdownTicks; i > 0; i-- {
		p.send(Event{Kind: EventCountdownTick, State: StateCountingDown, Session: sess.id, TicksLeft: i})
		select {
		case <-time.After(p.tickInterval):
		case <-sess.cancel:
			return
		}
	}
	p.beginDispatch(sess, plan)
}

func (p *Player) beginDispatch(sess *session, plan []PlanStep) {
	p.mu.Lock()
	// Cancellation is re-checked under the lock, so a stop issued at any
	// point during the countdown keeps the backend start from being issued.
	select {
	case <-sess.cancel:
		p.mu.Unlock()
		return
	default:
	}
	if p.sess != sess || p.state != StateCountingDown {
		p.mu.Unlock()
		return
	}

	if err := p.dispatcher.Start(plan); err != nil {
		p.sess = nil
		p.state = StateIdle
		p.mu.Unlock()
		p.log.Error("dispatch start failed", "err", err)
		p.send(Event{Kind: EventStopped, State: StateIdle, Session: sess.id, Err: err})
		return
	}
	sess.started = true
	sess.endsAt = time.Now().Add(secondsDuration(planSpan(plan)))
	p.state = StatePlaying
	p.mu.Unlock()

	p.send(Event{Kind: EventStarted, State: StatePlaying, Session: sess.id})
	go p.tickRemaining(sess)
}

// tickRemaining emits remaining-time ticks and routes expiry through the
// same stop path as an explicit user stop.
func (p *Player) tickRemaining(sess *session) {
	for {
		select {
		case <-sess.cancel:
			return
		case <-time.After(p.tickInterval):
		}

		p.mu.Lock()
		current := p.sess == sess
		endsAt := sess.endsAt
		p.mu.Unlock()
		if !current {
			return
		}

		left := time.Until(endsAt)
		if left <= 0 {
			p.Stop()
			return
		}
		p.send(Event{
			Kind:         EventRemainingTick,
			State:        sess.mode,
			Session:      sess.id,
			RemainingSec: ceilSeconds(left),
		})
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

func secondsDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
