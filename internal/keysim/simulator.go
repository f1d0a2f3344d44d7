package keysim

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Injector performs raw key injection. Implementations talk to the OS; the
// LogInjector below is the dry-run default.
type Injector interface {
	Press(code Code) error
	Release(code Code) error
}

// LogInjector records key activity instead of injecting it.
type LogInjector struct {
	Log *slog.Logger
}

func (l LogInjector) logger() *slog.Logger {
	if l.Log != nil {
		return l.Log
	}
	return slog.Default()
}

func (l LogInjector) Press(code Code) error {
	l.logger().Debug("key press", "code", fmt.Sprintf("0x%02X", uint16(code)))
	return nil
}

func (l LogInjector) Release(code Code) error {
	l.logger().Debug("key release", "code", fmt.Sprintf("0x%02X", uint16(code)))
	return nil
}

// ErrActive is returned by Start when a batch is already running.
var ErrActive = errors.New("playback already in progress")

// Inter-key delays carried over from the original injection timing: small
// gaps so the target application registers each transition.
const (
	modifierGap   = 5 * time.Millisecond
	beforeMainGap = 10 * time.Millisecond
	tapHold       = time.Millisecond
	afterMainGap  = 10 * time.Millisecond
	modReleaseGap = 30 * time.Millisecond
	stopJoinWait  = time.Second
)

// Simulator runs one key-event batch at a time on its own goroutine.
// Start rejects overlapping batches; Stop is idempotent and safe to call
// when nothing is playing.
type Simulator struct {
	inj Injector
	log *slog.Logger

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

func New(inj Injector, log *slog.Logger) *Simulator {
	if log == nil {
		log = slog.Default()
	}
	return &Simulator{inj: inj, log: log}
}

// Start begins dispatching the batch. The timing reference is the moment of
// the call; each event waits out its offset unless a stop arrives first.
func (s *Simulator) Start(events []KeyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return ErrActive
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stopCh, s.doneCh = stop, done
	go s.run(events, stop, done)
	return nil
}

// Stop cancels the running batch, if any, and waits briefly for the dispatch
// goroutine to wind down.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	stop, done := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return nil // nothing running
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(stopJoinWait):
		s.log.Warn("dispatch goroutine did not stop in time")
	}
	return nil
}

// Running reports whether a batch is currently dispatching.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh != nil
}

func (s *Simulator) run(events []KeyEvent, stop, done chan struct{}) {
	defer close(done)
	defer func() {
		// Clear the running state on natural completion; a concurrent Stop
		// may have cleared it already.
		s.mu.Lock()
		if s.doneCh == done {
			s.stopCh, s.doneCh = nil, nil
		}
		s.mu.Unlock()
	}()

	start := time.Now()
	for _, ev := range events {
		target := time.Duration(ev.Time * float64(time.Second))
		if wait := target - time.Since(start); wait > 0 {
			select {
			case <-time.After(wait):
			case <-stop:
				return
			}
		}
		select {
		case <-stop:
			return
		default:
		}
		if err := s.press(ev.Key, stop); err != nil {
			s.log.Warn("keypress failed", "key", ev.Key, "err", err)
		}
	}
}

// press injects one key combo: modifiers down, main key tap, modifiers up in
// reverse order. Hold times come from the batch timing, not from Duration;
// the plan spaces events so presses land on the beat.
func (s *Simulator) press(key string, stop <-chan struct{}) error {
	mods, ch, err := ParseKey(key)
	if err != nil {
		return err
	}
	code, ok := codeFor(ch)
	if !ok {
		return fmt.Errorf("unsupported character %q", ch)
	}

	var held []Code
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			if err := s.inj.Release(held[i]); err != nil {
				s.log.Warn("modifier release failed", "err", err)
			}
			sleepOrStop(modReleaseGap, stop)
		}
	}()

	for _, m := range mods {
		mc, ok := modifierCode(m)
		if !ok {
			return fmt.Errorf("unsupported modifier %d", m)
		}
		if err := s.inj.Press(mc); err != nil {
			return fmt.Errorf("press modifier: %w", err)
		}
		held = append(held, mc)
		sleepOrStop(modifierGap, stop)
	}
	if len(mods) > 0 {
		sleepOrStop(beforeMainGap, stop)
	}

	if err := s.inj.Press(code); err != nil {
		return fmt.Errorf("press key: %w", err)
	}
	sleepOrStop(tapHold, stop)
	if err := s.inj.Release(code); err != nil {
		return fmt.Errorf("release key: %w", err)
	}
	if len(mods) > 0 {
		sleepOrStop(afterMainGap, stop)
	}
	return nil
}

func sleepOrStop(d time.Duration, stop <-chan struct{}) {
	select {
	case <-time.After(d):
	case <-stop:
	}
}
