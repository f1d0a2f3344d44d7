// Package mousesim plays timed click batches for instruments driven by mouse
// input. Cursor movement follows a randomized Bezier curve so the motion
// reads as human rather than teleporting between coordinates.
package mousesim

import (
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"
)

// ClickEvent is one timed click in a dispatch plan.
type ClickEvent struct {
	Time     float64 `json:"time"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Duration float64 `json:"duration"`
}

// Pointer is the OS boundary for cursor control.
type Pointer interface {
	Location() (x, y int, err error)
	MoveTo(x, y int) error
	Click() error
}

// LogPointer records cursor activity instead of injecting it.
type LogPointer struct {
	Log *slog.Logger

	mu   sync.Mutex
	x, y int
}

func (l *LogPointer) logger() *slog.Logger {
	if l.Log != nil {
		return l.Log
	}
	return slog.Default()
}

func (l *LogPointer) Location() (int, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.x, l.y, nil
}

func (l *LogPointer) MoveTo(x, y int) error {
	l.mu.Lock()
	l.x, l.y = x, y
	l.mu.Unlock()
	return nil
}

func (l *LogPointer) Click() error {
	l.logger().Debug("mouse click")
	return nil
}

// ErrActive is returned by Start when a batch is already running.
var ErrActive = errors.New("mouse playback already in progress")

const (
	targetJitterPx = 5
	minMoveSteps   = 5
	maxMoveSteps   = 30
	stopJoinWait   = time.Second
)

// Simulator runs one click batch at a time, same contract as the key
// simulator: Start rejects overlap, Stop is idempotent and best-effort.
type Simulator struct {
	ptr Pointer
	log *slog.Logger
	rng *rand.Rand

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

func New(ptr Pointer, log *slog.Logger) *Simulator {
	if log == nil {
		log = slog.Default()
	}
	return &Simulator{ptr: ptr, log: log, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *Simulator) Start(events []ClickEvent) error {
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

func (s *Simulator) Stop() error {
	s.mu.Lock()
	stop, done := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(stopJoinWait):
		s.log.Warn("mouse dispatch goroutine did not stop in time")
	}
	return nil
}

func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh != nil
}

func (s *Simulator) run(events []ClickEvent, stop, done chan struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		if s.doneCh == done {
			s.stopCh, s.doneCh = nil, nil
		}
		s.mu.Unlock()
	}()

	start := time.Now()
	for i, ev := range events {
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

		// Budget the move with the gap before the next event so slow songs
		// get smooth motion and fast runs still land on time.
		gap := 0.2
		if i+1 < len(events) {
			gap = events[i+1].Time - ev.Time
		}
		if err := s.click(ev, gap, stop); err != nil {
			s.log.Warn("mouse click failed", "x", ev.X, "y", ev.Y, "err", err)
		}
	}
}

func (s *Simulator) click(ev ClickEvent, gapSeconds float64, stop <-chan struct{}) error {
	curX, curY, err := s.ptr.Location()
	if err != nil {
		return err
	}

	tx := ev.X + s.rng.Intn(2*targetJitterPx+1) - targetJitterPx
	ty := ev.Y + s.rng.Intn(2*targetJitterPx+1) - targetJitterPx

	steps := int(gapSeconds * 100)
	if steps < minMoveSteps {
		steps = minMoveSteps
	}
	if steps > maxMoveSteps {
		steps = maxMoveSteps
	}
	moveBudget := gapSeconds * 0.3
	if moveBudget > 0.2 {
		moveBudget = 0.2
	}
	stepPause := time.Duration(moveBudget / float64(steps) * float64(time.Second))

	for _, p := range s.bezierPath(curX, curY, tx, ty, steps) {
		if err := s.ptr.MoveTo(p.x, p.y); err != nil {
			return err
		}
		if stepPause > 0 {
			select {
			case <-time.After(stepPause):
			case <-stop:
				return nil
			}
		}
	}
	return s.ptr.Click()
}

type point struct{ x, y int }

// bezierPath traces a quadratic Bezier from the current position to the
// target, with the control point offset randomly by 20-40% of the distance.
func (s *Simulator) bezierPath(sx, sy, ex, ey, steps int) []point {
	dx, dy := ex-sx, ey-sy
	dist := math.Sqrt(float64(dx*dx + dy*dy))
	offset := int(dist * 0.2)
	if offset < 10 {
		offset = 10
	}

	cx := (sx+ex)/2 + s.rng.Intn(2*offset+1) - offset
	cy := (sy+ey)/2 + s.rng.Intn(2*offset+1) - offset

	path := make([]point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		u := 1 - t
		x := u*u*float64(sx) + 2*u*t*float64(cx) + t*t*float64(ex)
		y := u*u*float64(sy) + 2*u*t*float64(cy) + t*t*float64(ey)
		path = append(path, point{int(x), int(y)})
	}
	return path
}
