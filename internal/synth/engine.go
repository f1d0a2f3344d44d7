// Package synth renders the local audio preview: scheduled note triggers
// played through small two-operator FM voices.
package synth

import (
	"math"
	"sort"
)

// Note is one scheduled preview trigger. Start is seconds from render start
// (any lead-in is already folded in); Velocity is a normalized 0.1-1.0 gain.
type Note struct {
	Start    float64
	Duration float64
	Pitch    int
	Velocity float64
}

// NormalizeVelocity maps a raw MIDI velocity to the 0.1-1.0 range so even
// the quietest notes stay audible in a preview.
func NormalizeVelocity(raw int) float64 {
	if raw < 0 {
		raw = 0
	}
	if raw > 127 {
		raw = 127
	}
	return 0.1 + float64(raw)/127*0.9
}

const (
	attackSec  = 0.005
	decaySec   = 0.12
	sustainLvl = 0.7
	releaseSec = 0.2
	modRatio   = 2.0
	modIndex   = 1.4
	masterGain = 0.3
)

const twoPi = 2 * math.Pi

// Engine renders a fixed schedule of notes to interleaved stereo float32.
// It implements the audio package's Finisher: Done turns true once the last
// note and its release tail have played out.
type Engine struct {
	sampleRate float64
	notes      []Note
	next       int
	clock      int64
	endClock   int64
	voices     []*voice
}

func NewEngine(sampleRate int, notes []Note) *Engine {
	sorted := make([]Note, len(notes))
	copy(sorted, notes)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Start < sorted[b].Start })

	var end float64
	for _, n := range sorted {
		if e := n.Start + n.Duration; e > end {
			end = e
		}
	}
	return &Engine{
		sampleRate: float64(sampleRate),
		notes:      sorted,
		endClock:   int64((end + releaseSec) * float64(sampleRate)),
	}
}

// Duration returns the total render length in seconds, release tail included.
func (e *Engine) Duration() float64 {
	return float64(e.endClock) / e.sampleRate
}

// Render fills dst with the next interleaved stereo frames.
func (e *Engine) Render(dst []float32) {
	for i := 0; i+1 < len(dst); i += 2 {
		for e.next < len(e.notes) && int64(e.notes[e.next].Start*e.sampleRate) <= e.clock {
			n := e.notes[e.next]
			e.voices = append(e.voices, newVoice(e.sampleRate, n))
			e.next++
		}

		var sum float64
		alive := e.voices[:0]
		for _, v := range e.voices {
			s, done := v.render()
			sum += s
			if !done {
				alive = append(alive, v)
			}
		}
		e.voices = alive

		out := float32(sum * masterGain)
		dst[i] = out
		dst[i+1] = out
		e.clock++
	}
}

// Done reports whether every scheduled note has fully sounded out.
func (e *Engine) Done() bool {
	return e.next >= len(e.notes) && len(e.voices) == 0 && e.clock >= e.endClock
}

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envDone
)

type voice struct {
	sampleRate float64
	freq       float64
	velocity   float64
	phase      float64
	modPhase   float64

	state    envState
	env      float64
	holdLeft int // samples until release begins
}

func newVoice(sampleRate float64, n Note) *voice {
	hold := int(n.Duration * sampleRate)
	if hold < 1 {
		hold = 1
	}
	return &voice{
		sampleRate: sampleRate,
		freq:       noteFreq(n.Pitch),
		velocity:   n.Velocity,
		holdLeft:   hold,
	}
}

func noteFreq(pitch int) float64 {
	return 440 * math.Pow(2, float64(pitch-69)/12)
}

func (v *voice) render() (float64, bool) {
	if v.state == envDone {
		return 0, true
	}

	switch v.state {
	case envAttack:
		v.env += 1 / (attackSec * v.sampleRate)
		if v.env >= 1 {
			v.env = 1
			v.state = envDecay
		}
	case envDecay:
		v.env -= (1 - sustainLvl) / (decaySec * v.sampleRate)
		if v.env <= sustainLvl {
			v.env = sustainLvl
			v.state = envSustain
		}
	case envRelease:
		v.env -= sustainLvl / (releaseSec * v.sampleRate)
		if v.env <= 0 {
			v.env = 0
			v.state = envDone
			return 0, true
		}
	}

	if v.state != envRelease {
		v.holdLeft--
		if v.holdLeft <= 0 {
			v.state = envRelease
		}
	}

	mod := math.Sin(v.modPhase) * modIndex * v.env
	sample := math.Sin(v.phase+mod) * v.env * v.velocity

	v.phase += twoPi * v.freq / v.sampleRate
	if v.phase > twoPi {
		v.phase -= twoPi
	}
	v.modPhase += twoPi * v.freq * modRatio / v.sampleRate
	if v.modPhase > twoPi {
		v.modPhase -= twoPi
	}
	return sample, false
}
