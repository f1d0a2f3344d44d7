// Package notes provides pitch-range analysis for MIDI tracks against a
// playable window, and the transpose/octave search that brings out-of-range
// extremes back inside it.
package notes

import "fmt"

// Window is the inclusive [Min, Max] MIDI pitch range the target input
// device can produce.
type Window struct {
	Min int `json:"min_note" yaml:"min_note"`
	Max int `json:"max_note" yaml:"max_note"`
}

func (w Window) Contains(note int) bool {
	return note >= w.Min && note <= w.Max
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Name returns the scientific pitch name for a MIDI note (60 = "C4").
func Name(note int) string {
	octave := note/12 - 1
	idx := note % 12
	if idx < 0 {
		idx += 12
		octave--
	}
	return fmt.Sprintf("%s%d", noteNames[idx], octave)
}

// Group labels a contiguous MIDI note range with an octave-group name.
type Group struct {
	Low   int
	High  int
	Label string
}

// GroupTable maps notes to octave-group labels. Ranges are checked in order;
// the first match wins.
type GroupTable []Group

// DefaultGroups covers the piano range with Helmholtz octave-group names.
var DefaultGroups = GroupTable{
	{21, 23, "sub-contra (A2-B2)"},
	{24, 35, "contra (C1-B1)"},
	{36, 47, "great (C-B)"},
	{48, 59, "small (c-b)"},
	{60, 71, "one-line (c1-b1)"},
	{72, 83, "two-line (c2-b2)"},
	{84, 95, "three-line (c3-b3)"},
	{96, 107, "four-line (c4-b4)"},
	{108, 108, "five-line (c5)"},
}

func (t GroupTable) Lookup(note int) string {
	for _, g := range t {
		if note >= g.Low && note <= g.High {
			return g.Label
		}
	}
	return "unknown"
}
