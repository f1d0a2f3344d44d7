// Package midifile reads a standard MIDI file into the flat, seconds-based
// note event list the playback layer works with.
package midifile

import (
	"errors"
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

type EventType string

const (
	NoteOn  EventType = "note_on"
	NoteOff EventType = "note_off"
)

// Event is one note boundary with absolute times in seconds. A NoteOn event
// carries the full duration and end time of its note; the paired NoteOff is
// emitted separately with a zero duration.
type Event struct {
	Time     float64   `json:"time"`
	Type     EventType `json:"type"`
	Note     int       `json:"note"`
	Channel  int       `json:"channel"`
	Track    int       `json:"track"`
	Velocity int       `json:"velocity"`
	Duration float64   `json:"duration"`
	End      float64   `json:"end"`
}

// TrackInfo summarizes one SMF track that contains at least one note-on.
// Notes holds the original, un-shifted note-on pitches in file order; range
// analysis always starts from these, never from already-shifted values.
type TrackInfo struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	NoteCount int    `json:"note_count"`
	Notes     []int  `json:"-"`
}

// Song is one parsed MIDI file. Events are sorted by time across all tracks.
type Song struct {
	Path   string      `json:"path"`
	Events []Event     `json:"events"`
	Tracks []TrackInfo `json:"tracks"`
}

// Duration returns the end time of the last note in seconds.
func (s *Song) Duration() float64 {
	var end float64
	for _, ev := range s.Events {
		if ev.End > end {
			end = ev.End
		}
	}
	return end
}

// BlackKeyModeAutoSharp remaps black keys to their nearest white key so songs
// stay playable on instruments without accidentals.
const BlackKeyModeAutoSharp = "auto_sharp"

type Options struct {
	BlackKeyMode   string
	TrimLongNotes  bool
	MaxNoteSeconds float64 // duration cap when TrimLongNotes is set; 0 means 1s
}

const defaultMaxNoteSeconds = 1.0

const defaultBPM = 120.0

type tempoChange struct {
	tick uint32
	bpm  float64
}

// Parse reads and flattens a MIDI file. Only metric (ticks-per-beat) timing
// is supported.
func Parse(path string, opts Options) (song *Song, err error) {
	// gomidi can panic on malformed files; keep the guard.
	defer func() {
		if r := recover(); r != nil {
			song, err = nil, fmt.Errorf("parse midi: %v", r)
		}
	}()

	data, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read midi file: %w", err)
	}

	ticks, ok := data.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.New("SMPTE timing not supported")
	}

	var tempi []tempoChange
	var tracks []TrackInfo

	// First pass: tempo map, track names, note-on counts and pitches.
	for i, tr := range data.Tracks {
		var tick uint32
		info := TrackInfo{ID: i, Name: fmt.Sprintf("Track %d", i)}
		for _, ev := range tr {
			tick += ev.Delta
			var bpm float64
			var name string
			var ch, key, vel uint8
			switch {
			case ev.Message.GetMetaTempo(&bpm):
				tempi = append(tempi, tempoChange{tick: tick, bpm: bpm})
			case ev.Message.GetMetaTrackName(&name):
				if name != "" {
					info.Name = name
				}
			case ev.Message.GetNoteStart(&ch, &key, &vel):
				info.NoteCount++
				info.Notes = append(info.Notes, int(key))
			}
		}
		if info.NoteCount > 0 {
			tracks = append(tracks, info)
		}
	}

	tempi = normalizeTempi(tempi)
	toSeconds := func(tick uint32) float64 {
		var sec float64
		last := tempi[0]
		for _, tc := range tempi[1:] {
			if tc.tick > tick {
				break
			}
			sec += ticks.Duration(last.bpm, tc.tick-last.tick).Seconds()
			last = tc
		}
		return sec + ticks.Duration(last.bpm, tick-last.tick).Seconds()
	}

	maxDur := opts.MaxNoteSeconds
	if maxDur <= 0 {
		maxDur = defaultMaxNoteSeconds
	}

	// Second pass: pair note-ons with note-offs per (channel, note).
	var events []Event
	for i, tr := range data.Tracks {
		type activeKey struct{ ch, note uint8 }
		type activeNote struct {
			tick     uint32
			velocity uint8
		}
		active := make(map[activeKey]activeNote)
		var tick uint32
		for _, ev := range tr {
			tick += ev.Delta
			var ch, key, vel uint8
			switch {
			case ev.Message.GetNoteStart(&ch, &key, &vel):
				active[activeKey{ch, key}] = activeNote{tick: tick, velocity: vel}
			case ev.Message.GetNoteEnd(&ch, &key):
				start, ok := active[activeKey{ch, key}]
				if !ok {
					continue // unmatched note-off
				}
				delete(active, activeKey{ch, key})
				startSec := toSeconds(start.tick)
				endSec := toSeconds(tick)
				dur := endSec - startSec
				if opts.TrimLongNotes && dur > maxDur {
					dur = maxDur
					endSec = startSec + dur
				}
				events = append(events,
					Event{
						Time:     startSec,
						Type:     NoteOn,
						Note:     int(key),
						Channel:  int(ch),
						Track:    i,
						Velocity: int(start.velocity),
						Duration: dur,
						End:      endSec,
					},
					Event{
						Time:    endSec,
						Type:    NoteOff,
						Note:    int(key),
						Channel: int(ch),
						Track:   i,
						End:     endSec,
					})
			}
		}
	}

	sort.SliceStable(events, func(a, b int) bool { return events[a].Time < events[b].Time })

	if opts.BlackKeyMode == BlackKeyModeAutoSharp {
		remapBlackKeys(events)
	}

	return &Song{Path: path, Events: events, Tracks: tracks}, nil
}

func normalizeTempi(tempi []tempoChange) []tempoChange {
	sort.SliceStable(tempi, func(a, b int) bool { return tempi[a].tick < tempi[b].tick })
	out := tempi[:0]
	for _, tc := range tempi {
		if len(out) > 0 && out[len(out)-1].tick == tc.tick {
			out[len(out)-1] = tc // same tick: last one wins
			continue
		}
		out = append(out, tc)
	}
	if len(out) == 0 || out[0].tick > 0 {
		out = append([]tempoChange{{tick: 0, bpm: defaultBPM}}, out...)
	}
	return out
}

var whitePCs = [7]int{0, 2, 4, 5, 7, 9, 11}

func isBlackPC(pc int) bool {
	switch pc {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

// nearestWhitePC picks the white pitch class with the smallest semitone
// distance; the lower neighbor wins ties by table order.
func nearestWhitePC(pc int) int {
	best, bestDist := 0, 12
	for _, w := range whitePCs {
		d := pc - w
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			bestDist = d
			best = w
		}
	}
	return best
}

func remapBlackKeys(events []Event) {
	for i := range events {
		pc := events[i].Note % 12
		if isBlackPC(pc) {
			events[i].Note = events[i].Note - pc + nearestWhitePC(pc)
		}
	}
}
