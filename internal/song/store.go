// Package song holds the loaded song's tracks and keeps each track's range
// analysis consistent with its transpose/octave settings and the global
// playable window.
package song

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ludyw21/autoplay-go/internal/midifile"
	"github.com/ludyw21/autoplay-go/internal/notes"
)

// Extreme selects which end of a track's range a suggestion applies to.
type Extreme int

const (
	ExtremeMax Extreme = iota
	ExtremeMin
)

func (e Extreme) String() string {
	if e == ExtremeMin {
		return "min"
	}
	return "max"
}

// Track is a read-only snapshot of one track's state.
type Track struct {
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	NoteCount int            `json:"note_count"`
	Selected  bool           `json:"selected"`
	Transpose int            `json:"transpose"`
	Octave    int            `json:"octave"`
	Analysis  notes.Analysis `json:"analysis"`
}

// Shift is the combined semitone shift applied to the track's notes.
func (t Track) Shift() int {
	return t.Transpose + 12*t.Octave
}

// Snapshot is an immutable copy of the store's state for one point in time.
type Snapshot struct {
	Path   string
	Window notes.Window
	Tracks []Track
	Events []midifile.Event
}

// Loaded reports whether a song is present.
func (s Snapshot) Loaded() bool { return len(s.Tracks) > 0 }

// TrackByID returns the snapshot track with the given id.
func (s Snapshot) TrackByID(id int) (Track, bool) {
	for _, t := range s.Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

// ParseFunc is the parser boundary. The window is passed through because a
// window change forces a full re-parse of the active file.
type ParseFunc func(path string, win notes.Window) (*midifile.Song, error)

var ErrNoTrack = errors.New("no such track")

// Store owns the track list and window for the currently loaded song.
// All mutating operations re-run analysis from each track's cached original
// pitches, so repeated edits never compound shifts.
type Store struct {
	mu     sync.Mutex
	parse  ParseFunc
	window notes.Window

	path   string
	events []midifile.Event
	tracks []*trackState
}

type trackState struct {
	Track
	orig []int // original un-shifted note-on pitches
}

func NewStore(parse ParseFunc, win notes.Window) *Store {
	return &Store{parse: parse, window: win}
}

// Load parses a new file and replaces all track state. Previous tracks are
// dropped wholesale; new tracks start selected with zero transpose/octave.
// On parse failure the store is left empty.
func (s *Store) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.path = ""
	s.events = nil
	s.tracks = nil

	parsed, err := s.parse(path, s.window)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	s.path = path
	s.events = parsed.Events
	for _, info := range parsed.Tracks {
		st := &trackState{
			Track: Track{
				ID:        info.ID,
				Name:      info.Name,
				NoteCount: info.NoteCount,
				Selected:  true,
			},
			orig: info.Notes,
		}
		st.Analysis = notes.Analyze(st.orig, 0, 0, s.window)
		s.tracks = append(s.tracks, st)
	}
	return nil
}

// SetWindow changes the playable window. The active song is re-parsed (window
// parameters feed the parser) and every track re-analyzed; transpose, octave
// and selection settings survive the reload.
func (s *Store) SetWindow(win notes.Window) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.window = win
	if s.path == "" {
		return nil
	}

	parsed, err := s.parse(s.path, win)
	if err != nil {
		return fmt.Errorf("reparse %s: %w", s.path, err)
	}
	s.events = parsed.Events

	kept := make(map[int]*trackState, len(s.tracks))
	for _, st := range s.tracks {
		kept[st.ID] = st
	}
	s.tracks = s.tracks[:0]
	for _, info := range parsed.Tracks {
		st, ok := kept[info.ID]
		if !ok {
			st = &trackState{Track: Track{ID: info.ID, Selected: true}}
		}
		st.Name = info.Name
		st.NoteCount = info.NoteCount
		st.orig = info.Notes
		st.Analysis = notes.Analyze(st.orig, st.Transpose, st.Octave, win)
		s.tracks = append(s.tracks, st)
	}
	return nil
}

// SetTranspose updates one track's semitone shift and re-analyzes it.
func (s *Store) SetTranspose(id, transpose int) error {
	return s.updateTrack(id, func(st *trackState) {
		st.Transpose = transpose
	})
}

// SetOctave updates one track's octave shift and re-analyzes it.
func (s *Store) SetOctave(id, octave int) error {
	return s.updateTrack(id, func(st *trackState) {
		st.Octave = octave
	})
}

// SetSelected marks a track as included in (or excluded from) playback.
func (s *Store) SetSelected(id int, selected bool) error {
	return s.updateTrack(id, func(st *trackState) {
		st.Selected = selected
	})
}

// ApplySuggestion writes the optimizer's suggestion for one extreme into the
// track's transpose/octave and re-analyzes immediately.
func (s *Store) ApplySuggestion(id int, extreme Extreme) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.findLocked(id)
	if st == nil {
		return fmt.Errorf("track %d: %w", id, ErrNoTrack)
	}
	sug := st.Analysis.MaxSuggestion
	if extreme == ExtremeMin {
		sug = st.Analysis.MinSuggestion
	}
	if sug == nil {
		return fmt.Errorf("track %d has no %s suggestion", id, extreme)
	}
	st.Transpose = sug.Transpose
	st.Octave = sug.Octave
	st.Analysis = notes.Analyze(st.orig, st.Transpose, st.Octave, s.window)
	return nil
}

// Snapshot returns a copy of the current state. Track values are copied;
// events are shared but immutable once parsed.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Path: s.path, Window: s.window, Events: s.events}
	for _, st := range s.tracks {
		snap.Tracks = append(snap.Tracks, st.Track)
	}
	return snap
}

// Window returns the current playable window.
func (s *Store) Window() notes.Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window
}

func (s *Store) updateTrack(id int, mutate func(*trackState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.findLocked(id)
	if st == nil {
		return fmt.Errorf("track %d: %w", id, ErrNoTrack)
	}
	mutate(st)
	// Recompute from the original pitches; an empty cache is a no-op.
	st.Analysis = notes.Analyze(st.orig, st.Transpose, st.Octave, s.window)
	return nil
}

func (s *Store) findLocked(id int) *trackState {
	for _, st := range s.tracks {
		if st.ID == id {
			return st
		}
	}
	return nil
}
