package song

import (
	"errors"
	"testing"

	"github.com/ludyw21/autoplay-go/internal/midifile"
	"github.com/ludyw21/autoplay-go/internal/notes"
)

// fakeParse returns a canned song and records how it was called.
type fakeParse struct {
	song  *midifile.Song
	err   error
	calls []notes.Window
}

func (f *fakeParse) parse(path string, win notes.Window) (*midifile.Song, error) {
	f.calls = append(f.calls, win)
	if f.err != nil {
		return nil, f.err
	}
	return f.song, nil
}

func lowSong() *midifile.Song {
	return &midifile.Song{
		Events: []midifile.Event{
			{Time: 0, Type: midifile.NoteOn, Note: 40, Track: 0, Velocity: 100, Duration: 0.5, End: 0.5},
			{Time: 0.5, Type: midifile.NoteOn, Note: 44, Track: 0, Velocity: 100, Duration: 0.5, End: 1.0},
			{Time: 1.0, Type: midifile.NoteOn, Note: 47, Track: 0, Velocity: 100, Duration: 0.5, End: 1.5},
		},
		Tracks: []midifile.TrackInfo{
			{ID: 0, Name: "Bass", NoteCount: 3, Notes: []int{40, 44, 47}},
		},
	}
}

func TestLoadAnalyzesAllTracks(t *testing.T) {
	fp := &fakeParse{song: lowSong()}
	st := NewStore(fp.parse, notes.Window{Min: 48, Max: 83})
	if err := st.Load("song.mid"); err != nil {
		t.Fatalf("load: %v", err)
	}

	snap := st.Snapshot()
	if !snap.Loaded() || len(snap.Tracks) != 1 {
		t.Fatalf("snapshot = %+v, want one loaded track", snap)
	}
	tr := snap.Tracks[0]
	if !tr.Selected {
		t.Fatalf("tracks should start selected")
	}
	if !tr.Analysis.MinOverLimit || tr.Analysis.MinSuggestion == nil {
		t.Fatalf("low track should be flagged with a min suggestion: %+v", tr.Analysis)
	}
}

func TestLoadFailureLeavesStoreEmpty(t *testing.T) {
	fp := &fakeParse{err: errors.New("bad file")}
	st := NewStore(fp.parse, notes.Window{Min: 48, Max: 83})
	if err := st.Load("song.mid"); err == nil {
		t.Fatalf("expected parse error")
	}
	if st.Snapshot().Loaded() {
		t.Fatalf("failed load should leave no tracks behind")
	}
}

func TestSetTransposeReanalyzesFromOriginals(t *testing.T) {
	fp := &fakeParse{song: lowSong()}
	st := NewStore(fp.parse, notes.Window{Min: 48, Max: 83})
	if err := st.Load("song.mid"); err != nil {
		t.Fatalf("load: %v", err)
	}

	// Two consecutive edits must not compound: analysis always starts from
	// the cached original pitches.
	if err := st.SetTranspose(0, 8); err != nil {
		t.Fatalf("set transpose: %v", err)
	}
	if err := st.SetTranspose(0, 8); err != nil {
		t.Fatalf("set transpose again: %v", err)
	}
	tr, _ := st.Snapshot().TrackByID(0)
	if tr.Analysis.MinNote != 48 || tr.Analysis.MaxNote != 55 {
		t.Fatalf("analysis range = [%d,%d], want [48,55]", tr.Analysis.MinNote, tr.Analysis.MaxNote)
	}
	if tr.Analysis.MinOverLimit {
		t.Fatalf("shifted track should be in range")
	}
}

func TestSetTransposeUnknownTrack(t *testing.T) {
	fp := &fakeParse{song: lowSong()}
	st := NewStore(fp.parse, notes.Window{Min: 48, Max: 83})
	if err := st.Load("song.mid"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := st.SetTranspose(9, 1); !errors.Is(err, ErrNoTrack) {
		t.Fatalf("err = %v, want ErrNoTrack", err)
	}
}

func TestApplySuggestionClearsFlag(t *testing.T) {
	fp := &fakeParse{song: lowSong()}
	st := NewStore(fp.parse, notes.Window{Min: 48, Max: 83})
	if err := st.Load("song.mid"); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := st.ApplySuggestion(0, ExtremeMin); err != nil {
		t.Fatalf("apply suggestion: %v", err)
	}
	tr, _ := st.Snapshot().TrackByID(0)
	if tr.Transpose != -4 || tr.Octave != 1 {
		t.Fatalf("applied settings = (%d,%d), want (-4,1)", tr.Transpose, tr.Octave)
	}
	if tr.Analysis.MinOverLimit {
		t.Fatalf("suggestion should bring the track in range: %+v", tr.Analysis)
	}

	// The flag is now clear, so a second apply has nothing to apply.
	if err := st.ApplySuggestion(0, ExtremeMin); err == nil {
		t.Fatalf("expected error when no suggestion is present")
	}
}

func TestSetWindowReparsesAndKeepsSettings(t *testing.T) {
	fp := &fakeParse{song: lowSong()}
	st := NewStore(fp.parse, notes.Window{Min: 48, Max: 83})
	if err := st.Load("song.mid"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := st.SetTranspose(0, 2); err != nil {
		t.Fatalf("set transpose: %v", err)
	}

	if err := st.SetWindow(notes.Window{Min: 36, Max: 72}); err != nil {
		t.Fatalf("set window: %v", err)
	}
	if len(fp.calls) != 2 {
		t.Fatalf("parser called %d times, want 2 (load + window change)", len(fp.calls))
	}
	if fp.calls[1] != (notes.Window{Min: 36, Max: 72}) {
		t.Fatalf("reparse used window %+v", fp.calls[1])
	}

	tr, _ := st.Snapshot().TrackByID(0)
	if tr.Transpose != 2 {
		t.Fatalf("transpose lost across window change: %+v", tr)
	}
	if tr.Analysis.MinOverLimit {
		t.Fatalf("range [42,49] fits window [36,72]: %+v", tr.Analysis)
	}
}

func TestSetWindowWithoutSongOnlyStoresWindow(t *testing.T) {
	fp := &fakeParse{song: lowSong()}
	st := NewStore(fp.parse, notes.Window{Min: 48, Max: 83})
	if err := st.SetWindow(notes.Window{Min: 40, Max: 90}); err != nil {
		t.Fatalf("set window: %v", err)
	}
	if len(fp.calls) != 0 {
		t.Fatalf("no song loaded, parser should not run")
	}
	if st.Window() != (notes.Window{Min: 40, Max: 90}) {
		t.Fatalf("window not stored")
	}
}
