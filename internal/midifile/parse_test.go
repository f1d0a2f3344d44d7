package midifile

import (
	"path/filepath"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func writeTestSMF(t *testing.T, build func(*smf.SMF)) string {
	t.Helper()
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(480)
	build(sm)
	path := filepath.Join(t.TempDir(), "test.mid")
	if err := sm.WriteFile(path); err != nil {
		t.Fatalf("write smf: %v", err)
	}
	return path
}

func noteOns(events []Event) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == NoteOn {
			out = append(out, ev)
		}
	}
	return out
}

func TestParsePairsNotesAndConvertsTicks(t *testing.T) {
	path := writeTestSMF(t, func(sm *smf.SMF) {
		var tempo smf.Track
		tempo.Add(0, smf.MetaTempo(120))
		tempo.Close(0)
		if err := sm.Add(tempo); err != nil {
			t.Fatalf("add tempo track: %v", err)
		}

		var tr smf.Track
		tr.Add(0, smf.MetaTrackSequenceName("Melody"))
		tr.Add(0, midi.NoteOn(0, 60, 100))
		tr.Add(480, midi.NoteOff(0, 60)) // half a second at 120 BPM
		tr.Add(0, midi.NoteOn(0, 64, 90))
		tr.Add(960, midi.NoteOn(0, 64, 0)) // velocity 0 acts as note-off
		tr.Close(0)
		if err := sm.Add(tr); err != nil {
			t.Fatalf("add melody track: %v", err)
		}
	})

	song, err := Parse(path, Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(song.Tracks) != 1 {
		t.Fatalf("tracks = %d, want 1 (tempo-only tracks are skipped)", len(song.Tracks))
	}
	tr := song.Tracks[0]
	if tr.Name != "Melody" || tr.NoteCount != 2 {
		t.Fatalf("track = %q/%d notes, want Melody/2", tr.Name, tr.NoteCount)
	}
	if len(tr.Notes) != 2 || tr.Notes[0] != 60 || tr.Notes[1] != 64 {
		t.Fatalf("original pitches = %v, want [60 64]", tr.Notes)
	}

	ons := noteOns(song.Events)
	if len(ons) != 2 {
		t.Fatalf("note-ons = %d, want 2", len(ons))
	}
	if ons[0].Note != 60 || !near(ons[0].Time, 0) || !near(ons[0].Duration, 0.5) {
		t.Fatalf("first note = %+v, want note 60 at 0s for 0.5s", ons[0])
	}
	if ons[1].Note != 64 || !near(ons[1].Time, 0.5) || !near(ons[1].Duration, 1.0) || !near(ons[1].End, 1.5) {
		t.Fatalf("second note = %+v, want note 64 at 0.5s for 1.0s", ons[1])
	}
	if got := song.Duration(); !near(got, 1.5) {
		t.Fatalf("song duration = %v, want 1.5", got)
	}
	if len(song.Events) != 4 {
		t.Fatalf("events = %d, want 2 on + 2 off", len(song.Events))
	}
	for i := 1; i < len(song.Events); i++ {
		if song.Events[i].Time < song.Events[i-1].Time {
			t.Fatalf("events not sorted by time: %v", song.Events)
		}
	}
}

func TestParseFollowsTempoChanges(t *testing.T) {
	path := writeTestSMF(t, func(sm *smf.SMF) {
		var tempo smf.Track
		tempo.Add(0, smf.MetaTempo(120))
		tempo.Add(480, smf.MetaTempo(60))
		tempo.Close(0)
		if err := sm.Add(tempo); err != nil {
			t.Fatalf("add tempo track: %v", err)
		}

		var tr smf.Track
		tr.Add(480, midi.NoteOn(0, 72, 100)) // starts exactly at the tempo change
		tr.Add(480, midi.NoteOff(0, 72))
		tr.Close(0)
		if err := sm.Add(tr); err != nil {
			t.Fatalf("add track: %v", err)
		}
	})

	song, err := Parse(path, Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ons := noteOns(song.Events)
	if len(ons) != 1 {
		t.Fatalf("note-ons = %d, want 1", len(ons))
	}
	// 480 ticks at 120 BPM is 0.5s; the next 480 at 60 BPM is a full second.
	if !near(ons[0].Time, 0.5) || !near(ons[0].Duration, 1.0) {
		t.Fatalf("note = %+v, want start 0.5s duration 1.0s", ons[0])
	}
}

func TestParseTrimsLongNotes(t *testing.T) {
	path := writeTestSMF(t, func(sm *smf.SMF) {
		var tr smf.Track
		tr.Add(0, smf.MetaTempo(120))
		tr.Add(0, midi.NoteOn(0, 60, 100))
		tr.Add(4*480, midi.NoteOff(0, 60)) // two seconds held
		tr.Close(0)
		if err := sm.Add(tr); err != nil {
			t.Fatalf("add track: %v", err)
		}
	})

	song, err := Parse(path, Options{TrimLongNotes: true, MaxNoteSeconds: 0.75})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	on := noteOns(song.Events)[0]
	if !near(on.Duration, 0.75) || !near(on.End, 0.75) {
		t.Fatalf("trimmed note = %+v, want duration/end 0.75", on)
	}
}

func TestParseAutoSharpRemapsBlackKeys(t *testing.T) {
	path := writeTestSMF(t, func(sm *smf.SMF) {
		var tr smf.Track
		tr.Add(0, smf.MetaTempo(120))
		tr.Add(0, midi.NoteOn(0, 61, 100)) // C#4
		tr.Add(240, midi.NoteOff(0, 61))
		tr.Add(0, midi.NoteOn(0, 70, 100)) // A#4
		tr.Add(240, midi.NoteOff(0, 70))
		tr.Close(0)
		if err := sm.Add(tr); err != nil {
			t.Fatalf("add track: %v", err)
		}
	})

	song, err := Parse(path, Options{BlackKeyMode: BlackKeyModeAutoSharp})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ons := noteOns(song.Events)
	if ons[0].Note != 60 {
		t.Fatalf("C#4 remapped to %d, want 60 (C4)", ons[0].Note)
	}
	if ons[1].Note != 69 {
		t.Fatalf("A#4 remapped to %d, want 69 (A4, lower neighbor wins ties)", ons[1].Note)
	}
	// Track pitch caches keep the original values for re-analysis.
	if got := song.Tracks[0].Notes; got[0] != 61 || got[1] != 70 {
		t.Fatalf("original pitches = %v, want [61 70]", got)
	}
}

func TestParseMissingFile(t *testing.T) {
	if _, err := Parse(filepath.Join(t.TempDir(), "nope.mid"), Options{}); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func near(got, want float64) bool {
	d := got - want
	if d < 0 {
		d = -d
	}
	return d < 1e-6
}
