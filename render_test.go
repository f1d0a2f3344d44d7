package autoplay

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/ludyw21/autoplay-go/internal/midifile"
	"github.com/ludyw21/autoplay-go/internal/notes"
	"github.com/ludyw21/autoplay-go/internal/song"
)

func TestRenderPreviewRequiresSong(t *testing.T) {
	store := song.NewStore(func(string, notes.Window) (*midifile.Song, error) {
		return mixedSong(), nil
	}, notes.Window{Min: 48, Max: 83})

	if _, err := RenderPreview(store.Snapshot(), 48000); !errors.Is(err, ErrNoSong) {
		t.Fatalf("render = %v, want ErrNoSong", err)
	}
}

func TestRenderPreviewCoversSongAndReleaseTail(t *testing.T) {
	store := song.NewStore(func(string, notes.Window) (*midifile.Song, error) {
		return mixedSong(), nil
	}, notes.Window{Min: 48, Max: 83})
	if err := store.Load("song.mid"); err != nil {
		t.Fatalf("load: %v", err)
	}

	samples, err := RenderPreview(store.Snapshot(), 48000)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(samples)%2 != 0 {
		t.Fatalf("sample count %d not stereo-aligned", len(samples))
	}
	// The only in-window note ends at 1.0s; the render must reach past it.
	if frames := len(samples) / 2; frames < 48000 {
		t.Fatalf("rendered %d frames, want at least one second", frames)
	}

	var energy float64
	for _, s := range samples {
		energy += float64(s) * float64(s)
	}
	if energy == 0 {
		t.Fatalf("rendered pure silence")
	}
}

func TestRenderPreviewRejectsEmptyWindow(t *testing.T) {
	onlyLow := &midifile.Song{
		Events: []midifile.Event{
			{Time: 0, Type: midifile.NoteOn, Note: 30, Track: 0, Velocity: 100, Duration: 0.5, End: 0.5},
		},
		Tracks: []midifile.TrackInfo{
			{ID: 0, Name: "Sub", NoteCount: 1, Notes: []int{30}},
		},
	}
	store := song.NewStore(func(string, notes.Window) (*midifile.Song, error) {
		return onlyLow, nil
	}, notes.Window{Min: 48, Max: 83})
	if err := store.Load("song.mid"); err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := RenderPreview(store.Snapshot(), 48000); !errors.Is(err, ErrNoPlayableNotes) {
		t.Fatalf("render = %v, want ErrNoPlayableNotes", err)
	}
}

func TestEncodeWAVFloat32LEHeader(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1}
	wav := EncodeWAVFloat32LE(samples, 48000, 2)

	if len(wav) != 44+len(samples)*4 {
		t.Fatalf("wav length = %d, want header plus %d sample bytes", len(wav), len(samples)*4)
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("bad container magic: %q %q", wav[0:4], wav[8:12])
	}
	if format := binary.LittleEndian.Uint16(wav[20:]); format != 3 {
		t.Fatalf("format = %d, want 3 (IEEE float)", format)
	}
	if rate := binary.LittleEndian.Uint32(wav[24:]); rate != 48000 {
		t.Fatalf("sample rate = %d", rate)
	}
	if bits := binary.LittleEndian.Uint16(wav[34:]); bits != 32 {
		t.Fatalf("bits per sample = %d", bits)
	}
	if dataSize := binary.LittleEndian.Uint32(wav[40:]); dataSize != uint32(len(samples)*4) {
		t.Fatalf("data size = %d", dataSize)
	}
}
