package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultBindingsCoverWhiteKeys(t *testing.T) {
	s := Default()
	if len(s.KeyBindings) != 21 {
		t.Fatalf("default layout has %d bindings, want 21", len(s.KeyBindings))
	}
	if s.KeyBindings[48] != "z" || s.KeyBindings[60] != "a" || s.KeyBindings[83] != "u" {
		t.Fatalf("layout anchors wrong: 48=%q 60=%q 83=%q", s.KeyBindings[48], s.KeyBindings[60], s.KeyBindings[83])
	}
	// Black keys have no binding in the default layout.
	if _, ok := s.KeyBindings[49]; ok {
		t.Fatalf("black key 49 should be unbound")
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Window != Default().Window {
		t.Fatalf("missing file should yield defaults, got %+v", s.Window)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s := Default()
	s.Window.Min = 36
	s.BlackKeyMode = "auto_sharp"
	s.MouseBindings = map[int]Point{60: {X: 100, Y: 200}}
	if err := s.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Window.Min != 36 || got.BlackKeyMode != "auto_sharp" {
		t.Fatalf("round trip lost fields: %+v", got)
	}
	if got.MouseBindings[60] != (Point{X: 100, Y: 200}) {
		t.Fatalf("mouse bindings lost: %+v", got.MouseBindings)
	}
}

func TestLoadRejectsInvalidWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("window:\n  min_note: 90\n  max_note: 48\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("inverted window should fail validation")
	}
}
