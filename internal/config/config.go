// Package config loads and persists the player's settings. Settings are an
// explicitly constructed value handed to the components that need them;
// there is no ambient global.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/ludyw21/autoplay-go/internal/notes"
)

// Point is a screen coordinate for mouse-driven instruments.
type Point struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// Shortcuts names the global hotkey intents. Actual OS registration is the
// embedder's job; these names route through the hotkey dispatcher.
type Shortcuts struct {
	TogglePlayback string `yaml:"toggle_playback"`
	StopAll        string `yaml:"stop_all"`
	DebounceMillis int    `yaml:"debounce_millis"`
}

// Settings is the full persisted configuration.
type Settings struct {
	Window         notes.Window     `yaml:"window"`
	BlackKeyMode   string           `yaml:"black_key_mode"`
	TrimLongNotes  bool             `yaml:"trim_long_notes"`
	MaxNoteSeconds float64          `yaml:"max_note_seconds"`
	CountdownTicks int              `yaml:"countdown_ticks"`
	LeadInSeconds  float64          `yaml:"lead_in_seconds"`
	KeyBindings    map[int]string   `yaml:"key_bindings"`
	MouseBindings  map[int]Point    `yaml:"mouse_bindings"`
	Shortcuts      Shortcuts        `yaml:"shortcuts"`
}

// Default returns the stock settings: a 36-key window and the common 21-key
// diatonic keyboard layout (white keys C3-B5 on three letter rows).
func Default() Settings {
	return Settings{
		Window:         notes.Window{Min: 48, Max: 83},
		MaxNoteSeconds: 1.0,
		CountdownTicks: 3,
		LeadInSeconds:  0.2,
		KeyBindings:    defaultKeyBindings(),
		Shortcuts: Shortcuts{
			TogglePlayback: "toggle-playback",
			StopAll:        "stop-all",
			DebounceMillis: 300,
		},
	}
}

func defaultKeyBindings() map[int]string {
	rows := []string{"zxcvbnm", "asdfghj", "qwertyu"}
	whites := []int{0, 2, 4, 5, 7, 9, 11}
	bindings := make(map[int]string, 21)
	for octave, row := range rows {
		for i, pc := range whites {
			bindings[48+12*octave+pc] = string(row[i])
		}
	}
	return bindings
}

// Load reads settings from path. A missing file yields the defaults.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save writes settings to path.
func (s Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s Settings) Validate() error {
	if s.Window.Min > s.Window.Max {
		return fmt.Errorf("window min %d above max %d", s.Window.Min, s.Window.Max)
	}
	if s.Window.Min < 0 || s.Window.Max > 127 {
		return fmt.Errorf("window [%d,%d] outside MIDI range", s.Window.Min, s.Window.Max)
	}
	if s.CountdownTicks < 0 {
		return errors.New("countdown_ticks must not be negative")
	}
	if s.LeadInSeconds < 0 {
		return errors.New("lead_in_seconds must not be negative")
	}
	return nil
}
