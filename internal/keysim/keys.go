// Package keysim plays timed key-press batches against an OS input injector.
// The injector itself is the platform boundary; this package owns key-string
// parsing, platform code tables, and the timing loop.
package keysim

import (
	"fmt"
	"runtime"
	"strings"
)

// KeyEvent is one timed key press in a dispatch plan. Field names match the
// wire shape consumed by the injection backend.
type KeyEvent struct {
	Time     float64 `json:"time"`
	Key      string  `json:"key"`
	Duration float64 `json:"duration"`
}

// Modifier is a held modifier key in a combo like "shift+a".
type Modifier int

const (
	ModShift Modifier = iota
	ModControl
	ModAlt
	ModMeta
)

// ParseKey splits a key string such as "a", "shift+a" or "ctrl+shift+c" into
// its modifiers and main character. The main key must be a single character;
// on macOS "ctrl" maps to the command key, matching platform convention.
func ParseKey(s string) ([]Modifier, rune, error) {
	parts := strings.Split(s, "+")
	var mods []Modifier
	for i, part := range parts {
		p := strings.ToLower(strings.TrimSpace(part))
		if i == len(parts)-1 {
			runes := []rune(p)
			if len(runes) != 1 {
				return nil, 0, fmt.Errorf("invalid main key %q", part)
			}
			return mods, runes[0], nil
		}
		switch p {
		case "shift":
			mods = append(mods, ModShift)
		case "ctrl", "control":
			if runtime.GOOS == "darwin" {
				mods = append(mods, ModMeta)
			} else {
				mods = append(mods, ModControl)
			}
		case "alt":
			mods = append(mods, ModAlt)
		case "meta", "cmd", "command", "win", "super":
			mods = append(mods, ModMeta)
		default:
			return nil, 0, fmt.Errorf("unknown modifier key %q", part)
		}
	}
	return nil, 0, fmt.Errorf("empty key string")
}

// Code is a raw platform key code: a hardware scan code on Windows and Linux
// (set-1 scan codes and evdev key codes agree for this range), a kVK_ANSI
// virtual key code on macOS. Scan codes are used so games reading DirectInput
// or evdev see the presses.
type Code uint16

var scanCodes = map[rune]Code{
	'a': 0x1E, 'b': 0x30, 'c': 0x2E, 'd': 0x20, 'e': 0x12,
	'f': 0x21, 'g': 0x22, 'h': 0x23, 'i': 0x17, 'j': 0x24,
	'k': 0x25, 'l': 0x26, 'm': 0x32, 'n': 0x31, 'o': 0x18,
	'p': 0x19, 'q': 0x10, 'r': 0x13, 's': 0x1F, 't': 0x14,
	'u': 0x16, 'v': 0x2F, 'w': 0x11, 'x': 0x2D, 'y': 0x15,
	'z': 0x2C,
	'0': 0x0B, '1': 0x02, '2': 0x03, '3': 0x04, '4': 0x05,
	'5': 0x06, '6': 0x07, '7': 0x08, '8': 0x09, '9': 0x0A,
}

var scanModifiers = map[Modifier]Code{
	ModShift:   0x2A,
	ModControl: 0x1D,
	ModAlt:     0x38,
	ModMeta:    0x5B,
}

var macKeyCodes = map[rune]Code{
	'a': 0x00, 'b': 0x0B, 'c': 0x08, 'd': 0x02, 'e': 0x0E,
	'f': 0x03, 'g': 0x05, 'h': 0x04, 'i': 0x22, 'j': 0x26,
	'k': 0x28, 'l': 0x25, 'm': 0x2E, 'n': 0x2D, 'o': 0x1F,
	'p': 0x23, 'q': 0x0C, 'r': 0x0F, 's': 0x01, 't': 0x11,
	'u': 0x20, 'v': 0x09, 'w': 0x0D, 'x': 0x07, 'y': 0x10,
	'z': 0x06,
	'0': 0x1D, '1': 0x12, '2': 0x13, '3': 0x14, '4': 0x15,
	'5': 0x17, '6': 0x16, '7': 0x1A, '8': 0x1C, '9': 0x19,
}

var macModifiers = map[Modifier]Code{
	ModShift:   0x38,
	ModControl: 0x3B,
	ModAlt:     0x3A,
	ModMeta:    0x37,
}

func codeFor(ch rune) (Code, bool) {
	ch = lower(ch)
	if runtime.GOOS == "darwin" {
		c, ok := macKeyCodes[ch]
		return c, ok
	}
	c, ok := scanCodes[ch]
	return c, ok
}

func modifierCode(m Modifier) (Code, bool) {
	if runtime.GOOS == "darwin" {
		c, ok := macModifiers[m]
		return c, ok
	}
	c, ok := scanModifiers[m]
	return c, ok
}

func lower(ch rune) rune {
	if ch >= 'A' && ch <= 'Z' {
		return ch + ('a' - 'A')
	}
	return ch
}
