package notes

// Suggestion is an absolute transpose/octave setting produced by Optimize.
type Suggestion struct {
	Transpose int `json:"transpose"`
	Octave    int `json:"octave"`
}

// Analysis describes how a track's note range sits relative to a window.
// MaxSuggestion/MinSuggestion are non-nil exactly when the matching
// over-limit flag is set and a correcting combination was found.
type Analysis struct {
	HasNotes bool `json:"has_notes"`

	MinNote int `json:"min_note"`
	MaxNote int `json:"max_note"`

	MinName  string `json:"min_note_name"`
	MaxName  string `json:"max_note_name"`
	MinGroup string `json:"min_note_group"`
	MaxGroup string `json:"max_note_group"`

	UpperOverLimit int `json:"upper_over_limit"`
	LowerOverLimit int `json:"lower_over_limit"`

	MaxOverLimit bool `json:"is_max_over_limit"`
	MinOverLimit bool `json:"is_min_over_limit"`

	MaxSuggestion *Suggestion `json:"max_suggestion,omitempty"`
	MinSuggestion *Suggestion `json:"min_suggestion,omitempty"`
}

// Analyze computes the range analysis for a track's original (un-shifted)
// note-on pitches under the given transpose/octave and window. An empty
// input yields a zero analysis with HasNotes false.
//
// A track lying entirely outside the window trips both over-limit flags, so
// that a correcting suggestion is always on offer for any unreachable note.
func Analyze(orig []int, transpose, octave int, win Window) Analysis {
	if len(orig) == 0 {
		return Analysis{}
	}

	shift := transpose + 12*octave
	min, max := orig[0]+shift, orig[0]+shift
	upper, lower := 0, 0
	for _, n := range orig {
		adj := n + shift
		if adj < min {
			min = adj
		}
		if adj > max {
			max = adj
		}
		if adj > win.Max {
			upper++
		}
		if adj < win.Min {
			lower++
		}
	}

	a := Analysis{
		HasNotes:       true,
		MinNote:        min,
		MaxNote:        max,
		MinName:        Name(min),
		MaxName:        Name(max),
		MinGroup:       DefaultGroups.Lookup(min),
		MaxGroup:       DefaultGroups.Lookup(max),
		UpperOverLimit: upper,
		LowerOverLimit: lower,
		MaxOverLimit:   max > win.Max || max < win.Min,
		MinOverLimit:   min < win.Min || min > win.Max,
	}

	if a.MaxOverLimit {
		if t, o, ok := Optimize(win.Max-max, transpose, octave); ok {
			a.MaxSuggestion = &Suggestion{Transpose: t, Octave: o}
		}
	}
	if a.MinOverLimit {
		if t, o, ok := Optimize(win.Min-min, transpose, octave); ok {
			a.MinSuggestion = &Suggestion{Transpose: t, Octave: o}
		}
	}
	return a
}

// Optimize searches octave shifts of -2..+2 for the least disruptive way to
// apply a semitone correction of diff on top of the current transpose and
// octave settings. Candidates are scored by |finalTranspose| + |finalOctave|
// with a 0.5 penalty when the transpose lands in the tritone band
// (5 <= |t| <= 7); the lowest score wins, smaller octave shifts first on
// exact ties. ok is false only if no candidate exists, which the fixed
// search range rules out; callers still get a defined no-op.
func Optimize(diff, curTranspose, curOctave int) (transpose, octave int, ok bool) {
	const penalty = 0.5

	best := 0.0
	for s := -2; s <= 2; s++ {
		ft := curTranspose + diff - 12*s
		fo := curOctave + s
		score := float64(abs(ft)) + float64(abs(fo))
		if a := abs(ft); a >= 5 && a <= 7 {
			score += penalty
		}
		if !ok || score < best {
			best = score
			transpose, octave = ft, fo
			ok = true
		}
	}
	return transpose, octave, ok
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
