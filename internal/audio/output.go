// Package audio streams rendered preview samples to the system audio device.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Source produces interleaved stereo float32 frames on demand.
type Source interface {
	Render(dst []float32)
}

// Finisher is a Source that can signal the end of playback. Once Done
// returns true the stream reports io.EOF and the device player drains.
type Finisher interface {
	Source
	Done() bool
}

// streamReader adapts a Source to the byte stream the audio backend reads.
type streamReader struct {
	mu     sync.Mutex
	source Source
	buf    []float32
}

func (r *streamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Render(r.buf)
	for i := 0; i < need; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(r.buf[i]))
	}
	n := frames * 8
	if f, ok := r.source.(Finisher); ok && f.Done() {
		return n, io.EOF
	}
	return n, nil
}

func (r *streamReader) Close() error { return nil }

var (
	contextOnce sync.Once
	context     *ebitaudio.Context
	contextRate int
)

// The backend allows a single audio context per process, created at a fixed
// sample rate.
func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	contextOnce.Do(func() {
		contextRate = sampleRate
		context = ebitaudio.NewContext(sampleRate)
	})
	if contextRate != sampleRate {
		return nil, fmt.Errorf("audio context already at %d Hz (requested %d Hz)", contextRate, sampleRate)
	}
	return context, nil
}

// Output plays one Source on the system device.
type Output struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

func NewOutput(sampleRate int, source Source) (*Output, error) {
	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := &streamReader{source: source}
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	return &Output{player: pl, reader: reader}, nil
}

func (o *Output) Play() { o.player.Play() }

func (o *Output) Playing() bool { return o.player.IsPlaying() }

// Position returns how much audio the listener has actually heard.
func (o *Output) Position() time.Duration { return o.player.Position() }

func (o *Output) Stop() error {
	o.player.Pause()
	err := o.player.Close()
	if cerr := o.reader.Close(); err == nil {
		err = cerr
	}
	return err
}
