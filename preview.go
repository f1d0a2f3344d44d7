package autoplay

import (
	"log/slog"
	"sync"

	"github.com/ludyw21/autoplay-go/internal/audio"
	"github.com/ludyw21/autoplay-go/internal/synth"
)

const previewSampleRate = 48000

// AudioPreviewer renders notes through the FM synth engine and plays them
// on the system audio device. It is restart-safe: each Start builds a fresh
// engine and player, and Stop tears the previous one down.
type AudioPreviewer struct {
	log *slog.Logger

	mu  sync.Mutex
	out *audio.Output
}

func NewAudioPreviewer(log *slog.Logger) *AudioPreviewer {
	if log == nil {
		log = slog.Default()
	}
	return &AudioPreviewer{log: log}
}

func (a *AudioPreviewer) Start(notes []synth.Note) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.out != nil {
		if err := a.out.Stop(); err != nil {
			a.log.Warn("previous preview stop failed", "err", err)
		}
		a.out = nil
	}

	engine := synth.NewEngine(previewSampleRate, notes)
	out, err := audio.NewOutput(previewSampleRate, engine)
	if err != nil {
		return err
	}
	a.out = out
	out.Play()
	a.log.Debug("audio preview started", "notes", len(notes), "seconds", engine.Duration())
	return nil
}

func (a *AudioPreviewer) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.out == nil {
		return nil
	}
	err := a.out.Stop()
	a.out = nil
	return err
}
