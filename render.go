package autoplay

import (
	"encoding/binary"
	"math"

	"github.com/ludyw21/autoplay-go/internal/song"
	"github.com/ludyw21/autoplay-go/internal/synth"
)

// RenderPreview renders the audio-preview note set offline, returning
// interleaved stereo float32 samples. It applies the same window filter as
// live audio preview, so what is rendered matches what would be heard.
func RenderPreview(snap song.Snapshot, sampleRate int) ([]float32, error) {
	if !snap.Loaded() {
		return nil, ErrNoSong
	}
	eligible := filterEligible(snap, false)
	if len(eligible) == 0 {
		return nil, ErrNoPlayableNotes
	}

	sched := make([]synth.Note, 0, len(eligible))
	for _, st := range eligible {
		sched = append(sched, synth.Note{
			Start:    st.Time,
			Duration: st.Duration,
			Pitch:    st.Note,
			Velocity: synth.NormalizeVelocity(st.Velocity),
		})
	}

	engine := synth.NewEngine(sampleRate, sched)
	frames := int(float64(sampleRate) * engine.Duration())
	out := make([]float32, frames*2)
	for off := 0; off < len(out); {
		n := len(out) - off
		if n > 8192 {
			n = 8192
		}
		engine.Render(out[off : off+n])
		off += n
	}
	return out, nil
}

// EncodeWAVFloat32LE wraps interleaved float32 samples in a WAV container
// (format 3, IEEE float, little endian).
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
