package track

import (
	"math"
	"sync"

	"github.com/voicebridge/gateway/internal/audio"
)

// FIFOReader is the subset of *queue.FIFO the FIFO-backed generator needs.
type FIFOReader interface {
	Read(n int) []byte
}

// FIFOGenerator drains exactly one frame's worth of PCM from a FIFO queue
// per call. It is the generator the Sentence-Streamed TTS pipeline attaches.
type FIFOGenerator struct {
	q FIFOReader
}

// NewFIFOGenerator wraps a FIFO queue as a Generator.
func NewFIFOGenerator(q FIFOReader) *FIFOGenerator {
	return &FIFOGenerator{q: q}
}

func (g *FIFOGenerator) NextChunk() []byte {
	return g.q.Read(audio.FrameBytes)
}

// SineGenerator produces a continuous tone, used only as a connectivity
// check before a real TTS engine is wired up (start/stop protocol messages).
type SineGenerator struct {
	mu        sync.Mutex
	freqHz    float64
	phase     float64
	amplitude float64
}

// NewSineGenerator returns a generator at freqHz, phase-continuous across
// calls so the tone has no audible discontinuity at frame boundaries.
func NewSineGenerator(freqHz float64) *SineGenerator {
	return &SineGenerator{freqHz: freqHz, amplitude: 8000}
}

func (g *SineGenerator) NextChunk() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]byte, audio.FrameBytes)
	step := 2 * math.Pi * g.freqHz / audio.SampleRate
	for i := 0; i < audio.FrameSamples; i++ {
		v := int16(g.amplitude * math.Sin(g.phase))
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
		g.phase += step
		if g.phase > 2*math.Pi {
			g.phase -= 2 * math.Pi
		}
	}
	return out
}
