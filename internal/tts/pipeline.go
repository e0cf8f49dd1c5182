package tts

import (
	"context"
	"sync"

	"github.com/voicebridge/gateway/internal/audio"
	"github.com/voicebridge/gateway/internal/audio/resample"
	"github.com/voicebridge/gateway/internal/audio/track"
	"github.com/voicebridge/gateway/pkg/commons"
)

// FIFOWriter is the subset of *queue.FIFO the pipeline needs.
type FIFOWriter interface {
	Enqueue(data []byte)
	Clear()
}

// Attacher is the subset of the track source the pipeline needs to attach
// and detach the FIFO-backed generator.
type Attacher interface {
	SetGenerator(g track.Generator)
	ClearGenerator()
}

// Pipeline drives sentence-streamed synthesis per §4.5: attach the
// FIFO-backed generator (idempotent), synthesize each sentence in order on
// a worker goroutine, resample to 48kHz, enqueue. stop_speaking clears the
// FIFO and detaches the generator — barge-in.
type Pipeline struct {
	engine   Engine
	fifo     FIFOWriter
	attacher Attacher
	logger   commons.Logger

	mu       sync.Mutex
	attached bool
}

// New constructs a Pipeline.
func New(engine Engine, fifo FIFOWriter, attacher Attacher, logger commons.Logger) *Pipeline {
	return &Pipeline{engine: engine, fifo: fifo, attacher: attacher, logger: logger}
}

// SpeakText synthesizes text sentence-by-sentence and streams PCM into the
// FIFO in order. Must be called from a goroutine the caller is willing to
// have block on the sequence of synthesis calls (per §5, speak holds the
// message loop unless the caller arranges otherwise).
func (p *Pipeline) SpeakText(ctx context.Context, text, voiceID string, reader track.FIFOReader) {
	p.mu.Lock()
	if !p.attached {
		p.attacher.SetGenerator(track.NewFIFOGenerator(reader))
		p.attached = true
	}
	p.mu.Unlock()

	for _, sentence := range SplitSentences(text) {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pcm, nativeRate, err := p.engine.Synthesize(ctx, sentence, voiceID)
		if err != nil {
			p.logger.Warnw("tts synthesis failed", "error", err, "sentence", sentence)
			continue
		}
		if len(pcm) == 0 {
			continue
		}

		resampled := resample.PCM16(pcm, nativeRate, audio.SampleRate)
		p.fifo.Enqueue(resampled)
	}
}

// StopSpeaking is barge-in: clear the FIFO and detach the generator. Any
// in-flight synthesis call still delivers its blob, but it lands in an
// already-cleared (or re-cleared) queue, or is never read once the
// generator is detached — no extra coordination needed. Idempotent: two
// consecutive calls are equivalent to one.
func (p *Pipeline) StopSpeaking() {
	p.fifo.Clear()
	p.attacher.ClearGenerator()
	p.mu.Lock()
	p.attached = false
	p.mu.Unlock()
}
