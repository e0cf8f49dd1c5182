package transcription

import (
	"context"
	"sync"
	"time"

	"github.com/voicebridge/gateway/internal/audio"
	"github.com/voicebridge/gateway/internal/audio/resample"
	"github.com/voicebridge/gateway/pkg/commons"
)

const sttSampleRate = 16000

// Buffer is the subset of the mic ingestor the pipeline needs: a snapshot
// (non-destructive) for periodic re-transcription, a drain (destructive)
// for the final pass, and recording on/off toggling.
type Buffer interface {
	SetRecording(on bool)
	ClearBuffer()
	Snapshot() []byte
	StopAndDrain() []byte
}

// OnPartial is invoked with each rolling transcript; partial is always true
// from the periodic transcriber, false only from the final stop pass's
// caller (the pipeline itself does not call OnPartial on stop).
type OnPartial func(text string, partial bool)

// Pipeline drives periodic rolling transcription plus a final pass on stop,
// per §4.4. One Pipeline exists per session.
type Pipeline struct {
	engine   Engine
	buffer   Buffer
	interval time.Duration
	logger   commons.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	recording bool
}

// New constructs a Pipeline. interval is the rolling re-transcription
// period (default 5s per §4.4).
func New(engine Engine, buffer Buffer, interval time.Duration, logger commons.Logger) *Pipeline {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Pipeline{engine: engine, buffer: buffer, interval: interval, logger: logger}
}

// StartRecording clears the capture buffer, flips recording on, and spawns
// the periodic transcriber. Calling it while already recording restarts
// the periodic task cleanly (stops the old one first).
func (p *Pipeline) StartRecording(ctx context.Context, onPartial OnPartial) {
	p.mu.Lock()
	if p.recording && p.cancel != nil {
		// Release mu while waiting: the periodic goroutine takes it after
		// each pass, so waiting with it held would never return.
		oldCancel := p.cancel
		p.cancel = nil
		p.mu.Unlock()
		oldCancel()
		p.wg.Wait()
		p.mu.Lock()
	}
	p.buffer.ClearBuffer()
	p.buffer.SetRecording(true)
	p.recording = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go p.runPeriodic(runCtx, onPartial)
}

func (p *Pipeline) runPeriodic(ctx context.Context, onPartial OnPartial) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			stillRecording := p.recording
			p.mu.Unlock()
			if !stillRecording {
				return
			}

			snapshot := p.buffer.Snapshot()
			if len(snapshot) == 0 {
				continue
			}

			text, err := p.transcribe(ctx, snapshot)
			if err != nil {
				p.logger.Warnw("periodic transcription failed", "error", err)
				continue
			}

			p.mu.Lock()
			stillRecording = p.recording
			p.mu.Unlock()
			if text != "" && stillRecording && onPartial != nil {
				onPartial(text, true)
			}
		}
	}
}

// StopRecording flips recording off, cancels the periodic task, then runs
// one final STT pass over the full buffered PCM and returns the text.
func (p *Pipeline) StopRecording(ctx context.Context) (string, error) {
	p.mu.Lock()
	p.recording = false
	p.buffer.SetRecording(false)
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		p.wg.Wait()
	}

	final := p.buffer.StopAndDrain()
	if len(final) == 0 {
		return "", nil
	}
	return p.transcribe(ctx, final)
}

// transcribe resamples captured 48kHz PCM down to the engine's fixed 16kHz
// and hands it off. Rolling passes run on the periodic transcriber's
// goroutine; the final pass runs on StopRecording's caller, which blocks
// until inference returns.
func (p *Pipeline) transcribe(ctx context.Context, pcm48k []byte) (string, error) {
	pcm16k := resample.PCM16(pcm48k, audio.SampleRate, sttSampleRate)
	return p.engine.Transcribe(ctx, pcm16k, sttSampleRate)
}
