// Package track implements the Clocked Track Source: it emits one 20ms PCM
// frame per call at real-time pace, pulling from an attached Generator or
// falling back to silence.
package track

import (
	"sync"
	"time"

	"github.com/voicebridge/gateway/internal/audio"
)

// Frame is a fixed-shape 20ms packet: audio.FrameBytes of signed 16-bit LE
// PCM, plus the presentation timestamp and time base a transport needs to
// place it on the wire.
type Frame struct {
	Samples  []byte // always audio.FrameBytes long
	PTS      int64  // (frame_count-1) * audio.FrameSamples
	TimeBase int    // denominator; numerator is always 1 (1/48000)
}

// Generator is the minimal contract a frame producer satisfies. The sine
// and FIFO-backed producers implement it; silence is what the Source emits
// when no generator is attached.
type Generator interface {
	// NextChunk returns exactly audio.FrameBytes of PCM.
	NextChunk() []byte
}

// Clock abstracts wall-clock time so pacing can be driven deterministically
// in tests without a real sleep.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time     { return time.Now() }
func (realClock) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// Source is the Clocked Track Source. The clock never resets across a
// generator switch (including barge-in) — continuity of pace is the point.
type Source struct {
	mu         sync.Mutex
	clock      Clock
	startTime  time.Time
	started    bool
	frameCount int64
	generator  Generator
}

// New returns a Source using the real wall clock.
func New() *Source {
	return &Source{clock: realClock{}}
}

// NewWithClock returns a Source driven by a caller-supplied Clock, for
// deterministic pacing tests.
func NewWithClock(c Clock) *Source {
	return &Source{clock: c}
}

// SetGenerator attaches a frame producer. May be called at any time,
// including while frames are in flight; the switch takes effect on the
// next NextFrame call.
func (s *Source) SetGenerator(g Generator) {
	s.mu.Lock()
	s.generator = g
	s.mu.Unlock()
}

// ClearGenerator detaches the current generator — the next frame is
// silence. The clock is not reset.
func (s *Source) ClearGenerator() {
	s.mu.Lock()
	s.generator = nil
	s.mu.Unlock()
}

// NextFrame blocks (via Clock.Sleep) until the next frame's target time,
// then returns it. Pacing error is bounded to one frame: a late caller
// catches up immediately rather than accumulating drift.
func (s *Source) NextFrame() Frame {
	s.mu.Lock()
	if !s.started {
		s.startTime = s.clock.Now()
		s.started = true
	}
	frameCount := s.frameCount
	generator := s.generator
	startTime := s.startTime
	s.mu.Unlock()

	target := startTime.Add(time.Duration(frameCount) * audio.FrameDuration)
	now := s.clock.Now()
	if target.After(now) {
		s.clock.Sleep(target.Sub(now))
	}

	s.mu.Lock()
	s.frameCount++
	frameCount = s.frameCount
	s.mu.Unlock()

	var samples []byte
	if generator != nil {
		samples = generator.NextChunk()
	} else {
		samples = make([]byte, audio.FrameBytes)
	}
	if len(samples) != audio.FrameBytes {
		// Defensive: a misbehaving generator must not corrupt frame shape.
		fixed := make([]byte, audio.FrameBytes)
		copy(fixed, samples)
		samples = fixed
	}

	return Frame{
		Samples:  samples,
		PTS:      (frameCount - 1) * audio.FrameSamples,
		TimeBase: audio.SampleRate,
	}
}
