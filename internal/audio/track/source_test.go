package track

import (
	"testing"
	"time"

	"github.com/voicebridge/gateway/internal/audio"
)

// fakeClock never actually sleeps — it just records the requested duration
// and advances its own notion of "now" by it, so pacing tests run instantly.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Sleep(d time.Duration) {
	if d > 0 {
		c.now = c.now.Add(d)
	}
}

func TestNextFramePTSIncreasesBy960(t *testing.T) {
	s := NewWithClock(&fakeClock{now: time.Unix(0, 0)})
	var prevPTS int64 = -audio.FrameSamples
	for i := 0; i < 10; i++ {
		f := s.NextFrame()
		if f.PTS != prevPTS+audio.FrameSamples {
			t.Fatalf("frame %d: PTS = %d, want %d", i, f.PTS, prevPTS+audio.FrameSamples)
		}
		prevPTS = f.PTS
		if len(f.Samples) != audio.FrameBytes {
			t.Fatalf("frame %d: len(Samples) = %d, want %d", i, len(f.Samples), audio.FrameBytes)
		}
	}
}

func TestNextFrameSilenceWithoutGenerator(t *testing.T) {
	s := NewWithClock(&fakeClock{now: time.Unix(0, 0)})
	f := s.NextFrame()
	for i, b := range f.Samples {
		if b != 0 {
			t.Fatalf("expected silence, byte %d = %d", i, b)
		}
	}
}

func TestAttachThenClearGeneratorYieldsSilence(t *testing.T) {
	s := NewWithClock(&fakeClock{now: time.Unix(0, 0)})
	s.SetGenerator(NewSineGenerator(440))
	s.NextFrame()
	s.ClearGenerator()
	f := s.NextFrame()
	allZero := true
	for _, b := range f.Samples {
		if b != 0 {
			allZero = false
			break
		}
	}
	if !allZero {
		t.Fatalf("expected silence after ClearGenerator")
	}
}

func TestClockNeverResetsAcrossGeneratorSwitch(t *testing.T) {
	s := NewWithClock(&fakeClock{now: time.Unix(0, 0)})
	f1 := s.NextFrame()
	s.SetGenerator(NewSineGenerator(220))
	f2 := s.NextFrame()
	s.ClearGenerator()
	f3 := s.NextFrame()
	if f2.PTS != f1.PTS+audio.FrameSamples || f3.PTS != f2.PTS+audio.FrameSamples {
		t.Fatalf("PTS continuity broken across generator switches: %d %d %d", f1.PTS, f2.PTS, f3.PTS)
	}
}

func TestFIFOGeneratorDrainsExactlyOneFrame(t *testing.T) {
	fq := &stubFIFO{data: make([]byte, audio.FrameBytes*3)}
	g := NewFIFOGenerator(fq)
	chunk := g.NextChunk()
	if len(chunk) != audio.FrameBytes {
		t.Fatalf("got %d bytes, want %d", len(chunk), audio.FrameBytes)
	}
	if fq.lastN != audio.FrameBytes {
		t.Fatalf("FIFO.Read called with n=%d, want %d", fq.lastN, audio.FrameBytes)
	}
}

type stubFIFO struct {
	data  []byte
	lastN int
}

func (s *stubFIFO) Read(n int) []byte {
	s.lastN = n
	if n > len(s.data) {
		n = len(s.data)
	}
	out := make([]byte, n)
	copy(out, s.data[:n])
	return out
}
