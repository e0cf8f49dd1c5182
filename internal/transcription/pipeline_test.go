package transcription

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/voicebridge/gateway/pkg/commons"
)

type fakeEngine struct {
	mu    sync.Mutex
	calls int
	text  string
}

func (e *fakeEngine) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if len(pcm) == 0 {
		return "", nil
	}
	return e.text, nil
}

type fakeBuffer struct {
	mu        sync.Mutex
	recording bool
	data      []byte
}

func (b *fakeBuffer) SetRecording(on bool) {
	b.mu.Lock()
	b.recording = on
	b.mu.Unlock()
}
func (b *fakeBuffer) ClearBuffer() {
	b.mu.Lock()
	b.data = nil
	b.mu.Unlock()
}
func (b *fakeBuffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}
func (b *fakeBuffer) StopAndDrain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.data
	b.data = nil
	return out
}
func (b *fakeBuffer) feed(d []byte) {
	b.mu.Lock()
	b.data = append(b.data, d...)
	b.mu.Unlock()
}

func TestStopRecordingWithEmptyBufferReturnsEmptyString(t *testing.T) {
	engine := &fakeEngine{text: "hello"}
	buf := &fakeBuffer{}
	p := New(engine, buf, time.Hour, commons.NewNop())
	p.StartRecording(context.Background(), nil)
	text, err := p.StopRecording(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty transcript for empty buffer, got %q", text)
	}
}

func TestStopRecordingRunsFinalPassOverBufferedPCM(t *testing.T) {
	engine := &fakeEngine{text: "what time is it"}
	buf := &fakeBuffer{}
	p := New(engine, buf, time.Hour, commons.NewNop())
	p.StartRecording(context.Background(), nil)
	buf.feed(make([]byte, 1000))
	text, err := p.StopRecording(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "what time is it" {
		t.Fatalf("got %q", text)
	}
}

func TestPeriodicTranscriberEmitsPartialOnTick(t *testing.T) {
	engine := &fakeEngine{text: "partial text"}
	buf := &fakeBuffer{}
	p := New(engine, buf, 20*time.Millisecond, commons.NewNop())

	received := make(chan string, 1)
	p.StartRecording(context.Background(), func(text string, partial bool) {
		if !partial {
			t.Errorf("expected partial=true from periodic transcriber")
		}
		select {
		case received <- text:
		default:
		}
	})
	buf.feed(make([]byte, 200))

	select {
	case text := <-received:
		if text != "partial text" {
			t.Fatalf("got %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for partial transcript")
	}
	p.StopRecording(context.Background())
}

func TestRecordingOffStopsPeriodicTask(t *testing.T) {
	engine := &fakeEngine{text: "x"}
	buf := &fakeBuffer{}
	p := New(engine, buf, 10*time.Millisecond, commons.NewNop())
	p.StartRecording(context.Background(), nil)
	p.StopRecording(context.Background())

	// Give any stray goroutine a chance to misbehave, then check call count
	// does not keep climbing after stop.
	time.Sleep(50 * time.Millisecond)
	engine.mu.Lock()
	after := engine.calls
	engine.mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	engine.mu.Lock()
	later := engine.calls
	engine.mu.Unlock()
	if later != after {
		t.Fatalf("periodic transcriber kept running after StopRecording: %d -> %d", after, later)
	}
}
