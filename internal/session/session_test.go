package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebridge/gateway/pkg/commons"
)

type fakeTTSEngine struct{}

func (fakeTTSEngine) Synthesize(ctx context.Context, text, voiceID string) ([]byte, int, error) {
	return make([]byte, 960), 48000, nil
}

type fakeSTTEngine struct{ text string }

func (f fakeSTTEngine) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}
	return f.text, nil
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	sess, err := New(nil, commons.NewNop(), fakeTTSEngine{}, fakeSTTEngine{text: "hello"}, 5)
	require.NoError(t, err)
	return sess
}

func TestNew_AssignsUniqueID(t *testing.T) {
	s1 := newTestSession(t)
	s2 := newTestSession(t)
	assert.NotEmpty(t, s1.ID())
	assert.NotEqual(t, s1.ID(), s2.ID())
}

func TestStartAudio_AttachesSineGenerator(t *testing.T) {
	sess := newTestSession(t)
	sess.StartAudio("voice-1")

	frame := sess.trackSource.NextFrame()
	assert.Len(t, frame.Samples, 1920) // audio.FrameBytes

	nonZero := false
	for _, b := range frame.Samples {
		if b != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero, "sine generator should not produce silence")
}

func TestStopAudio_RevertsToSilence(t *testing.T) {
	sess := newTestSession(t)
	sess.StartAudio("voice-1")
	sess.StopAudio()

	frame := sess.trackSource.NextFrame()
	for _, b := range frame.Samples {
		assert.Equal(t, byte(0), b, "detached generator should yield silence")
	}
}

func TestStopSpeaking_ClearsFIFOAndDetachesGenerator(t *testing.T) {
	sess := newTestSession(t)
	sess.SpeakText(context.Background(), "Hello there.", "voice-1")

	assert.Greater(t, sess.fifo.Available(), 0, "SpeakText should enqueue synthesized PCM")

	sess.StopSpeaking()
	assert.Equal(t, 0, sess.fifo.Available(), "StopSpeaking should clear the FIFO")

	// A blob landing after barge-in must not be played: with the FIFO
	// generator detached, the track emits silence.
	late := make([]byte, 1920)
	for i := range late {
		late[i] = 1
	}
	sess.fifo.Enqueue(late)
	frame := sess.trackSource.NextFrame()
	for _, b := range frame.Samples {
		assert.Equal(t, byte(0), b, "detached generator should yield silence")
	}
}

func TestStopSpeaking_Idempotent(t *testing.T) {
	sess := newTestSession(t)
	sess.SpeakText(context.Background(), "Hello.", "voice-1")
	sess.StopSpeaking()
	sess.StopSpeaking() // second call is a no-op, must not panic
}

func TestStartStopRecording_EmptyCaptureYieldsEmptyTranscript(t *testing.T) {
	sess := newTestSession(t)
	sess.StartRecording(nil)
	sess.ingestor.SetRecording(true)
	sess.ingestor.ClearBuffer()
	// No inbound track feeds the ingestor here, so the buffer stays empty;
	// drain it to be sure nothing reaches the final pass.
	sess.ingestor.StopAndDrain()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	text, err := sess.StopRecording(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", text, "no audio captured means an empty transcript")
}

func TestClose_IsIdempotent(t *testing.T) {
	sess := newTestSession(t)
	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
}
