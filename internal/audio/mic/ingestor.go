package mic

import (
	"context"
	"io"
	"sync"

	"github.com/pion/webrtc/v4"
	opus "gopkg.in/hraban/opus.v2"

	"github.com/voicebridge/gateway/internal/audio"
	"github.com/voicebridge/gateway/pkg/commons"
)

// Ingestor consumes the inbound WebRTC audio track, normalizes every frame
// to mono 16-bit PCM at 48kHz, and appends it to the recording buffer
// whenever recording is toggled on.
type Ingestor struct {
	logger commons.Logger

	mu        sync.Mutex
	recording bool
	buffer    []byte

	loggedFormatOnce bool
}

// New constructs an Ingestor bound to a single inbound track's lifetime.
func New(logger commons.Logger) *Ingestor {
	return &Ingestor{logger: logger}
}

// SetRecording toggles whether inbound frames are appended to the buffer.
// Turning recording off does not clear the accumulated buffer — only
// ClearBuffer/StopAndDrain clear it.
func (i *Ingestor) SetRecording(on bool) {
	i.mu.Lock()
	i.recording = on
	i.mu.Unlock()
}

// ClearBuffer discards accumulated PCM without touching the recording flag.
func (i *Ingestor) ClearBuffer() {
	i.mu.Lock()
	i.buffer = nil
	i.mu.Unlock()
}

// Snapshot returns a copy of everything captured so far, without clearing
// it — used by the periodic (rolling) transcriber.
func (i *Ingestor) Snapshot() []byte {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]byte, len(i.buffer))
	copy(out, i.buffer)
	return out
}

// StopAndDrain returns and clears the buffer in one step, for the final
// STT pass on stop_recording.
func (i *Ingestor) StopAndDrain() []byte {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.buffer
	i.buffer = nil
	return out
}

func (i *Ingestor) append(pcm []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.recording {
		return
	}
	i.buffer = append(i.buffer, pcm...)
}

// Run reads from track until it ends (io.EOF-equivalent) or ctx is
// cancelled. A failed track.ReadRTP() is treated as end-of-stream, not an
// error, per the ingestor's normalize-don't-fail contract.
func (i *Ingestor) Run(ctx context.Context, track *webrtc.TrackRemote) {
	codec := track.Codec()
	if codec.MimeType != webrtc.MimeTypeOpus {
		i.logger.Errorw("unsupported inbound codec, only Opus is decoded", "codec", codec.MimeType)
		return
	}

	dec, err := opus.NewDecoder(audio.SampleRate, 1)
	if err != nil {
		i.logger.Errorw("failed to create opus decoder", "error", err)
		return
	}

	pcmBuf := make([]int16, audio.FrameSamples*6) // headroom for larger Opus frames
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pkt, _, err := track.ReadRTP()
		if err != nil {
			if err != io.EOF {
				i.logger.Debugw("mic track read ended", "error", err)
			}
			return
		}

		n, err := dec.Decode(pkt.Payload, pcmBuf)
		if err != nil {
			i.logger.Debugw("opus decode failed, dropping packet", "error", err)
			continue
		}

		samples := pcmBuf[:n]
		raw := make([]byte, len(samples)*2)
		for idx, s := range samples {
			raw[2*idx] = byte(s)
			raw[2*idx+1] = byte(s >> 8)
		}

		if !i.loggedFormatOnce {
			i.logger.Infow("mic ingestor observed inbound format",
				"sampleRate", audio.SampleRate, "channels", 1, "samplesPerPacket", n)
			i.loggedFormatOnce = true
		}

		// Opus decode already yields mono int16 PCM at the configured
		// sample rate; Normalize is still applied so any non-Opus path
		// (a future codec) goes through the same saturate/downmix logic.
		pcm := Normalize(RawFrame{Format: FormatInt16, Channels: 1, Samples: raw})
		i.append(pcm)
	}
}
