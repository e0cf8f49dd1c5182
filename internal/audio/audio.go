// Package audio holds the shared frame-shape constants the audio plane
// (queue, track source, mic ingestor, TTS pipeline) all agree on.
package audio

import "time"

const (
	// SampleRate is the fixed outbound/mic-normalized sample rate, 48kHz.
	SampleRate = 48000
	// Channels is always 1 (mono) at the PCM level; Opus RTP still signals
	// 2 encoding channels per RFC 7587 at the transport layer.
	Channels = 1
	// FrameSamples is 20ms of audio at 48kHz.
	FrameSamples = 960
	// BytesPerSample is 2 (signed 16-bit LE PCM).
	BytesPerSample = 2
	// FrameBytes is the fixed shape of an AudioFrame: 960 samples * 2 bytes.
	FrameBytes = FrameSamples * BytesPerSample
	// FrameDuration is the real-time pacing interval between frames.
	FrameDuration = 20 * time.Millisecond

	// OpusPayloadType is the standard dynamic payload type used for Opus.
	OpusPayloadType = 111
	// OpusSDPFmtpLine configures mono, inband FEC.
	OpusSDPFmtpLine = "minptime=10;useinbandfec=1;stereo=0;sprop-stereo=0"
)
