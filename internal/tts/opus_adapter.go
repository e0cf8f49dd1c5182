package tts

import (
	"context"
	"fmt"

	opus "gopkg.in/hraban/opus.v2"
)

// OpusDecodingEngine wraps another Engine whose wire format is Opus-encoded
// rather than raw PCM, decoding its output before handing it back to the
// sentence pipeline. Used for engines that return Opus instead of linear
// PCM. The inner engine's whole output is decoded as one Opus packet;
// output made of several concatenated packets is not split and fails to
// decode.
type OpusDecodingEngine struct {
	inner      Engine
	sampleRate int
}

// NewOpusDecodingEngine wraps inner, decoding its Opus output at sampleRate
// mono.
func NewOpusDecodingEngine(inner Engine, sampleRate int) *OpusDecodingEngine {
	return &OpusDecodingEngine{inner: inner, sampleRate: sampleRate}
}

func (e *OpusDecodingEngine) Synthesize(ctx context.Context, text, voiceID string) ([]byte, int, error) {
	encoded, rate, err := e.inner.Synthesize(ctx, text, voiceID)
	if err != nil {
		return nil, 0, err
	}
	if len(encoded) == 0 {
		return nil, rate, nil
	}

	dec, err := opus.NewDecoder(e.sampleRate, 1)
	if err != nil {
		return nil, 0, fmt.Errorf("create opus decoder: %w", err)
	}

	pcmBuf := make([]int16, e.sampleRate/10) // 100ms headroom per frame decode
	n, err := dec.Decode(encoded, pcmBuf)
	if err != nil {
		return nil, 0, fmt.Errorf("opus decode: %w", err)
	}

	out := make([]byte, n*2)
	for i, s := range pcmBuf[:n] {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out, e.sampleRate, nil
}
