// Package transcription implements the live transcription pipeline: rolling
// full-buffer re-transcription while recording, plus a final pass on stop.
package transcription

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/voicebridge/gateway/pkg/commons"
)

// Engine is the STT engine contract the pipeline depends on: raw PCM bytes
// plus a sample rate in, a possibly-empty transcript out. Implementations
// are expected to be lazily constructed, process-wide singletons.
type Engine interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error)
}

// WhisperHTTPEngine talks to a whisper.cpp-style HTTP inference server: a
// WAV-encoded multipart upload to /inference returning {"text": "..."}.
// Grounded on the pack's whisper.cpp Go HTTP client adapter.
type WhisperHTTPEngine struct {
	client   *resty.Client
	serverURL string
	model    string
	language string
	logger   commons.Logger
}

// WhisperOption configures a WhisperHTTPEngine.
type WhisperOption func(*WhisperHTTPEngine)

// WithModel sets the model name forwarded to the inference server.
func WithModel(model string) WhisperOption {
	return func(e *WhisperHTTPEngine) { e.model = model }
}

// WithLanguage sets the language hint forwarded to the inference server.
func WithLanguage(lang string) WhisperOption {
	return func(e *WhisperHTTPEngine) { e.language = lang }
}

// NewWhisperHTTPEngine constructs a whisper-style HTTP STT adapter.
func NewWhisperHTTPEngine(serverURL string, logger commons.Logger, opts ...WhisperOption) *WhisperHTTPEngine {
	e := &WhisperHTTPEngine{
		client:    resty.New(),
		serverURL: serverURL,
		model:     "base",
		language:  "en",
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type whisperResponse struct {
	Text string `json:"text"`
}

// Transcribe encodes pcm as a RIFF/WAV blob and posts it for inference.
// An empty pcm buffer short-circuits to an empty transcript without a
// network round-trip (STT empty result, error handling kind 5).
func (e *WhisperHTTPEngine) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	wav := encodeWAV(pcm, sampleRate, 1, 16)

	var result whisperResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetFileReader("file", "audio.wav", bytes.NewReader(wav)).
		SetFormData(map[string]string{"model": e.model, "language": e.language}).
		SetResult(&result).
		Post(e.serverURL + "/inference")
	if err != nil {
		return "", fmt.Errorf("whisper inference request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("whisper inference returned status %d", resp.StatusCode())
	}
	return result.Text, nil
}

// encodeWAV writes a minimal RIFF/WAV header followed by raw PCM16 data.
func encodeWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataLen := len(pcm)

	buf := new(bytes.Buffer)
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(pcm)
	return buf.Bytes()
}
