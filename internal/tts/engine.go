// Package tts implements the Sentence-Streamed TTS pipeline: split text
// into sentences, synthesize each off the reactor thread, enqueue the
// resampled PCM into the FIFO in order.
package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Engine is the TTS engine contract: synthesize(text, voiceID) -> raw PCM16
// at the engine's native sample rate. Voice model blobs are fetched lazily
// and cached by the concrete implementation.
type Engine interface {
	Synthesize(ctx context.Context, text, voiceID string) (pcm []byte, nativeRate int, err error)
}

// WebSocketEngine synthesizes over a persistent streaming connection, one
// context per call, mirroring the pack's Cartesia-style client: a sentence
// is sent with continue=false (a single complete utterance per call, since
// the sentence-streamed pipeline already chunks text sentence-by-sentence)
// and PCM chunks are accumulated until the server's "done" message arrives.
type WebSocketEngine struct {
	mu         sync.Mutex
	conn       *websocket.Conn
	serverURL  string
	apiKey     string
	model      string
	sampleRate int
}

// NewWebSocketEngine constructs a streaming TTS adapter. Connection is
// established lazily on first Synthesize call.
func NewWebSocketEngine(serverURL, apiKey, model string, sampleRate int) *WebSocketEngine {
	if sampleRate == 0 {
		sampleRate = 22050
	}
	return &WebSocketEngine{serverURL: serverURL, apiKey: apiKey, model: model, sampleRate: sampleRate}
}

func (e *WebSocketEngine) ensureConn() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn != nil {
		return nil
	}
	conn, _, err := websocket.DefaultDialer.Dial(e.serverURL+"?api_key="+e.apiKey, nil)
	if err != nil {
		return fmt.Errorf("dial tts websocket: %w", err)
	}
	e.conn = conn
	return nil
}

type ttsOutMessage struct {
	Transcript string `json:"transcript"`
	Continue   bool   `json:"continue"`
	ContextID  string `json:"context_id"`
	ModelID    string `json:"model_id"`
	Voice      struct {
		Mode string `json:"mode"`
		ID   string `json:"id"`
	} `json:"voice"`
	OutputFormat struct {
		Container  string `json:"container"`
		Encoding   string `json:"encoding"`
		SampleRate int    `json:"sample_rate"`
	} `json:"output_format"`
}

type ttsInMessage struct {
	Type      string `json:"type"`
	ContextID string `json:"context_id"`
	Data      string `json:"data"`
	Error     string `json:"error"`
}

// Synthesize sends one complete utterance and blocks until the server
// signals the context is done, accumulating every audio chunk in order.
func (e *WebSocketEngine) Synthesize(ctx context.Context, text, voiceID string) ([]byte, int, error) {
	if text == "" {
		return nil, e.sampleRate, nil
	}
	if err := e.ensureConn(); err != nil {
		return nil, 0, err
	}

	contextID := uuid.New().String()
	out := ttsOutMessage{Transcript: text, Continue: false, ContextID: contextID, ModelID: e.model}
	out.Voice.Mode = "id"
	out.Voice.ID = voiceID
	out.OutputFormat.Container = "raw"
	out.OutputFormat.Encoding = "pcm_s16le"
	out.OutputFormat.SampleRate = e.sampleRate

	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return nil, 0, fmt.Errorf("tts websocket not connected")
	}
	if err := conn.WriteJSON(out); err != nil {
		return nil, 0, fmt.Errorf("write tts request: %w", err)
	}

	var pcm []byte
	for {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		default:
		}

		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return nil, 0, fmt.Errorf("read tts response: %w", err)
		}

		var msg ttsInMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.ContextID != "" && msg.ContextID != contextID {
			continue // stale chunk from a cancelled context
		}

		switch msg.Type {
		case "chunk":
			chunk, decodeErr := base64.StdEncoding.DecodeString(msg.Data)
			if decodeErr == nil {
				pcm = append(pcm, chunk...)
			}
		case "done":
			return pcm, e.sampleRate, nil
		case "error":
			return nil, 0, fmt.Errorf("tts engine error: %s", msg.Error)
		}
	}
}

// Close releases the underlying connection, if any.
func (e *WebSocketEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return nil
	}
	err := e.conn.Close()
	e.conn = nil
	return err
}
