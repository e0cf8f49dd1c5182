package httpapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicebridge/gateway/internal/llm"
	"github.com/voicebridge/gateway/internal/orchestrator"
	"github.com/voicebridge/gateway/internal/session"
	"github.com/voicebridge/gateway/pkg/commons"
)

// connHandler is the reactor for one WebSocket connection: a single-
// threaded read loop dispatching by message type, owning one Session and
// one Orchestrator for the connection's lifetime. The only state mutated
// off the reactor goroutine is delivered back through writeJSON, which is
// the one piece of connection state that's mutex-guarded for concurrent
// senders (the mic partial-transcription callback and TTS playback both
// run on their own goroutines).
type connHandler struct {
	conn   *websocket.Conn
	deps   *Deps
	logger commons.Logger

	writeMu sync.Mutex

	sess *session.Session
	orch *orchestrator.Orchestrator

	voiceID          string
	providerOverride string
	model            string
}

func newConnHandler(conn *websocket.Conn, deps *Deps) *connHandler {
	return &connHandler{
		conn:    conn,
		deps:    deps,
		logger:  deps.Logger,
		voiceID: deps.DefaultVoiceID,
		model:   deps.DefaultLLMModel,
	}
}

func (h *connHandler) run(ctx context.Context) {
	defer h.cleanup()

	for {
		var msg inboundMessage
		if err := h.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debugw("websocket read ended", "error", err)
			}
			return
		}
		h.dispatch(ctx, msg)
	}
}

func (h *connHandler) cleanup() {
	if h.sess != nil {
		if err := h.sess.Close(); err != nil {
			h.logger.Warnw("error closing session", "error", err)
		}
	}
	h.conn.Close()
}

func (h *connHandler) writeJSON(v any) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := h.conn.WriteJSON(v); err != nil {
		h.logger.Debugw("websocket write failed", "error", err)
	}
}

func (h *connHandler) sendError(format string, args ...any) {
	h.writeJSON(errorMessage{Type: "error", Message: fmt.Sprintf(format, args...)})
}

// dispatch routes one decoded control message to its handler, mirroring
// handle_ws's message-type switch: hello, webrtc_offer, start/stop, speak/
// stop_speaking, set_provider/set_model/set_voice, pull_model, mic_start/
// mic_stop, ping, and an unknown-type fallback.
func (h *connHandler) dispatch(ctx context.Context, msg inboundMessage) {
	switch msg.Type {
	case "hello":
		h.handleHello(ctx, msg)
	case "webrtc_offer":
		h.handleWebRTCOffer(ctx, msg)
	case "start":
		h.handleStart(msg)
	case "stop":
		h.handleStop()
	case "speak":
		h.handleSpeak(ctx, msg)
	case "stop_speaking":
		h.handleStopSpeaking()
	case "set_provider":
		h.handleSetProvider(msg)
	case "set_model":
		h.handleSetModel(msg)
	case "set_voice":
		h.handleSetVoice(msg)
	case "pull_model":
		go h.handlePullModel(ctx, msg)
	case "mic_start":
		h.handleMicStart(ctx)
	case "mic_stop":
		h.handleMicStop(ctx)
	case "ping":
		h.writeJSON(ack("pong"))
	default:
		h.sendError("Unknown type: %s", msg.Type)
	}
}

// handleHello authenticates the shared token, reports the ICE servers and
// LLM provider catalog, and constructs this connection's Orchestrator.
// It does not construct the Session — that happens lazily on webrtc_offer.
func (h *connHandler) handleHello(ctx context.Context, msg inboundMessage) {
	if h.deps.AuthToken != "" && msg.Token != h.deps.AuthToken {
		h.sendError("Unauthenticated: invalid token")
		h.conn.Close()
		return
	}

	h.orch = orchestrator.New(
		h.deps.LLMManager,
		h.deps.ToolRegistry,
		h.deps.ToolDispatch,
		h.logger,
		orchestrator.Config{
			MaxToolCallsPerTurn: h.deps.MaxToolCallsPerTurn,
			MaxHistoryMessages:  h.deps.MaxHistoryMessages,
			DefaultModel:        h.model,
		},
	)
	if h.deps.DefaultLLMProvider != "" {
		h.orch.SetProvider(h.deps.DefaultLLMProvider)
		h.providerOverride = h.deps.DefaultLLMProvider
	}

	ices := make([]iceServerJSON, 0, len(h.deps.ICEServers))
	for _, s := range h.deps.ICEServers {
		ices = append(ices, iceServerJSON{URLs: s.URLs, Username: s.Username, Credential: s.Credential})
	}

	providers := h.deps.LLMManager.AvailableProviders()
	providerEntries := make([]providerEntry, 0, len(providers))
	for _, p := range providers {
		providerEntries = append(providerEntries, providerEntry{
			ID: p.ID, DisplayName: p.DisplayName, RequiresAPIKey: p.RequiresAPIKey, Configured: p.Configured,
		})
	}

	defaultProvider := h.deps.LLMManager.ResolveProvider(h.providerOverride)
	ollamaOnline, modelCatalog := h.ollamaStatus(ctx)

	h.writeJSON(helloAck{
		Type:               "hello_ack",
		Voices:             staticVoices,
		ICEServers:         ices,
		LLMProviders:       providerEntries,
		ModelCatalog:       modelCatalog,
		LLMDefaultProvider: defaultProvider,
		LLMDefaultModel:    h.deps.LLMManager.DefaultModel(defaultProvider),
		TTSDefaultVoice:    h.voiceID,
		OllamaOnline:       ollamaOnline,
	})
}

// ollamaStatus reports whether the local model host answered within the
// hello round-trip and, if so, its installed-model catalog — one /api/tags
// call serving both, rather than two.
func (h *connHandler) ollamaStatus(ctx context.Context) (online bool, catalog []modelCatalogEntry) {
	provider, ok := h.deps.LLMManager.Provider("ollama")
	if !ok {
		return false, nil
	}
	ollama, ok := provider.(*llm.OllamaProvider)
	if !ok {
		return false, nil
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	installed, err := ollama.InstalledModels(checkCtx)
	if err != nil {
		return false, nil
	}
	catalog = make([]modelCatalogEntry, 0, len(installed))
	for name := range installed {
		catalog = append(catalog, modelCatalogEntry{ID: name, Provider: "ollama"})
	}
	return true, catalog
}

// handleWebRTCOffer creates the Session (one per connection, created here
// because only now do we know the codec/track negotiation can begin) and
// exchanges SDP.
func (h *connHandler) handleWebRTCOffer(ctx context.Context, msg inboundMessage) {
	if h.sess != nil {
		h.sendError("session already established")
		return
	}

	sess, err := session.New(h.deps.ICEServers, h.logger, h.deps.TTSEngine, h.deps.STTEngine, h.deps.TranscribeIntervalSeconds)
	if err != nil {
		h.sendError("failed to create session: %v", err)
		return
	}
	h.sess = sess

	answer, err := sess.HandleOffer(ctx, msg.SDP)
	if err != nil {
		h.sendError("failed to handle offer: %v", err)
		return
	}
	h.writeJSON(webrtcAnswer{Type: "webrtc_answer", SDP: answer})
}

func (h *connHandler) handleStart(msg inboundMessage) {
	if !h.requireSession() {
		return
	}
	voice := msg.Voice
	if voice == "" {
		voice = h.voiceID
	}
	h.sess.StartAudio(voice)
}

func (h *connHandler) handleStop() {
	if !h.requireSession() {
		return
	}
	h.sess.StopAudio()
}

func (h *connHandler) handleSpeak(ctx context.Context, msg inboundMessage) {
	if !h.requireSession() {
		return
	}
	voice := msg.Voice
	if voice == "" {
		voice = h.voiceID
	}
	go h.sess.SpeakText(ctx, msg.Text, voice)
}

func (h *connHandler) handleStopSpeaking() {
	if !h.requireSession() {
		return
	}
	h.sess.StopSpeaking()
}

// knownProviders mirrors gateway/server.py's set_provider membership check
// ("claude", "openai", "ollama" in the original; "claude" renamed
// "anthropic" throughout this module to match the SDK it wraps).
var knownProviders = map[string]bool{"anthropic": true, "openai": true, "ollama": true}

func (h *connHandler) handleSetProvider(msg inboundMessage) {
	if h.orch == nil {
		h.sendError("hello must be sent first")
		return
	}
	if !knownProviders[msg.Provider] {
		h.sendError("Unknown provider: %s", msg.Provider)
		return
	}
	if !h.deps.LLMManager.IsConfigured(msg.Provider) {
		h.sendError("provider %q is not configured", msg.Provider)
		return
	}
	h.providerOverride = msg.Provider
	h.orch.SetProvider(msg.Provider)
	h.writeJSON(ack("provider_set"))
}

func (h *connHandler) handleSetModel(msg inboundMessage) {
	if h.orch == nil {
		h.sendError("hello must be sent first")
		return
	}
	h.model = msg.Model
	h.orch.SetModel(msg.Model)
	h.orch.ClearHistory()
	h.writeJSON(ack("model_set"))
}

func (h *connHandler) handleSetVoice(msg inboundMessage) {
	h.voiceID = msg.Voice
	h.writeJSON(ack("voice_set"))
}

// handlePullModel streams model-download progress back to the client, one
// JSON object per line received from the model host.
func (h *connHandler) handlePullModel(ctx context.Context, msg inboundMessage) {
	provider, ok := h.deps.LLMManager.Provider("ollama")
	if !ok {
		h.writeJSON(pullErrorMessage{Type: "pull_error", Model: msg.Model, Message: "ollama provider unavailable"})
		return
	}
	ollama, ok := provider.(*llm.OllamaProvider)
	if !ok {
		h.writeJSON(pullErrorMessage{Type: "pull_error", Model: msg.Model, Message: "ollama provider unavailable"})
		return
	}

	err := ollama.PullModel(ctx, msg.Model, func(p llm.PullProgress) {
		h.writeJSON(pullProgressMessage{
			Type: "pull_progress", Status: p.Status, Total: p.Total, Completed: p.Completed, Percent: p.Percent(),
		})
	})
	if err != nil {
		h.writeJSON(pullErrorMessage{Type: "pull_error", Model: msg.Model, Message: err.Error()})
		return
	}

	h.writeJSON(pullCompleteMessage{Type: "pull_complete", Model: msg.Model})
	_, catalog := h.ollamaStatus(ctx)
	h.writeJSON(modelCatalogUpdateMessage{Type: "model_catalog_update", ModelCatalog: catalog})
}

func (h *connHandler) requireSession() bool {
	if h.sess == nil {
		h.sendError("webrtc_offer must be sent first")
		return false
	}
	return true
}

// handleMicStart begins recording and forwards rolling partial transcripts
// as they arrive.
func (h *connHandler) handleMicStart(ctx context.Context) {
	if !h.requireSession() {
		return
	}
	h.sess.StartRecording(func(text string, partial bool) {
		h.writeJSON(transcriptionMessage{Type: "transcription", Text: text, Partial: partial})
	})
}

// handleMicStop stops recording, runs the final STT pass, and — in agent
// mode — feeds the transcript through the orchestrator and speaks the
// reply back, surfacing any LLM error as a protocol error message rather
// than dropping the connection.
func (h *connHandler) handleMicStop(ctx context.Context) {
	if !h.requireSession() {
		return
	}

	text, err := h.sess.StopRecording(ctx)
	if err != nil {
		h.sendError("transcription failed: %v", err)
		return
	}
	h.writeJSON(transcriptionMessage{Type: "transcription", Text: text, Partial: false})

	if text == "" || h.orch == nil {
		return
	}

	h.writeJSON(agentThinkingMessage{Type: "agent_thinking"})

	reply, err := h.orch.Chat(ctx, text, func(name, argsJSON string) {
		h.writeJSON(toolCallMessage{Type: "tool_call", Name: name, Arguments: argsJSON})
	})
	if err != nil {
		h.sendError("LLM error: %v", err)
		return
	}

	h.writeJSON(agentReplyMessage{Type: "agent_reply", Text: reply})
	go h.sess.SpeakText(ctx, reply, h.voiceID)
}
