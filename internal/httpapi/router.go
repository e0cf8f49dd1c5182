// Package httpapi wires the gin router and the per-connection WebSocket
// signalling loop: the JSON control protocol that drives session setup,
// WebRTC offer/answer exchange, audio start/stop, TTS playback, mic
// recording, and LLM provider/model selection.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/voicebridge/gateway/internal/llm"
	"github.com/voicebridge/gateway/internal/session"
	"github.com/voicebridge/gateway/internal/tools"
	"github.com/voicebridge/gateway/internal/transcription"
	"github.com/voicebridge/gateway/internal/tts"
	"github.com/voicebridge/gateway/pkg/commons"
)

// webrtcUpgrader matches the teacher's upgrader exactly: origin checking is
// deferred to the shared-token handshake carried in the "hello" message,
// not to CORS.
var webrtcUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Deps bundles everything a connection handler needs to construct a
// Session and drive a conversation turn.
type Deps struct {
	Logger commons.Logger

	AuthToken  string
	ICEServers []session.ICEServer

	LLMManager   *llm.Manager
	ToolRegistry *tools.Registry
	ToolDispatch *tools.Dispatcher

	TTSEngine tts.Engine
	STTEngine transcription.Engine

	TranscribeIntervalSeconds int
	MaxToolCallsPerTurn       int
	MaxHistoryMessages        int
	DefaultVoiceID            string
	DefaultLLMProvider        string
	DefaultLLMModel           string
}

// NewRouter builds the gin engine exposing a plain health check at / and
// the signalling WebSocket at /v1/talk/webrtc. No static files are served.
func NewRouter(deps *Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/v1/talk/webrtc", func(c *gin.Context) {
		handleWebRTCTalk(c, deps)
	})

	return r
}

func handleWebRTCTalk(c *gin.Context, deps *Deps) {
	conn, err := webrtcUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		deps.Logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	h := newConnHandler(conn, deps)
	h.run(c.Request.Context())
}
