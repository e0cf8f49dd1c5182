package httpapi

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicebridge/gateway/internal/llm"
	"github.com/voicebridge/gateway/internal/session"
	"github.com/voicebridge/gateway/internal/tools"
	"github.com/voicebridge/gateway/pkg/commons"
)

func testDeps(t *testing.T) *Deps {
	t.Helper()
	registry := tools.NewRegistry()
	registry.Register(&tools.CalendarTool{})

	return &Deps{
		Logger:       commons.NewNop(),
		AuthToken:    "secret-token",
		ICEServers:   []session.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
		LLMManager:   llm.NewManager(llm.ManagerConfig{OllamaURL: "http://127.0.0.1:1"}, commons.NewNop()),
		ToolRegistry: registry,
		ToolDispatch: tools.NewDispatcher(registry, commons.NewNop()),

		TranscribeIntervalSeconds: 5,
		MaxToolCallsPerTurn:       5,
		MaxHistoryMessages:        20,
		DefaultVoiceID:            "sine-440",
		DefaultLLMModel:           "llama3.2",
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *websocket.Conn) {
	t.Helper()
	srv := httptest.NewServer(NewRouter(testDeps(t)))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/talk/webrtc"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return srv, conn
}

func readMsg(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var v map[string]any
	if err := conn.ReadJSON(&v); err != nil {
		t.Fatalf("read: %v", err)
	}
	return v
}

func TestHello_RejectsInvalidToken(t *testing.T) {
	_, conn := newTestServer(t)
	if err := conn.WriteJSON(inboundMessage{Type: "hello", Token: "wrong"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readMsg(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("expected error message, got %+v", msg)
	}
}

func TestHello_ReturnsCatalog(t *testing.T) {
	_, conn := newTestServer(t)
	if err := conn.WriteJSON(inboundMessage{Type: "hello", Token: "secret-token"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readMsg(t, conn)
	if msg["type"] != "hello_ack" {
		t.Fatalf("expected hello_ack, got %+v", msg)
	}
	voices, _ := msg["voices"].([]any)
	if len(voices) != 3 {
		t.Fatalf("expected 3 catalog voices, got %d", len(voices))
	}
	providers, _ := msg["llm_providers"].([]any)
	if len(providers) != 3 {
		t.Fatalf("expected 3 provider entries, got %d", len(providers))
	}
	if msg["llm_default_provider"] != "ollama" {
		t.Fatalf("expected default provider ollama with no API keys set, got %v", msg["llm_default_provider"])
	}
	if msg["tts_default_voice"] != "sine-440" {
		t.Fatalf("expected default voice sine-440, got %v", msg["tts_default_voice"])
	}
}

func TestPing_RespondsPong(t *testing.T) {
	_, conn := newTestServer(t)
	if err := conn.WriteJSON(inboundMessage{Type: "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readMsg(t, conn)
	if msg["type"] != "pong" {
		t.Fatalf("expected pong, got %+v", msg)
	}
}

func TestUnknownType_ReturnsError(t *testing.T) {
	_, conn := newTestServer(t)
	if err := conn.WriteJSON(inboundMessage{Type: "not_a_real_type"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readMsg(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("expected error, got %+v", msg)
	}
}

func TestStart_RequiresSessionFirst(t *testing.T) {
	_, conn := newTestServer(t)
	if err := conn.WriteJSON(inboundMessage{Type: "start"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readMsg(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("expected error requiring webrtc_offer first, got %+v", msg)
	}
}

func TestSetProvider_RequiresHelloFirst(t *testing.T) {
	_, conn := newTestServer(t)
	if err := conn.WriteJSON(inboundMessage{Type: "set_provider", Provider: "ollama"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readMsg(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("expected error, got %+v", msg)
	}
}

func TestSetProvider_RejectsUnconfiguredProvider(t *testing.T) {
	_, conn := newTestServer(t)
	if err := conn.WriteJSON(inboundMessage{Type: "hello", Token: "secret-token"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readMsg(t, conn) // hello_ack

	if err := conn.WriteJSON(inboundMessage{Type: "set_provider", Provider: "openai"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readMsg(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("expected error for unconfigured provider, got %+v", msg)
	}
}
