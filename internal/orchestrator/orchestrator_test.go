package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/voicebridge/gateway/internal/llm"
	"github.com/voicebridge/gateway/internal/tools"
	"github.com/voicebridge/gateway/pkg/commons"
)

type scriptedProvider struct {
	responses []llm.ChatResponse
	calls     int
	lastReq   llm.ChatRequest
}

func (p *scriptedProvider) ID() string { return "fake" }

func (p *scriptedProvider) ChatCompletion(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	p.lastReq = req
	resp := p.responses[p.calls]
	if p.calls < len(p.responses)-1 {
		p.calls++
	}
	return resp, nil
}

type fakeResolver struct {
	provider *scriptedProvider
	override string
}

func (r *fakeResolver) ResolveProvider(override string) string {
	if override != "" {
		return override
	}
	return "fake"
}

func (r *fakeResolver) Provider(id string) (llm.Provider, bool) {
	if id == "fake" {
		return r.provider, true
	}
	return nil, false
}

func newTestOrchestrator(t *testing.T, responses []llm.ChatResponse) (*Orchestrator, *scriptedProvider) {
	t.Helper()
	provider := &scriptedProvider{responses: responses}
	resolver := &fakeResolver{provider: provider}
	registry := tools.NewRegistry()
	registry.Register(&stubTool{name: "web_search"})
	dispatcher := tools.NewDispatcher(registry, commons.NewNop())
	o := New(resolver, registry, dispatcher, commons.NewNop(), Config{MaxToolCallsPerTurn: 5, MaxHistoryMessages: 20})
	return o, provider
}

type stubTool struct{ name string }

func (s *stubTool) Name() string                       { return s.name }
func (s *stubTool) Description() string                { return "stub" }
func (s *stubTool) ParametersSchema() map[string]any    { return map[string]any{"type": "object"} }
func (s *stubTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return "tool result", nil
}

func TestChat_ReturnsTextResponseWithNoToolCalls(t *testing.T) {
	o, _ := newTestOrchestrator(t, []llm.ChatResponse{{Content: "Hello there!"}})
	text, err := o.Chat(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hello there!" {
		t.Fatalf("got %q", text)
	}
	if len(o.messages) != 2 { // user + assistant
		t.Fatalf("expected 2 messages in history, got %d", len(o.messages))
	}
}

func TestChat_StripsThinkingBlock(t *testing.T) {
	o, _ := newTestOrchestrator(t, []llm.ChatResponse{{Content: "<think>pondering</think>The answer is 4."}})
	text, err := o.Chat(context.Background(), "what is 2+2", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "The answer is 4." {
		t.Fatalf("got %q", text)
	}
}

func TestChat_DispatchesNativeToolCallsThenReturnsFinalText(t *testing.T) {
	o, provider := newTestOrchestrator(t, []llm.ChatResponse{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "web_search", Arguments: `{"query":"weather"}`}}},
		{Content: "It's sunny."},
	})

	var seenCalls []string
	text, err := o.Chat(context.Background(), "what's the weather", func(name, args string) {
		seenCalls = append(seenCalls, name)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "It's sunny." {
		t.Fatalf("got %q", text)
	}
	if len(seenCalls) != 1 || seenCalls[0] != "web_search" {
		t.Fatalf("expected onToolCall invoked for web_search, got %v", seenCalls)
	}

	// history: user, assistant(tool_calls), tool, assistant(final)
	if len(o.messages) != 4 {
		t.Fatalf("expected 4 messages in history, got %d: %+v", len(o.messages), o.messages)
	}
	if o.messages[2].Role != "tool" || o.messages[2].Content != "tool result" {
		t.Fatalf("expected tool result message, got %+v", o.messages[2])
	}

	_ = provider
}

func TestChat_ParsesTextEmbeddedToolCallFallback(t *testing.T) {
	o, _ := newTestOrchestrator(t, []llm.ChatResponse{
		{Content: `gc_search {"query": "weather in Austin"}`},
		{Content: "It's warm and sunny."},
	})

	text, err := o.Chat(context.Background(), "weather?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "It's warm and sunny." {
		t.Fatalf("got %q", text)
	}
}

func TestChat_OmitsToolsOnFinalIteration(t *testing.T) {
	responses := make([]llm.ChatResponse, 3)
	for i := range responses {
		responses[i] = llm.ChatResponse{ToolCalls: []llm.ToolCall{{ID: "x", Name: "web_search", Arguments: "{}"}}}
	}
	o, provider := newTestOrchestrator(t, responses)
	o.maxToolCallsPerTurn = 3

	text, err := o.Chat(context.Background(), "loop forever", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text == "" {
		t.Fatalf("expected a fallback text response")
	}
	if len(provider.lastReq.Tools) != 0 {
		t.Fatalf("expected tools omitted on final iteration")
	}
}

func TestTrimHistory_PreservesToolGroupIntegrity(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	o.maxHistoryMessages = 2

	o.messages = []llm.Message{
		{Role: "user", Content: "1"},
		{Role: "assistant", Content: "", ToolCalls: []llm.ToolCall{{Name: "web_search"}}},
		{Role: "tool", Content: "result"},
		{Role: "user", Content: "2"},
	}
	o.trimHistory()

	// cut starts at 4-2=2, lands on the tool message and walks forward past
	// it, so only the trailing user message survives.
	if len(o.messages) != 1 || o.messages[0].Content != "2" {
		t.Fatalf("expected trim to keep only the trailing user message, got %+v", o.messages)
	}
	for i, m := range o.messages {
		if m.Role == "tool" && i == 0 {
			t.Fatalf("trim split a tool group: history starts with a dangling tool message")
		}
	}
}

func TestParseTextToolCalls_ResolvesAliasAndParsesJSON(t *testing.T) {
	calls := parseTextToolCalls(`gc_search {"query": "cats"}`)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Name != "web_search" {
		t.Fatalf("expected alias resolved to web_search, got %q", calls[0].Name)
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(calls[0].Arguments), &args); err != nil {
		t.Fatalf("arguments not valid json: %v", err)
	}
	if args["query"] != "cats" {
		t.Fatalf("got %+v", args)
	}
}

func TestParseTextToolCalls_UnknownNameIsIgnored(t *testing.T) {
	calls := parseTextToolCalls(`totally_unknown_fn {"x": 1}`)
	if len(calls) != 0 {
		t.Fatalf("expected no calls for unrecognized tool name, got %v", calls)
	}
}

func TestStripThinking_RemovesBlockAndTrims(t *testing.T) {
	got := stripThinking("  <think>internal musing</think>  Actual answer  ")
	if got != "Actual answer" {
		t.Fatalf("got %q", got)
	}
}
