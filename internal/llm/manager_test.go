package llm

import (
	"testing"

	"github.com/voicebridge/gateway/pkg/commons"
)

func TestResolveProvider_PriorityAnthropicOverOpenAIOverOllama(t *testing.T) {
	m := NewManager(ManagerConfig{AnthropicAPIKey: "a", OpenAIAPIKey: "b"}, commons.NewNop())
	if got := m.ResolveProvider(""); got != "anthropic" {
		t.Fatalf("got %q", got)
	}

	m = NewManager(ManagerConfig{OpenAIAPIKey: "b"}, commons.NewNop())
	if got := m.ResolveProvider(""); got != "openai" {
		t.Fatalf("got %q", got)
	}

	m = NewManager(ManagerConfig{}, commons.NewNop())
	if got := m.ResolveProvider(""); got != "ollama" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveProvider_ExplicitOverrideWins(t *testing.T) {
	m := NewManager(ManagerConfig{AnthropicAPIKey: "a"}, commons.NewNop())
	if got := m.ResolveProvider("ollama"); got != "ollama" {
		t.Fatalf("expected override to win, got %q", got)
	}
}

func TestProvider_OllamaIsAlwaysAvailableWithoutAKey(t *testing.T) {
	m := NewManager(ManagerConfig{OllamaURL: "http://localhost:11434"}, commons.NewNop())
	p, ok := m.Provider("ollama")
	if !ok || p == nil {
		t.Fatalf("expected ollama provider available")
	}
}

func TestProvider_OpenAIUnavailableWithoutKey(t *testing.T) {
	m := NewManager(ManagerConfig{}, commons.NewNop())
	_, ok := m.Provider("openai")
	if ok {
		t.Fatalf("expected openai unavailable without api key")
	}
}

func TestProvider_ReturnsSameInstanceOnRepeatedCalls(t *testing.T) {
	m := NewManager(ManagerConfig{}, commons.NewNop())
	p1, _ := m.Provider("ollama")
	p2, _ := m.Provider("ollama")
	if p1 != p2 {
		t.Fatalf("expected lazy singleton, got distinct instances")
	}
}

func TestAvailableProviders_ReflectsConfiguredStatus(t *testing.T) {
	m := NewManager(ManagerConfig{OpenAIAPIKey: "key"}, commons.NewNop())
	infos := m.AvailableProviders()

	byID := map[string]ProviderInfo{}
	for _, info := range infos {
		byID[info.ID] = info
	}

	if !byID["openai"].Configured {
		t.Fatalf("expected openai configured")
	}
	if byID["anthropic"].Configured {
		t.Fatalf("expected anthropic not configured")
	}
	if !byID["ollama"].Configured {
		t.Fatalf("expected ollama always configured")
	}
}

func TestIsConfigured_FalseWhenResolvedProviderLacksKey(t *testing.T) {
	m := NewManager(ManagerConfig{}, commons.NewNop())
	if m.IsConfigured("openai") {
		t.Fatalf("expected openai forced without key to be unconfigured")
	}
	if !m.IsConfigured("ollama") {
		t.Fatalf("expected ollama always configured")
	}
}
