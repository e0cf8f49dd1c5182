package llm

import (
	"sync"

	"github.com/voicebridge/gateway/pkg/commons"
)

// ManagerConfig carries the subset of AppConfig the provider layer needs.
type ManagerConfig struct {
	OllamaURL       string
	OllamaModel     string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
}

// Manager resolves which provider to use and lazily constructs each
// provider client exactly once, on first use — mirroring the
// module-level lazy-singleton clients in the original's llm.py.
type Manager struct {
	cfg    ManagerConfig
	logger commons.Logger

	mu       sync.Mutex
	ollama   *OllamaProvider
	openai   *OpenAIProvider
	anthropic *AnthropicProvider
}

// NewManager constructs a Manager. No network I/O or client construction
// happens until a provider is actually requested.
func NewManager(cfg ManagerConfig, logger commons.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger}
}

// ResolveProvider auto-detects which provider to use in priority order
// Anthropic > OpenAI > Ollama by API-key presence, matching
// engine/llm.py's _resolve_provider. override, if it is a known provider id
// ("anthropic", "openai" or "ollama"), forces that provider regardless of
// key presence; any other value falls through to auto-detection.
func (m *Manager) ResolveProvider(override string) string {
	switch override {
	case "anthropic", "openai", "ollama":
		return override
	}
	if m.cfg.AnthropicAPIKey != "" {
		return "anthropic"
	}
	if m.cfg.OpenAIAPIKey != "" {
		return "openai"
	}
	return "ollama"
}

// Provider returns the lazily-constructed client for the given provider
// id, constructing it on first call.
func (m *Manager) Provider(id string) (Provider, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch id {
	case "ollama":
		if m.ollama == nil {
			m.ollama = NewOllamaProvider(m.cfg.OllamaURL, m.logger)
			m.logger.Infow("ollama client initialized", "url", m.cfg.OllamaURL)
		}
		return m.ollama, true
	case "openai":
		if m.cfg.OpenAIAPIKey == "" {
			return nil, false
		}
		if m.openai == nil {
			m.openai = NewOpenAIProvider(m.cfg.OpenAIAPIKey, m.cfg.OpenAIModel, m.logger)
			m.logger.Infow("openai client initialized", "model", m.cfg.OpenAIModel)
		}
		return m.openai, true
	case "anthropic":
		if m.cfg.AnthropicAPIKey == "" {
			return nil, false
		}
		if m.anthropic == nil {
			m.anthropic = NewAnthropicProvider(m.cfg.AnthropicAPIKey, m.cfg.AnthropicModel, m.logger)
			m.logger.Infow("anthropic client initialized", "model", m.cfg.AnthropicModel)
		}
		return m.anthropic, true
	default:
		return nil, false
	}
}

// AvailableProviders returns the provider catalog for hello_ack, one entry
// per known provider with its configured status — matches
// engine/llm.py's available_providers().
func (m *Manager) AvailableProviders() []ProviderInfo {
	return []ProviderInfo{
		{ID: "anthropic", DisplayName: "Claude Haiku", RequiresAPIKey: true, Configured: m.cfg.AnthropicAPIKey != ""},
		{ID: "openai", DisplayName: "OpenAI (" + displayOr(m.cfg.OpenAIModel, "gpt-4o-mini") + ")", RequiresAPIKey: true, Configured: m.cfg.OpenAIAPIKey != ""},
		{ID: "ollama", DisplayName: "Ollama (" + displayOr(m.cfg.OllamaModel, "unset") + ")", RequiresAPIKey: false, Configured: true},
	}
}

// IsConfigured reports whether the resolved default provider can actually
// be used (has an API key, or is Ollama which needs none).
func (m *Manager) IsConfigured(override string) bool {
	switch m.ResolveProvider(override) {
	case "anthropic":
		return m.cfg.AnthropicAPIKey != ""
	case "openai":
		return m.cfg.OpenAIAPIKey != ""
	default:
		return true
	}
}

// DefaultModel returns the configured default model name for the given
// provider id, or "" if none is configured. An empty request model makes
// the OpenAI and Anthropic clients use the model they were constructed with
// (for Anthropic, defaultAnthropicModel when that is empty too); Ollama has
// no built-in default and sends the name as given.
func (m *Manager) DefaultModel(id string) string {
	switch id {
	case "anthropic":
		return m.cfg.AnthropicModel
	case "openai":
		return m.cfg.OpenAIModel
	case "ollama":
		return m.cfg.OllamaModel
	default:
		return ""
	}
}

func displayOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
