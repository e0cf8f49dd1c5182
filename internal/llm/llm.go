// Package llm gives the conversation orchestrator one ChatCompletion
// contract regardless of backend — Ollama (local, primary), OpenAI, or
// Anthropic — plus provider/model catalog introspection for the
// signalling protocol's hello_ack and set_provider messages.
package llm

import "context"

// Message is a provider-agnostic chat message. ToolCalls is populated on
// assistant messages that invoke tools; ToolCallID ties a tool-role
// message back to the call it answers.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a single function invocation requested by the model.
// Arguments is the raw JSON object text the model produced — the tool
// dispatcher parses it, so providers never need to.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolDefinition is the function-calling schema shape every provider
// adapter converts into its own wire format.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatRequest is one turn of the tool-calling loop.
type ChatRequest struct {
	Model    string
	Messages []Message
	Tools    []ToolDefinition
}

// ChatResponse is a provider's reply: text, one or more tool calls, or
// both. When ToolCalls is non-empty the orchestrator dispatches them and
// keeps Content only as the assistant message's text and as the reply it
// returns if the tool loop runs out of iterations.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// Provider is the contract every backend (Ollama, OpenAI, Anthropic)
// implements.
type Provider interface {
	// ID is the short provider id used in set_provider ("ollama", "openai",
	// "anthropic").
	ID() string
	ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// ProviderInfo describes a provider for the hello_ack.llm_providers catalog.
type ProviderInfo struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	RequiresAPIKey  bool   `json:"requires_api_key"`
	Configured      bool   `json:"configured"`
}
