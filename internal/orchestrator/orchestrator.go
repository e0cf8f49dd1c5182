// Package orchestrator owns the conversation history and the tool-calling
// loop: append the user turn, trim history without splitting a tool
// group, call the active LLM provider (tools omitted on the final
// iteration to force a text reply), strip any <think> block, fall back to
// a text-embedded tool-call parser when the provider doesn't use native
// tool calling, dispatch tool calls, and repeat up to a configured limit.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/voicebridge/gateway/internal/llm"
	"github.com/voicebridge/gateway/internal/tools"
	"github.com/voicebridge/gateway/pkg/commons"
)

// OnToolCall is invoked synchronously for each tool call before it is
// dispatched, letting the signalling handler forward a UI notification.
type OnToolCall func(name, argsJSON string)

// ProviderResolver is the subset of *llm.Manager the orchestrator needs:
// provider auto-resolution plus lazy provider-client lookup.
type ProviderResolver interface {
	ResolveProvider(override string) string
	Provider(id string) (llm.Provider, bool)
}

// Orchestrator manages one conversation's message history and drives the
// tool-calling loop against the configured LLM provider.
type Orchestrator struct {
	manager    ProviderResolver
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	logger     commons.Logger

	maxToolCallsPerTurn int
	maxHistoryMessages  int

	providerOverride string
	model            string

	messages []llm.Message
	encoder  *tiktoken.Tiktoken
}

// Config bundles the tunables read from AppConfig.
type Config struct {
	MaxToolCallsPerTurn int
	MaxHistoryMessages  int
	DefaultModel        string
}

// New constructs an Orchestrator with empty history.
func New(manager ProviderResolver, registry *tools.Registry, dispatcher *tools.Dispatcher, logger commons.Logger, cfg Config) *Orchestrator {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warnw("tiktoken encoder unavailable, token accounting disabled", "error", err)
	}

	maxToolCalls := cfg.MaxToolCallsPerTurn
	if maxToolCalls <= 0 {
		maxToolCalls = 5
	}
	maxHistory := cfg.MaxHistoryMessages
	if maxHistory <= 0 {
		maxHistory = 20
	}

	return &Orchestrator{
		manager:             manager,
		registry:            registry,
		dispatcher:          dispatcher,
		logger:              logger,
		maxToolCallsPerTurn: maxToolCalls,
		maxHistoryMessages:  maxHistory,
		model:               cfg.DefaultModel,
		encoder:             enc,
	}
}

// SetProvider forces a specific provider id for subsequent turns. Pass ""
// to revert to auto-resolution.
func (o *Orchestrator) SetProvider(id string) { o.providerOverride = id }

// SetModel overrides the model name forwarded on the next ChatCompletion
// call.
func (o *Orchestrator) SetModel(model string) { o.model = model }

// ActiveProvider returns the provider id that the next turn would resolve
// to.
func (o *Orchestrator) ActiveProvider() string { return o.manager.ResolveProvider(o.providerOverride) }

// ClearHistory resets the conversation, matching a "new conversation"
// control message.
func (o *Orchestrator) ClearHistory() { o.messages = nil }

// Chat processes one user turn through the tool-calling loop and returns
// the assistant's final text response.
func (o *Orchestrator) Chat(ctx context.Context, userInput string, onToolCall OnToolCall) (string, error) {
	o.messages = append(o.messages, llm.Message{Role: "user", Content: userInput})
	o.trimHistory()

	providerID := o.ActiveProvider()
	provider, ok := o.manager.Provider(providerID)
	if !ok {
		return "", fmt.Errorf("provider %q is not configured", providerID)
	}

	systemPrompt := o.buildSystemPrompt()
	allMessages := append([]llm.Message{{Role: "system", Content: systemPrompt}}, o.messages...)
	toolDefs := registrySchemas(o.registry)

	o.logEstimatedTokens(allMessages)

	var lastText string
	for iteration := 0; iteration < o.maxToolCallsPerTurn; iteration++ {
		isLast := iteration == o.maxToolCallsPerTurn-1

		req := llm.ChatRequest{Model: o.model, Messages: allMessages}
		if !isLast {
			req.Tools = toolDefs
		}

		resp, err := provider.ChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}

		text := stripThinking(resp.Content)
		toolCalls := resp.ToolCalls

		if len(toolCalls) == 0 && text != "" {
			if parsed := parseTextToolCalls(text); len(parsed) > 0 {
				o.logger.Infow("detected tool calls in text output", "count", len(parsed))
				toolCalls = parsed
				text = ""
			}
		}

		if len(toolCalls) == 0 {
			if text != "" {
				o.messages = append(o.messages, llm.Message{Role: "assistant", Content: text})
			}
			return text, nil
		}

		lastText = text
		assistantMsg := llm.Message{Role: "assistant", Content: text, ToolCalls: toolCalls}
		o.messages = append(o.messages, assistantMsg)
		allMessages = append(allMessages, assistantMsg)

		for _, tc := range toolCalls {
			if onToolCall != nil {
				onToolCall(tc.Name, tc.Arguments)
			}
			result := o.dispatcher.Dispatch(ctx, tc.Name, tc.Arguments)

			toolMsg := llm.Message{Role: "tool", Content: result, ToolCallID: tc.ID}
			o.messages = append(o.messages, toolMsg)
			allMessages = append(allMessages, toolMsg)
		}
	}

	if lastText != "" {
		return lastText, nil
	}
	return "I wasn't able to complete that request.", nil
}

func registrySchemas(registry *tools.Registry) []llm.ToolDefinition {
	schemas := registry.Schemas()
	defs := make([]llm.ToolDefinition, 0, len(schemas))
	for _, s := range schemas {
		defs = append(defs, llm.ToolDefinition{
			Name:        s.Function.Name,
			Description: s.Function.Description,
			Parameters:  s.Function.Parameters,
		})
	}
	return defs
}

func (o *Orchestrator) buildSystemPrompt() string {
	now := time.Now()
	return fmt.Sprintf(systemPromptTemplate, now.Format("Monday, January 2, 2006"), now.Format("3:04 PM"))
}

// logEstimatedTokens is purely informational telemetry: it never gates or
// truncates a request. History trimming remains the sole mechanism
// governing the outbound message size (see trimHistory).
func (o *Orchestrator) logEstimatedTokens(messages []llm.Message) {
	if o.encoder == nil {
		return
	}
	total := 0
	for _, m := range messages {
		total += len(o.encoder.Encode(m.Content, nil, nil))
	}
	o.logger.Debugw("estimated outbound token count", "tokens", total, "messages", len(messages))
}
