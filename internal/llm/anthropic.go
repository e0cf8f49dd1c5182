package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/voicebridge/gateway/pkg/commons"
)

// defaultAnthropicModel matches the original assistant's hardcoded Haiku
// pin — cheap and fast enough for voice-turn latency.
const defaultAnthropicModel = "claude-haiku-4-5-20251001"

const anthropicMaxTokens = 1024

// AnthropicProvider implements Provider over the Anthropic Messages API.
// Declared in go.mod but, unlike Ollama and OpenAI, exercised by no
// example in the retrieval pack — see DESIGN.md for the grounding note.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
	logger commons.Logger
}

// NewAnthropicProvider constructs an AnthropicProvider.
func NewAnthropicProvider(apiKey, model string, logger commons.Logger) *AnthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicProvider{client: client, model: model, logger: logger}
}

func (p *AnthropicProvider) ID() string { return "anthropic" }

// ChatCompletion implements Provider. System-role messages are hoisted out
// of req.Messages into the top-level System param, matching the Messages
// API's separate system-prompt field.
func (p *AnthropicProvider) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	var system string
	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "user":
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			blocks := []anthropic.ContentBlockParamUnion{}
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, json.RawMessage(tc.Arguments), tc.Name))
			}
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		case "tool":
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: anthropicMaxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, td := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        td.Name,
				Description: anthropic.String(td.Description),
				InputSchema: toAnthropicSchema(td.Parameters),
			},
		})
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("anthropic: messages.new: %w", err)
	}

	var out ChatResponse
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Content += variant.Text
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: string(variant.Input),
			})
		}
	}

	p.logger.Infow("anthropic chat completion", "model", model, "stop_reason", resp.StopReason, "tool_calls", len(out.ToolCalls))
	return out, nil
}

func toAnthropicSchema(parameters map[string]any) anthropic.ToolInputSchemaParam {
	properties, _ := parameters["properties"].(map[string]any)
	return anthropic.ToolInputSchemaParam{Properties: properties}
}
