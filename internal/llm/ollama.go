package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/voicebridge/gateway/pkg/commons"
)

// OllamaProvider talks to a local Ollama host: non-streaming /api/chat,
// /api/tags for the installed-model catalog, and a streaming /api/pull
// for model downloads.
type OllamaProvider struct {
	client  *resty.Client
	baseURL string
	logger  commons.Logger
}

// NewOllamaProvider constructs an OllamaProvider against baseURL (e.g.
// http://localhost:11434).
func NewOllamaProvider(baseURL string, logger commons.Logger) *OllamaProvider {
	return &OllamaProvider{
		client:  resty.New().SetTimeout(60 * time.Second),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

func (p *OllamaProvider) ID() string { return "ollama" }

type ollamaChatMessage struct {
	Role      string             `json:"role"`
	Content   string             `json:"content"`
	ToolCalls []ollamaToolCall   `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	Function ollamaToolCallFn `json:"function"`
}

type ollamaToolCallFn struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

type ollamaTool struct {
	Type     string             `json:"type"`
	Function ollamaToolFunction `json:"function"`
}

type ollamaToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ollamaChatRequest struct {
	Model    string               `json:"model"`
	Messages []ollamaChatMessage  `json:"messages"`
	Tools    []ollamaTool         `json:"tools,omitempty"`
	Stream   bool                 `json:"stream"`
	Think    bool                 `json:"think"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}

// ChatCompletion implements Provider. think is always sent false, matching
// the Qwen-3 thinking-mode suppression the orchestrator relies on — any
// residual <think> block is stripped downstream as a second line of
// defense.
func (p *OllamaProvider) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	body := ollamaChatRequest{
		Model:    req.Model,
		Messages: toOllamaMessages(req.Messages),
		Stream:   false,
		Think:    false,
	}
	if len(req.Tools) > 0 {
		body.Tools = toOllamaTools(req.Tools)
	}

	p.logger.Debugw("ollama chat request", "model", req.Model, "messages", len(req.Messages), "tools", len(req.Tools))

	var result ollamaChatResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post(p.baseURL + "/api/chat")
	if err != nil {
		return ChatResponse{}, fmt.Errorf("ollama chat request: %w", err)
	}
	if resp.IsError() {
		return ChatResponse{}, fmt.Errorf("ollama chat returned status %d: %s", resp.StatusCode(), resp.String())
	}

	toolCalls := make([]ToolCall, 0, len(result.Message.ToolCalls))
	for _, tc := range result.Message.ToolCalls {
		argsJSON, err := json.Marshal(tc.Function.Arguments)
		if err != nil {
			argsJSON = []byte("{}")
		}
		toolCalls = append(toolCalls, ToolCall{Name: tc.Function.Name, Arguments: string(argsJSON)})
	}

	return ChatResponse{Content: result.Message.Content, ToolCalls: toolCalls}, nil
}

func toOllamaMessages(messages []Message) []ollamaChatMessage {
	out := make([]ollamaChatMessage, 0, len(messages))
	for _, m := range messages {
		om := ollamaChatMessage{Role: m.Role, Content: m.Content}
		for _, tc := range m.ToolCalls {
			var args any
			if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
				args = map[string]any{}
			}
			om.ToolCalls = append(om.ToolCalls, ollamaToolCall{Function: ollamaToolCallFn{Name: tc.Name, Arguments: args}})
		}
		out = append(out, om)
	}
	return out
}

func toOllamaTools(defs []ToolDefinition) []ollamaTool {
	out := make([]ollamaTool, 0, len(defs))
	for _, d := range defs {
		out = append(out, ollamaTool{
			Type: "function",
			Function: ollamaToolFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// InstalledModels returns the model names reported by /api/tags,
// normalized so a "name:latest" entry is also matched by bare "name".
func (p *OllamaProvider) InstalledModels(ctx context.Context) (map[string]bool, error) {
	var result ollamaTagsResponse
	resp, err := p.client.R().SetContext(ctx).SetResult(&result).Get(p.baseURL + "/api/tags")
	if err != nil {
		return nil, fmt.Errorf("cannot reach ollama at %s: %w", p.baseURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ollama tags returned status %d", resp.StatusCode())
	}

	installed := make(map[string]bool, len(result.Models)*2)
	for _, m := range result.Models {
		installed[m.Name] = true
		if strings.HasSuffix(m.Name, ":latest") {
			installed[strings.TrimSuffix(m.Name, ":latest")] = true
		}
	}
	return installed, nil
}

// PullProgress is one line of newline-delimited JSON streamed from
// POST /api/pull.
type PullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// Percent returns the completion percentage (0–100), or -1 when Total is
// unknown.
func (pp PullProgress) Percent() float64 {
	if pp.Total <= 0 {
		return -1
	}
	return float64(pp.Completed) / float64(pp.Total) * 100
}

// PullModel streams pull progress for modelName, invoking onProgress for
// each decoded line. A malformed line is skipped, matching the original
// implementation's lenient line-by-line JSON decoding.
func (p *OllamaProvider) PullModel(ctx context.Context, modelName string, onProgress func(PullProgress)) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"name": modelName, "stream": true}).
		SetDoNotParseResponse(true).
		Post(p.baseURL + "/api/pull")
	if err != nil {
		return fmt.Errorf("ollama pull request: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var progress PullProgress
		if err := json.Unmarshal([]byte(line), &progress); err != nil {
			continue
		}
		onProgress(progress)
	}
	return scanner.Err()
}
