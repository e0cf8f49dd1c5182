// Package tools implements the explicit, non-auto-discovered tool registry
// and the concrete tools wired into the orchestrator's tool-calling loop.
package tools

import "context"

// Tool is a named capability the orchestrator can invoke. Execute must never
// return an error to the dispatcher for anything the model could recover
// from by reading the result — callers are expected to fold failures into
// the returned string (see Dispatcher.Dispatch).
type Tool interface {
	Name() string
	Description() string
	ParametersSchema() map[string]any
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Validator is an optional capability a Tool may implement to validate and
// normalize its arguments before Execute runs, mirroring the original's
// optional per-tool input_model. A Tool that doesn't implement this runs
// unvalidated, same as a tool with input_model=None.
type Validator interface {
	ValidateArgs(args map[string]any) (map[string]any, error)
}

// OpenAISchema is the function-calling tool definition shape Ollama's
// /api/chat (and the OpenAI/Anthropic adapters) expect.
type OpenAISchema struct {
	Type     string           `json:"type"`
	Function FunctionSchema   `json:"function"`
}

// FunctionSchema is the "function" member of OpenAISchema.
type FunctionSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToOpenAISchema converts a Tool to the wire format the chat API expects.
func ToOpenAISchema(t Tool) OpenAISchema {
	return OpenAISchema{
		Type: "function",
		Function: FunctionSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.ParametersSchema(),
		},
	}
}
