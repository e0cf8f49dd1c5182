package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/voicebridge/gateway/pkg/commons"
)

// Dispatcher routes tool calls by name to the registry, never raising to
// the caller: every failure (unknown tool, bad arguments, a panicking
// executor) is captured and folded into the returned string so the model
// can read it as a tool-role message and self-correct.
type Dispatcher struct {
	registry *Registry
	logger   commons.Logger
}

// NewDispatcher constructs a Dispatcher over the given registry.
func NewDispatcher(registry *Registry, logger commons.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger}
}

// Dispatch executes a tool call by name. args may be a map[string]any
// (already-decoded) or a JSON-encoded string (as models frequently emit
// native tool_call arguments). Never returns an error: every failure is
// reported as a non-empty error string, and a successful call returns the
// tool's result unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args any) string {
	parsedArgs, err := d.parseArgs(args)
	if err != nil {
		return fmt.Sprintf("Error: invalid JSON arguments for tool '%s': %s", name, truncate(fmt.Sprint(args), 200))
	}

	tool, ok := d.registry.Get(name)
	if !ok {
		return fmt.Sprintf("Error: unknown tool '%s'. Available tools: %s", name, d.registry.Names())
	}

	if validator, ok := tool.(Validator); ok {
		validated, err := validator.ValidateArgs(parsedArgs)
		if err != nil {
			return fmt.Sprintf("Error: invalid arguments for tool '%s': %s", name, err)
		}
		parsedArgs = validated
	}

	result, err := d.safeExecute(ctx, tool, parsedArgs)
	if err != nil {
		d.logger.Warnw("tool execution failed", "tool", name, "error", err)
		return fmt.Sprintf("Error executing '%s': %s", name, err)
	}

	d.logger.Infow("tool call completed", "tool", name, "result_len", len(result))
	return result
}

func (d *Dispatcher) parseArgs(args any) (map[string]any, error) {
	switch v := args.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case string:
		if v == "" {
			return map[string]any{}, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return map[string]any{}, nil
	}
}

// safeExecute recovers a panicking Execute into an error, mirroring the
// caught-exception discipline of the dispatch contract — a misbehaving
// tool must never take the whole turn down with it.
func (d *Dispatcher) safeExecute(ctx context.Context, tool Tool, args map[string]any) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return tool.Execute(ctx, args)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
