package orchestrator

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/voicebridge/gateway/internal/llm"
)

// thinkRE strips <think>...</think> blocks some models (Qwen 3) emit even
// with think:false requested — belt and suspenders against the request
// flag not being honored.
var thinkRE = regexp.MustCompile(`(?s)<think>.*?</think>`)

func stripThinking(text string) string {
	return strings.TrimSpace(thinkRE.ReplaceAllString(text, ""))
}

// textToolRE is the fallback detector for tool calls models without
// native function-calling emit as plain text, e.g.:
//
//	gc_search {"query": "weather in Austin"}
//
// A known limitation, not a bug: nested braces inside the JSON argument
// object are not balanced, matching the upstream parser this is grounded
// on.
var textToolRE = regexp.MustCompile(`(?:^|['"` + "`" + `\s])(\w+)\s*\(?\s*(\{[^}]*\})\s*\)?`)

// toolAliases maps model-invented tool names (some models, e.g. qwen2.5,
// invent their own) to the registry's canonical names.
var toolAliases = map[string]string{
	"gc_search":     "web_search",
	"search":        "web_search",
	"web_search":    "web_search",
	"check_calendar": "check_calendar",
	"calendar":       "check_calendar",
	"get_calendar":   "check_calendar",
	"search_notes": "search_notes",
	"notes":        "search_notes",
	"get_notes":    "search_notes",
}

// parseTextToolCalls detects tool calls embedded in text output, for
// models that don't use native tool calling.
func parseTextToolCalls(text string) []llm.ToolCall {
	var calls []llm.ToolCall
	for _, match := range textToolRE.FindAllStringSubmatch(text, -1) {
		rawName := strings.ToLower(match[1])
		rawArgs := match[2]

		toolName, ok := toolAliases[rawName]
		if !ok {
			continue
		}

		var args map[string]any
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			continue
		}

		calls = append(calls, llm.ToolCall{Name: toolName, Arguments: rawArgs})
	}
	return calls
}
