package tools

import (
	"context"
	"fmt"
	"strings"
)

type noteEntry struct {
	key     string
	content string
}

// NotesTool is a stub with fake data, demonstrating keyword-matched
// multi-tool routing alongside CalendarTool and WebSearchTool.
type NotesTool struct {
	notes []noteEntry
}

// NewNotesTool constructs a NotesTool over a small fixed fake notes set.
func NewNotesTool() *NotesTool {
	return &NotesTool{
		notes: []noteEntry{
			{"shopping", "Shopping list (Feb 15):\n- Oat milk\n- Avocados\n- Sourdough bread\n- Dark chocolate\n- Olive oil"},
			{"recipe", "Pasta recipe:\n1. Boil water, cook spaghetti 8 min\n2. Sauté garlic in olive oil\n3. Add crushed tomatoes, basil, salt\n4. Toss pasta, top with parmesan"},
			{"ideas", "Project ideas:\n- Build a voice assistant with tool calling\n- Automate home lighting with HomeKit\n- Learn Rust by building a CLI tool"},
		},
	}
}

func (t *NotesTool) Name() string { return "search_notes" }

func (t *NotesTool) Description() string {
	return "Search your personal notes for saved information, lists, and reminders."
}

func (t *NotesTool) ParametersSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search term to find in notes.",
			},
		},
		"required": []string{"query"},
	}
}

func (t *NotesTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	lowerQuery := strings.ToLower(query)

	var matches []string
	for _, entry := range t.notes {
		if strings.Contains(entry.key, lowerQuery) || strings.Contains(strings.ToLower(entry.content), lowerQuery) {
			matches = append(matches, entry.content)
		}
	}

	if len(matches) > 0 {
		return fmt.Sprintf("Notes matching '%s':\n\n%s", query, strings.Join(matches, "\n\n")), nil
	}
	return fmt.Sprintf("No notes found matching '%s'.", query), nil
}
