package tools

import (
	"context"
	"fmt"
	"time"
)

// CalendarTool is a stub with fake data, proving multi-tool routing works.
type CalendarTool struct{}

// NewCalendarTool constructs a CalendarTool.
func NewCalendarTool() *CalendarTool { return &CalendarTool{} }

func (t *CalendarTool) Name() string { return "check_calendar" }

func (t *CalendarTool) Description() string {
	return "Check your calendar for upcoming events and appointments."
}

func (t *CalendarTool) ParametersSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"date": map[string]any{
				"type":        "string",
				"description": "Date to check in YYYY-MM-DD format. Defaults to today.",
			},
		},
		"required": []string{},
	}
}

func (t *CalendarTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	date, _ := args["date"].(string)
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	return fmt.Sprintf(
		"Calendar for %s:\n"+
			"- 9:00 AM: Team standup (Zoom)\n"+
			"- 11:30 AM: Lunch with Alex at Torchy's Tacos\n"+
			"- 2:00 PM: Dentist appointment\n"+
			"- 5:00 PM: Yoga class", date,
	), nil
}
