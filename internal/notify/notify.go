// Package notify delivers task events to people outside the API, currently a
// Telegram chat.
package notify

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agalitsyn/taskboard/internal/model"
)

// Nop drops every event. Used when no delivery channel is configured.
type Nop struct{}

func (Nop) NotifyTask(context.Context, model.TaskEvent) error {
	return nil
}

var eventIcons = map[model.TaskEventKind]string{
	model.TaskEventAssigned:  "📌",
	model.TaskEventReceived:  "🛠",
	model.TaskEventCompleted: "✅",
	model.TaskEventOverdue:   "⏰",
}

// Label turns an enum value like "working_on" into "Working On".
func Label(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// FormatEvent renders an event as a Markdown message. escape is applied to
// every user-supplied value.
func FormatEvent(event model.TaskEvent, escape func(string) string) string {
	task := event.Task

	assignee := "unknown user"
	if event.Assignee != nil {
		assignee = event.Assignee.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *Task %s*\n\n", eventIcons[event.Kind], Label(string(event.Kind)))
	fmt.Fprintf(&b, "*%s*\n", escape(task.Title))
	fmt.Fprintf(&b, "Assignee: %s\n", escape(assignee))
	fmt.Fprintf(&b, "Status: `%s`\n", Label(string(task.Status)))
	fmt.Fprintf(&b, "Priority: `%s`\n", Label(string(task.Priority)))
	fmt.Fprintf(&b, "Deadline: %s", task.Deadline.UTC().Format("2006-01-02 15:04 MST"))
	if task.Category != "" {
		fmt.Fprintf(&b, "\nCategory: %s", escape(task.Category))
	}
	return b.String()
}
