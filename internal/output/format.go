// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"todoctl/internal/service"
)

const (
	// LoadingText is shown while tasks are being fetched.
	LoadingText = "Loading tasks..."

	// EmptyText is shown when the user has no tasks.
	EmptyText = "No tasks found. Start by creating a task."

	// NoMatchText is shown when a filter matches nothing.
	NoMatchText = "No tasks match the filter."
)

// FormatTask formats a task line, followed by its description when present.
// Format: "{N:>4}  {TITLE}\n" then "      {DESCRIPTION}\n"
func FormatTask(w io.Writer, num int, task service.Task) {
	fmt.Fprintf(w, "%4d  %s\n", num, normalizeTitle(task.Title))
	if desc := normalizeDescription(task.Description); desc != "" {
		fmt.Fprintf(w, "      %s\n", desc)
	}
}

// FormatTasks formats a numbered task list followed by the count line.
// An empty list prints EmptyText, or NoMatchText when filtered is set.
func FormatTasks(w io.Writer, tasks []service.Task, filtered bool) {
	if len(tasks) == 0 {
		if filtered {
			fmt.Fprintln(w, NoMatchText)
		} else {
			fmt.Fprintln(w, EmptyText)
		}
		return
	}
	for i, t := range tasks {
		FormatTask(w, i+1, t)
	}
	fmt.Fprintln(w, CountLabel(len(tasks)))
}

// CountLabel returns "1 task" or "N tasks".
func CountLabel(n int) string {
	if n == 1 {
		return "1 task"
	}
	return fmt.Sprintf("%d tasks", n)
}

// FormatProfile formats the account fields.
func FormatProfile(w io.Writer, p service.Profile) {
	fmt.Fprintf(w, "username: %s\n", orNone(p.Username))
	fmt.Fprintf(w, "email:    %s\n", orNone(p.Email))
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = flatten(title)
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

func normalizeDescription(desc string) string {
	return strings.TrimSpace(flatten(desc))
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
