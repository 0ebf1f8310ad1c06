package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the notice styles bound to one writer's color profile.
type Styles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Title   lipgloss.Style
}

// NewStyles builds styles for w. Writers that are not terminals get plain text.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Success: r.NewStyle().Foreground(lipgloss.Color("42")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Muted:   r.NewStyle().Faint(true),
		Title:   r.NewStyle().Bold(true),
	}
}

// Notice prints a success notification line.
func Notice(w io.Writer, msg string) {
	fmt.Fprintln(w, NewStyles(w).Success.Render(msg))
}

// Error prints "error: <msg>".
func Error(w io.Writer, msg string) {
	fmt.Fprintln(w, NewStyles(w).Error.Render("error: "+msg))
}
