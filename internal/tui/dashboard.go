// Package tui implements the interactive task dashboard.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"todoctl/internal/notify"
	"todoctl/internal/output"
	"todoctl/internal/service"
	"todoctl/internal/session"
	"todoctl/internal/tasks"
)

type focusArea int

const (
	focusList focusArea = iota
	focusFilter
	focusTitle
	focusDescription
)

// loadedMsg reports the end of the initial fetch.
type loadedMsg struct{ err error }

// opDoneMsg reports the end of a create, update or delete.
type opDoneMsg struct {
	op  string
	err error
}

// noticeMsg signals that the visible notification changed.
type noticeMsg struct{}

// Model is the dashboard's bubbletea model.
type Model struct {
	ctx   context.Context
	sess  *session.Manager
	store *tasks.Store
	notes *notify.Center
	keys  keyMap

	filter textinput.Model
	title  textinput.Model
	desc   textinput.Model
	focus  focusArea
	cursor int

	// pending is the task awaiting delete confirmation.
	pending *service.Task

	// busy is set while a create, update or delete is in flight.
	busy bool

	approvedMu sync.Mutex
	approved   map[service.ID]bool

	width     int
	loggedOut bool
}

// New builds a dashboard over an authenticated session.
func New(ctx context.Context, sess *session.Manager, svc service.Service, notes *notify.Center) *Model {
	m := &Model{
		ctx:      ctx,
		sess:     sess,
		notes:    notes,
		keys:     defaultKeys(),
		approved: make(map[service.ID]bool),
		filter:   newInput("/ ", "filter tasks...", 0),
		title:    newInput("Title: ", "What needs doing?", tasks.MaxTitleLength),
		desc:     newInput("Description: ", "optional", 0),
	}
	m.store = tasks.New(svc, sess.TokenSource(), notes, m.consumeApproval)
	return m
}

func newInput(prompt, placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// SetLogger sets the debug logger used by the task store.
func (m *Model) SetLogger(l *slog.Logger) {
	m.store.SetLogger(l)
}

// Store exposes the task store (for testing).
func (m *Model) Store() *tasks.Store {
	return m.store
}

// LoggedOut reports whether the user logged out from the dashboard.
func (m *Model) LoggedOut() bool {
	return m.loggedOut
}

// consumeApproval is the store's confirm function. The dialog records the
// answer before Delete runs; each approval is used once.
func (m *Model) consumeApproval(t service.Task) bool {
	m.approvedMu.Lock()
	defer m.approvedMu.Unlock()
	ok := m.approved[t.ID]
	delete(m.approved, t.ID)
	return ok
}

func (m *Model) approve(id service.ID) {
	m.approvedMu.Lock()
	defer m.approvedMu.Unlock()
	m.approved[id] = true
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m *Model) loadCmd() tea.Cmd {
	store, ctx := m.store, m.ctx
	return func() tea.Msg {
		return loadedMsg{err: store.Load(ctx)}
	}
}

func (m *Model) submitCmd() tea.Cmd {
	store, ctx := m.store, m.ctx
	op := "create"
	if _, editing := store.Editing(); editing {
		op = "update"
	}
	return func() tea.Msg {
		_, err := store.Submit(ctx)
		return opDoneMsg{op: op, err: err}
	}
}

func (m *Model) deleteCmd(id service.ID) tea.Cmd {
	store, ctx := m.store, m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: "delete", err: store.Delete(ctx, id)}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case loadedMsg, noticeMsg:
		m.clampCursor()
		return m, nil
	case opDoneMsg:
		m.busy = false
		if msg.err == nil && msg.op != "delete" {
			m.syncForm()
			m.setFocus(focusList)
		}
		m.clampCursor()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.pending != nil {
		return m.handleConfirmKey(msg)
	}

	switch m.focus {
	case focusFilter:
		switch {
		case key.Matches(msg, m.keys.Submit), key.Matches(msg, m.keys.Cancel):
			m.setFocus(focusList)
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.cursor = 0
		return m, cmd

	case focusTitle, focusDescription:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.store.CancelEdit()
			m.syncForm()
			m.setFocus(focusList)
			return m, nil
		case key.Matches(msg, m.keys.Next):
			if m.focus == focusTitle {
				m.setFocus(focusDescription)
			} else {
				m.setFocus(focusTitle)
			}
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			if m.busy {
				return m, nil
			}
			m.store.SetForm(m.formFields())
			m.busy = true
			return m, m.submitCmd()
		}
		m.sess.ClearError()
		var cmd tea.Cmd
		if m.focus == focusTitle {
			m.title, cmd = m.title.Update(msg)
		} else {
			m.desc, cmd = m.desc.Update(msg)
		}
		m.store.SetForm(m.formFields())
		return m, cmd
	}

	visible := m.visible()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(visible)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Filter):
		m.setFocus(focusFilter)
	case key.Matches(msg, m.keys.New):
		m.store.CancelEdit()
		m.syncForm()
		m.setFocus(focusTitle)
	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.selected(visible); ok {
			m.store.BeginEdit(t)
			m.syncForm()
			m.setFocus(focusTitle)
		}
	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.selected(visible); ok {
			m.pending = &t
		}
	case key.Matches(msg, m.keys.Logout):
		m.sess.Logout()
		m.loggedOut = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Yes):
		if m.busy {
			return m, nil
		}
		id := m.pending.ID
		m.busy = true
		m.pending = nil
		m.approve(id)
		return m, m.deleteCmd(id)
	case key.Matches(msg, m.keys.No):
		m.pending = nil
	}
	return m, nil
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	m.filter.Blur()
	m.title.Blur()
	m.desc.Blur()
	switch f {
	case focusFilter:
		m.filter.Focus()
	case focusTitle:
		m.title.Focus()
	case focusDescription:
		m.desc.Focus()
	}
}

// syncForm copies the store's form into the inputs.
func (m *Model) syncForm() {
	f := m.store.Form()
	m.title.SetValue(f.Title)
	m.title.CursorEnd()
	m.desc.SetValue(f.Description)
	m.desc.CursorEnd()
}

func (m *Model) formFields() service.TaskFields {
	return service.TaskFields{Title: m.title.Value(), Description: m.desc.Value()}
}

func (m *Model) visible() []service.Task {
	return m.store.Filter(m.filter.Value())
}

func (m *Model) selected(visible []service.Task) (service.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(visible) {
		return service.Task{}, false
	}
	return visible[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	header := titleStyle.Render("Task Dashboard")
	if u := m.sess.Snapshot().User; u != nil {
		header += "  " + accentStyle.Render(u.DisplayName())
	}
	b.WriteString(header + "\n")

	if msg := m.notes.Current(); msg != "" {
		b.WriteString(noticeStyle.Render(msg) + "\n")
	}
	if e := m.sess.Snapshot().Error; e != "" {
		b.WriteString(errorStyle.Render(e) + "\n")
	}
	b.WriteString("\n")

	formTitle := "New task"
	if _, editing := m.store.Editing(); editing {
		formTitle = "Edit task"
	}
	form := titleStyle.Render(formTitle) + "\n" + m.title.View() + "\n" + m.desc.View()
	b.WriteString(boxStyle.Render(form) + "\n")
	if m.busy {
		b.WriteString(mutedStyle.Render("Saving...") + "\n")
	}

	b.WriteString(m.filter.View() + "\n\n")
	b.WriteString(m.listView())

	if m.pending != nil {
		q := fmt.Sprintf("Delete %q?\n%s\n%s", m.pending.Title, tasks.ConfirmMessage, mutedStyle.Render("y/n"))
		b.WriteString("\n" + dialogStyle.Render(q) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render(m.helpLine()))
	return b.String()
}

func (m *Model) listView() string {
	if m.store.Loading() {
		return mutedStyle.Render(output.LoadingText) + "\n"
	}
	visible := m.visible()
	if len(visible) == 0 {
		if m.filter.Value() != "" {
			return mutedStyle.Render(output.NoMatchText) + "\n"
		}
		return mutedStyle.Render(output.EmptyText) + "\n"
	}

	var b strings.Builder
	b.WriteString(mutedStyle.Render(output.CountLabel(len(visible))) + "\n")
	for i, t := range visible {
		prefix := "  "
		line := t.Title
		if i == m.cursor && m.focus == focusList {
			prefix = selectedStyle.Render("> ")
			line = lipgloss.NewStyle().Bold(true).Render(line)
		}
		b.WriteString(prefix + line + "\n")
		if t.Description != "" {
			b.WriteString("    " + mutedStyle.Render(t.Description) + "\n")
		}
	}
	return b.String()
}

func (m *Model) helpLine() string {
	bindings := m.keys.listHelp()
	if m.focus == focusTitle || m.focus == focusDescription {
		bindings = m.keys.formHelp()
	}
	parts := make([]string, 0, len(bindings))
	for _, k := range bindings {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// Close releases the store and notification timer.
func (m *Model) Close() {
	m.store.Close()
	m.notes.Close()
}

// Run starts the dashboard and blocks until the user quits.
// It reports whether the user logged out.
func Run(ctx context.Context, sess *session.Manager, svc service.Service, notes *notify.Center, logger *slog.Logger) (bool, error) {
	m := New(ctx, sess, svc, notes)
	m.SetLogger(logger)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := notes.Subscribe(func(string) { p.Send(noticeMsg{}) })
	defer unsubscribe()

	if _, err := p.Run(); err != nil {
		return false, err
	}
	return m.LoggedOut(), nil
}
