package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"todoctl/internal/localstore"
	"todoctl/internal/notify"
	"todoctl/internal/output"
	"todoctl/internal/service"
	"todoctl/internal/session"
	"todoctl/internal/tasks"
	"todoctl/internal/testutil"
)

type testEnv struct {
	model *Model
	fake  *testutil.FakeService
	token string
	sess  *session.Manager
}

func newTestEnv(t *testing.T, seed ...string) *testEnv {
	t.Helper()
	fake := testutil.NewFakeService()
	tok := fake.AddUser("alice", "alice@example.com", "secret")
	for _, title := range seed {
		fake.AddTask(tok, title, "")
	}

	store := localstore.Open(filepath.Join(t.TempDir(), "storage.json"))
	if err := store.Set(localstore.TokenKey, tok); err != nil {
		t.Fatalf("set token: %v", err)
	}
	sess := session.New(fake, store, nil)
	<-sess.Initialize(context.Background())
	if !sess.Snapshot().Authenticated() {
		t.Fatal("expected authenticated session")
	}

	notes := notify.New(time.Hour)
	m := New(context.Background(), sess, fake, notes)
	t.Cleanup(m.Close)
	return &testEnv{model: m, fake: fake, token: tok, sess: sess}
}

// runCommands executes cmd and feeds every resulting message back into the
// model until no command is left.
func runCommands(t *testing.T, m *Model, cmd tea.Cmd) *Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatal("command loop did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		switch msg := msg.(type) {
		case nil, tea.QuitMsg:
			continue
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		}
		model, c := m.Update(msg)
		var ok bool
		m, ok = model.(*Model)
		if !ok {
			t.Fatalf("unexpected model type: %T", model)
		}
		queue = append(queue, c)
	}
	return m
}

func press(t *testing.T, m *Model, keys ...tea.KeyMsg) *Model {
	t.Helper()
	for _, k := range keys {
		model, cmd := m.Update(k)
		m = runCommands(t, model.(*Model), cmd)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m *Model, s string) *Model {
	t.Helper()
	for _, r := range s {
		m = press(t, m, runes(string(r)))
	}
	return m
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

func TestModel_InitLoadsTasks(t *testing.T) {
	env := newTestEnv(t, "Buy milk", "Call mom")
	m := env.model

	if !strings.Contains(m.View(), output.LoadingText) {
		t.Error("expected loading text before the first fetch")
	}

	m = runCommands(t, m, m.Init())
	view := m.View()
	for _, want := range []string{"Task Dashboard", "alice", "Buy milk", "Call mom", "2 tasks"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_EmptyList(t *testing.T) {
	env := newTestEnv(t)
	m := runCommands(t, env.model, env.model.Init())

	if !strings.Contains(m.View(), output.EmptyText) {
		t.Errorf("expected empty text, got:\n%s", m.View())
	}
}

func TestModel_LoadFailureShowsNotice(t *testing.T) {
	env := newTestEnv(t)
	env.fake.FetchTasksErr = &service.APIError{StatusCode: 500, Detail: "boom"}
	m := runCommands(t, env.model, env.model.Init())

	if !strings.Contains(m.View(), "Failed to load tasks: boom") {
		t.Errorf("expected failure notice, got:\n%s", m.View())
	}
}

func TestModel_CreateTask(t *testing.T) {
	env := newTestEnv(t, "Old")
	m := runCommands(t, env.model, env.model.Init())

	m = press(t, m, runes("a"))
	if m.focus != focusTitle {
		t.Fatalf("expected title focus, got %v", m.focus)
	}
	m = typeText(t, m, "New task")
	m = press(t, m, tab)
	m = typeText(t, m, "details")
	m = press(t, m, enter)

	list := m.Store().Tasks()
	if len(list) != 2 || list[0].Title != "New task" || list[0].Description != "details" {
		t.Fatalf("expected new task first, got %+v", list)
	}
	if m.focus != focusList {
		t.Errorf("expected list focus after save, got %v", m.focus)
	}
	if m.title.Value() != "" || m.desc.Value() != "" {
		t.Errorf("expected cleared inputs, got %q %q", m.title.Value(), m.desc.Value())
	}
	if !strings.Contains(m.View(), "Task created!") {
		t.Errorf("expected created notice, got:\n%s", m.View())
	}
}

func TestModel_CreateEmptyTitleRejected(t *testing.T) {
	env := newTestEnv(t)
	m := runCommands(t, env.model, env.model.Init())

	m = press(t, m, runes("a"), enter)

	if env.fake.Calls("CreateTask") != 0 {
		t.Error("expected no remote call for an empty title")
	}
	if m.focus != focusTitle {
		t.Errorf("expected form to keep focus, got %v", m.focus)
	}
	if !strings.Contains(m.View(), tasks.ErrTitleRequired.Error()) {
		t.Errorf("expected validation notice, got:\n%s", m.View())
	}
}

func TestModel_EditTask(t *testing.T) {
	env := newTestEnv(t, "First", "Second")
	m := runCommands(t, env.model, env.model.Init())

	m = press(t, m, down, runes("e"))
	if id, editing := m.Store().Editing(); !editing || id != "2" {
		t.Fatalf("expected editing task 2, got %q %v", id, editing)
	}
	if m.title.Value() != "Second" {
		t.Fatalf("expected form prefilled, got %q", m.title.Value())
	}
	if !strings.Contains(m.View(), "Edit task") {
		t.Error("expected edit form title")
	}

	m = typeText(t, m, "!")
	m = press(t, m, enter)

	list := m.Store().Tasks()
	if list[1].Title != "Second!" {
		t.Errorf("expected task updated in place, got %+v", list)
	}
	if _, editing := m.Store().Editing(); editing {
		t.Error("expected edit mode cleared")
	}
}

func TestModel_EditCancel(t *testing.T) {
	env := newTestEnv(t, "First")
	m := runCommands(t, env.model, env.model.Init())

	m = press(t, m, runes("e"), esc)

	if _, editing := m.Store().Editing(); editing {
		t.Error("expected edit mode cleared")
	}
	if m.title.Value() != "" {
		t.Errorf("expected form cleared, got %q", m.title.Value())
	}
	if env.fake.Calls("UpdateTask") != 0 {
		t.Error("expected no update call")
	}
}

func TestModel_DeleteConfirmed(t *testing.T) {
	env := newTestEnv(t, "First", "Second")
	m := runCommands(t, env.model, env.model.Init())

	m = press(t, m, runes("d"))
	if m.pending == nil || m.pending.Title != "First" {
		t.Fatalf("expected pending delete of First, got %+v", m.pending)
	}
	if !strings.Contains(m.View(), tasks.ConfirmMessage) {
		t.Errorf("expected confirm dialog, got:\n%s", m.View())
	}

	m = press(t, m, runes("y"))

	list := m.Store().Tasks()
	if len(list) != 1 || list[0].Title != "Second" {
		t.Fatalf("expected First removed, got %+v", list)
	}
	if got := env.fake.Tasks(env.token); len(got) != 1 {
		t.Errorf("expected server to have 1 task, got %d", len(got))
	}
	if !strings.Contains(m.View(), "Task deleted.") {
		t.Errorf("expected deleted notice, got:\n%s", m.View())
	}
}

func TestModel_DeleteDeclined(t *testing.T) {
	env := newTestEnv(t, "First")
	m := runCommands(t, env.model, env.model.Init())

	m = press(t, m, runes("d"), runes("n"))

	if m.pending != nil {
		t.Error("expected dialog closed")
	}
	if env.fake.Calls("DeleteTask") != 0 {
		t.Error("expected no delete call")
	}
	if len(m.Store().Tasks()) != 1 {
		t.Error("expected task kept")
	}
}

func TestModel_DeleteApprovalIsSingleUse(t *testing.T) {
	env := newTestEnv(t, "First")
	m := runCommands(t, env.model, env.model.Init())

	m.approve("1")
	if !m.consumeApproval(service.Task{ID: "1"}) {
		t.Fatal("expected approval")
	}
	if m.consumeApproval(service.Task{ID: "1"}) {
		t.Error("expected approval to be consumed")
	}
}

func TestModel_Filter(t *testing.T) {
	env := newTestEnv(t, "Buy milk", "Call mom")
	m := runCommands(t, env.model, env.model.Init())

	m = press(t, m, runes("/"))
	m = typeText(t, m, "MILK")
	m = press(t, m, enter)

	view := m.View()
	if !strings.Contains(view, "Buy milk") || strings.Contains(view, "Call mom") {
		t.Errorf("expected only matching task, got:\n%s", view)
	}
	if !strings.Contains(view, "1 task") {
		t.Errorf("expected count of visible tasks, got:\n%s", view)
	}

	m = press(t, m, runes("/"))
	m = typeText(t, m, "zzz")
	if !strings.Contains(m.View(), output.NoMatchText) {
		t.Errorf("expected no-match text, got:\n%s", m.View())
	}
}

func TestModel_LogoutQuits(t *testing.T) {
	env := newTestEnv(t)
	m := runCommands(t, env.model, env.model.Init())

	model, cmd := m.Update(runes("L"))
	m = model.(*Model)
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit message")
	}
	if !m.LoggedOut() {
		t.Error("expected logged out flag")
	}
	if env.sess.Token() != "" {
		t.Error("expected session token cleared")
	}
}

func TestModel_QuitKey(t *testing.T) {
	env := newTestEnv(t)
	_, cmd := env.model.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit message")
	}
}

func TestModel_UpdateFailureKeepsForm(t *testing.T) {
	env := newTestEnv(t, "First")
	env.fake.UpdateTaskErr = errors.New("offline")
	m := runCommands(t, env.model, env.model.Init())

	m = press(t, m, runes("e"))
	m = typeText(t, m, "x")
	m = press(t, m, enter)

	if m.Store().Tasks()[0].Title != "First" {
		t.Error("expected task unchanged")
	}
	if m.title.Value() != "Firstx" {
		t.Errorf("expected form kept, got %q", m.title.Value())
	}
	if !strings.Contains(m.View(), "Edit failed: offline") {
		t.Errorf("expected failure notice, got:\n%s", m.View())
	}
}

func TestModel_SubmitIgnoredWhileSaving(t *testing.T) {
	env := newTestEnv(t)
	m := runCommands(t, env.model, env.model.Init())

	m = press(t, m, runes("a"))
	m = typeText(t, m, "Once")

	model, first := m.Update(enter)
	m = model.(*Model)
	if first == nil {
		t.Fatal("expected a save command")
	}
	if !strings.Contains(m.View(), "Saving...") {
		t.Errorf("expected saving hint, got:\n%s", m.View())
	}

	model, second := m.Update(enter)
	m = model.(*Model)
	if second != nil {
		t.Error("expected second enter to be ignored while saving")
	}

	m = runCommands(t, m, first)
	if got := env.fake.Calls("CreateTask"); got != 1 {
		t.Errorf("expected one create call, got %d", got)
	}
	if len(m.Store().Tasks()) != 1 {
		t.Errorf("expected one task, got %+v", m.Store().Tasks())
	}

	// Saving again works once the first call is done.
	m = press(t, m, runes("a"))
	m = typeText(t, m, "Twice")
	m = press(t, m, enter)
	if got := env.fake.Calls("CreateTask"); got != 2 {
		t.Errorf("expected a second create after completion, got %d", got)
	}
}

func TestModel_LogoutCutsOffStore(t *testing.T) {
	env := newTestEnv(t, "First")
	m := runCommands(t, env.model, env.model.Init())

	env.sess.Logout()
	if err := m.Store().Load(context.Background()); !errors.Is(err, session.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated after logout, got %v", err)
	}
	if got := env.fake.Calls("FetchTasks"); got != 1 {
		t.Errorf("expected no fetch after logout, got %d calls", got)
	}
}
