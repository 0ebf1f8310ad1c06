// Package tasks holds the dashboard's task collection and its edit form.
//
// The collection is fetched once with Load and then mutated locally after
// each successful create, update or delete. Every outcome is reported to the
// Notifier; the returned errors only tell non-interactive callers what
// happened.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/oauth2"

	"todoctl/internal/service"
	"todoctl/internal/session"
)

// MaxTitleLength is the longest accepted title, in characters.
const MaxTitleLength = 100

// ConfirmMessage is the question asked before a task is deleted.
const ConfirmMessage = "Are you sure you want to delete this task? This cannot be undone."

var (
	// ErrTitleRequired is returned when a task is submitted without a title.
	ErrTitleRequired = errors.New("Task title required")

	// ErrTitleTooLong is returned for titles over MaxTitleLength characters.
	ErrTitleTooLong = fmt.Errorf("Task title must be at most %d characters", MaxTitleLength)

	// ErrCanceled is returned when the delete confirmation is declined.
	ErrCanceled = errors.New("delete canceled")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("task store closed")
)

// Notifier shows a transient message.
type Notifier interface {
	Notify(msg string)
}

// ConfirmFunc asks the user to approve deleting t.
type ConfirmFunc func(t service.Task) bool

// Snapshot is a copy of the store state.
type Snapshot struct {
	Tasks   []service.Task
	Form    service.TaskFields
	Editing bool
	EditID  service.ID
	Loading bool
}

// Store is the task state container.
type Store struct {
	svc     service.Service
	tokens  oauth2.TokenSource
	notify  Notifier
	confirm ConfirmFunc
	logger  *slog.Logger

	mu        sync.Mutex
	tasks     []service.Task
	form      service.TaskFields
	editing   bool
	editID    service.ID
	loading   bool
	closed    bool
	observers map[int]func(Snapshot)
	nextObs   int
}

// New creates a Store. Credentials come from tokens, usually
// session.Manager.TokenSource. A nil confirm approves every delete.
func New(svc service.Service, tokens oauth2.TokenSource, notifier Notifier, confirm ConfirmFunc) *Store {
	if confirm == nil {
		confirm = func(service.Task) bool { return true }
	}
	return &Store{
		svc:       svc,
		tokens:    tokens,
		notify:    notifier,
		confirm:   confirm,
		logger:    slog.New(slog.DiscardHandler),
		loading:   true,
		observers: make(map[int]func(Snapshot)),
	}
}

// SetLogger sets the debug logger.
func (s *Store) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Load fetches the full collection and replaces the local one.
func (s *Store) Load(ctx context.Context) error {
	tok, err := s.bearer()
	if err != nil {
		s.setLoading(false)
		return err
	}
	s.setLoading(true)

	list, err := s.svc.FetchTasks(ctx, tok)
	if err != nil {
		s.report("Failed to load tasks: " + err.Error())
		s.setLoading(false)
		return err
	}
	if list == nil {
		list = []service.Task{}
	}

	if !s.apply(func() {
		s.tasks = list
		s.loading = false
	}) {
		return ErrClosed
	}
	s.logger.Debug("tasks loaded", "count", len(list))
	return nil
}

// Create validates fields and creates a task. The new task is prepended and
// the form is cleared.
func (s *Store) Create(ctx context.Context, fields service.TaskFields) (service.Task, error) {
	if err := Validate(fields); err != nil {
		s.report(err.Error())
		return service.Task{}, err
	}
	tok, err := s.bearer()
	if err != nil {
		return service.Task{}, err
	}

	t, err := s.svc.CreateTask(ctx, tok, fields)
	if err != nil {
		s.report("Task not created: " + err.Error())
		return service.Task{}, err
	}

	if !s.apply(func() {
		s.tasks = append([]service.Task{t}, s.tasks...)
		s.form = service.TaskFields{}
	}) {
		return t, ErrClosed
	}
	s.report("Task created!")
	return t, nil
}

// Update replaces the fields of task id. On success the entry carrying the
// returned task's id is replaced in place and edit mode ends.
func (s *Store) Update(ctx context.Context, id service.ID, fields service.TaskFields) (service.Task, error) {
	if err := Validate(fields); err != nil {
		s.report(err.Error())
		return service.Task{}, err
	}
	tok, err := s.bearer()
	if err != nil {
		return service.Task{}, err
	}

	t, err := s.svc.UpdateTask(ctx, tok, id, fields)
	if err != nil {
		s.report("Edit failed: " + err.Error())
		return service.Task{}, err
	}
	if t.ID == "" {
		t.ID = id
	}

	if !s.apply(func() {
		next := make([]service.Task, len(s.tasks))
		for i, cur := range s.tasks {
			if cur.ID == t.ID {
				next[i] = t
			} else {
				next[i] = cur
			}
		}
		s.tasks = next
		s.editing = false
		s.editID = ""
		s.form = service.TaskFields{}
	}) {
		return t, ErrClosed
	}
	s.report("Task updated!")
	return t, nil
}

// Delete removes task id after the confirm function approves.
func (s *Store) Delete(ctx context.Context, id service.ID) error {
	target := service.Task{ID: id}
	if t, ok := s.find(id); ok {
		target = t
	}
	if !s.confirm(target) {
		return ErrCanceled
	}
	tok, err := s.bearer()
	if err != nil {
		return err
	}

	if err := s.svc.DeleteTask(ctx, tok, id); err != nil {
		s.report("Delete failed: " + err.Error())
		return err
	}

	if !s.apply(func() {
		next := make([]service.Task, 0, len(s.tasks))
		for _, cur := range s.tasks {
			if cur.ID != id {
				next = append(next, cur)
			}
		}
		s.tasks = next
	}) {
		return ErrClosed
	}
	s.report("Task deleted.")
	return nil
}

// Filter returns the tasks whose title or description contains text,
// ignoring case. An empty text returns every task.
func (s *Store) Filter(text string) []service.Task {
	s.mu.Lock()
	all := s.tasks
	s.mu.Unlock()

	if text == "" {
		return cloneTasks(all)
	}
	needle := strings.ToLower(text)
	var out []service.Task
	for _, t := range all {
		if strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Description), needle) {
			out = append(out, t)
		}
	}
	return out
}

// Tasks returns a copy of the collection.
func (s *Store) Tasks() []service.Task {
	return s.Filter("")
}

// Loading reports whether a load is in progress or has not run yet.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Form returns the shared create/edit form.
func (s *Store) Form() service.TaskFields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// SetForm replaces the form contents.
func (s *Store) SetForm(f service.TaskFields) {
	s.apply(func() { s.form = f })
}

// BeginEdit enters edit mode for t and fills the form with its fields.
func (s *Store) BeginEdit(t service.Task) {
	s.apply(func() {
		s.editing = true
		s.editID = t.ID
		s.form = service.TaskFields{Title: t.Title, Description: t.Description}
	})
}

// CancelEdit leaves edit mode and discards the form.
func (s *Store) CancelEdit() {
	s.apply(func() {
		s.editing = false
		s.editID = ""
		s.form = service.TaskFields{}
	})
}

// Editing returns the id being edited, if any.
func (s *Store) Editing() (service.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editID, s.editing
}

// Submit sends the form: an update when editing, a create otherwise.
func (s *Store) Submit(ctx context.Context) (service.Task, error) {
	s.mu.Lock()
	form, editing, id := s.form, s.editing, s.editID
	s.mu.Unlock()

	if editing {
		return s.Update(ctx, id, form)
	}
	return s.Create(ctx, form)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called after every state change.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Close marks the store dead. Results of calls still in flight are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.observers = make(map[int]func(Snapshot))
}

// bearer returns the access token the next call is made with.
func (s *Store) bearer() (string, error) {
	t, err := s.tokens.Token()
	if err != nil {
		return "", err
	}
	if t == nil || t.AccessToken == "" {
		return "", session.ErrNotAuthenticated
	}
	return t.AccessToken, nil
}

func (s *Store) find(id service.ID) (service.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

func (s *Store) setLoading(v bool) {
	s.apply(func() { s.loading = v })
}

// apply mutates the state under the lock unless the store is closed,
// then publishes the new snapshot.
func (s *Store) apply(fn func()) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	fn()
	snap := s.snapshotLocked()
	obs := make([]func(Snapshot), 0, len(s.observers))
	for _, o := range s.observers {
		obs = append(obs, o)
	}
	s.mu.Unlock()

	for _, o := range obs {
		o(snap)
	}
	return true
}

func (s *Store) report(msg string) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed || s.notify == nil {
		return
	}
	s.notify.Notify(msg)
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Tasks:   cloneTasks(s.tasks),
		Form:    s.form,
		Editing: s.editing,
		EditID:  s.editID,
		Loading: s.loading,
	}
}

// Validate checks the title rules enforced before any remote call.
func Validate(f service.TaskFields) error {
	if strings.TrimSpace(f.Title) == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(f.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func cloneTasks(in []service.Task) []service.Task {
	out := make([]service.Task, len(in))
	copy(out, in)
	return out
}
