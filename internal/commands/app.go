package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/output"
	"todoctl/internal/service"
	"todoctl/internal/session"
	"todoctl/internal/tasks"
)

// ErrPasswordMismatch is returned when the confirmation differs from the password.
var ErrPasswordMismatch = errors.New("Passwords do not match")

// notLoggedIn is printed when a command needs a session and none is stored.
const notLoggedIn = "not logged in (run: todoctl login)"

// noticeBuffer keeps the notifications emitted while a command runs.
type noticeBuffer struct {
	mu   sync.Mutex
	msgs []string
}

func (n *noticeBuffer) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

// Last returns the most recent notification, or "" when none.
func (n *noticeBuffer) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.msgs) == 0 {
		return ""
	}
	return n.msgs[len(n.msgs)-1]
}

// newSession builds a session manager over the stored token.
func newSession(cfg *config.Config, svc service.Service) *session.Manager {
	return session.New(svc, cfg.Storage(), cfg.Logger)
}

// restoreSession runs the startup handshake and waits for it to settle.
func restoreSession(ctx context.Context, cfg *config.Config, svc service.Service) *session.Manager {
	sess := newSession(cfg, svc)
	select {
	case <-sess.Initialize(ctx):
	case <-ctx.Done():
	}
	return sess
}

// requireSession restores the session and reports when it is not usable.
func requireSession(ctx context.Context, cfg *config.Config, svc service.Service, errOut io.Writer) (*session.Manager, int, bool) {
	sess := restoreSession(ctx, cfg, svc)
	if s := sess.Snapshot(); !s.Authenticated() || s.User == nil {
		output.Error(errOut, notLoggedIn)
		return nil, exitcode.AuthError, false
	}
	return sess, exitcode.Success, true
}

// newTaskStore restores the session and builds a task store over it.
func newTaskStore(ctx context.Context, cfg *config.Config, svc service.Service, confirm tasks.ConfirmFunc, errOut io.Writer) (*tasks.Store, *noticeBuffer, int, bool) {
	sess, code, ok := requireSession(ctx, cfg, svc, errOut)
	if !ok {
		return nil, nil, code, false
	}
	notes := &noticeBuffer{}
	store := tasks.New(svc, sess.TokenSource(), notes, confirm)
	store.SetLogger(cfg.Logger)
	return store, notes, exitcode.Success, true
}

// loadTasks is newTaskStore followed by a fetch of the task list.
func loadTasks(ctx context.Context, cfg *config.Config, svc service.Service, confirm tasks.ConfirmFunc, errOut io.Writer) (*tasks.Store, *noticeBuffer, int, bool) {
	store, notes, code, ok := newTaskStore(ctx, cfg, svc, confirm, errOut)
	if !ok {
		return nil, nil, code, false
	}
	if err := store.Load(ctx); err != nil {
		return nil, nil, reportFailure(errOut, err, notes.Last()), false
	}
	return store, notes, exitcode.Success, true
}

// reportFailure prints msg (or err when msg is empty) and maps err to an exit code.
func reportFailure(errOut io.Writer, err error, msg string) int {
	if msg == "" {
		msg = err.Error()
	}
	output.Error(errOut, msg)
	return exitCodeFor(err)
}

// reportSuccess prints a notification unless quiet.
func reportSuccess(cfg *config.Config, out io.Writer, msg string) {
	if !cfg.Quiet && msg != "" {
		output.Notice(out, msg)
	}
}

// exitCodeFor maps an error to an exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, tasks.ErrTitleRequired),
		errors.Is(err, tasks.ErrTitleTooLong),
		errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrTaskRefRequired),
		isUsageError(err):
		return exitcode.UserError
	case errors.Is(err, session.ErrNotAuthenticated),
		errors.Is(err, session.ErrMissingToken),
		service.IsAuthError(err):
		return exitcode.AuthError
	default:
		return exitcode.BackendError
	}
}

// usageError is a bad argument or missing input.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func isUsageError(err error) bool {
	var ue *usageError
	return errors.As(err, &ue)
}

// prompter reads answers line by line from an input stream.
type prompter struct {
	r   *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{r: bufio.NewReader(in), out: out}
}

// ask prints question and returns the trimmed answer line.
func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", usagef("%s required", strings.TrimSuffix(strings.TrimSpace(question), ":"))
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func (p *prompter) confirm(question string) bool {
	answer, err := p.ask(question + " [y/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
