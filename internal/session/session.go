// Package session owns the authentication state: token, current user,
// the loading flag and the last auth error.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"todoctl/internal/localstore"
	"todoctl/internal/service"
)

var (
	// ErrMissingToken is returned when a login succeeds without a token.
	ErrMissingToken = errors.New("Invalid token")

	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not logged in")

	// ErrClosed is returned by operations on a closed Manager.
	ErrClosed = errors.New("session closed")

	// ErrSuperseded is returned when a logout or another login replaced
	// the session while a login was in flight.
	ErrSuperseded = errors.New("session changed during login")
)

// Storage persists the token between runs.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// State is a snapshot of the session.
type State struct {
	Token   string
	User    *service.Profile
	Loading bool
	Error   string
}

// Authenticated reports whether a token is held.
func (s State) Authenticated() bool {
	return s.Token != ""
}

// Manager is the session state container. Remote calls run without the
// lock held; results are applied only if the generation they started
// under is still current.
type Manager struct {
	svc    service.Service
	store  Storage
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	gen       uint64
	closed    bool
	observers map[int]func(State)
	nextObs   int
}

// New creates a Manager. The persisted token is read by Initialize.
func New(svc service.Service, store Storage, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		svc:       svc,
		store:     store,
		logger:    logger,
		observers: make(map[int]func(State)),
	}
}

// Initialize restores the persisted token and fetches its profile in the
// background. The returned channel is closed when the session has settled.
// A failed profile fetch logs the session out.
func (m *Manager) Initialize(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	tok, ok, err := m.store.Get(localstore.TokenKey)
	if err != nil {
		m.logger.Debug("read persisted token", "err", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(done)
		return done
	}
	if !ok || tok == "" {
		m.state.Loading = false
		m.state.User = nil
		m.mu.Unlock()
		m.publish()
		close(done)
		return done
	}
	m.gen++
	gen := m.gen
	m.state.Token = tok
	m.state.Loading = true
	m.mu.Unlock()
	m.publish()

	go func() {
		defer close(done)

		p, err := m.svc.GetProfile(ctx, tok)

		m.mu.Lock()
		if m.closed || gen != m.gen {
			m.mu.Unlock()
			m.logger.Debug("discard stale profile result")
			return
		}
		if err != nil {
			m.logger.Debug("restore session failed", "err", err)
			m.clearLocked()
			m.mu.Unlock()
			m.publish()
			return
		}
		m.state.User = &p
		m.state.Loading = false
		m.mu.Unlock()
		m.logger.Debug("session restored", "user", p.DisplayName())
		m.publish()
	}()

	return done
}

// Login exchanges credentials for a token and loads the profile.
// On failure State.Error holds the message and the error is returned.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	gen, ok := m.begin()
	if !ok {
		return ErrClosed
	}

	res, err := m.svc.Login(ctx, username, password)
	if err == nil && res.Token == "" {
		err = ErrMissingToken
	}
	if err != nil {
		m.fail(gen, err, "Login failed")
		return err
	}

	if !m.apply(gen, func(s *State) {
		s.Token = res.Token
		s.User = nil
		m.persistLocked(res.Token)
	}) {
		return ErrSuperseded
	}

	p, err := m.svc.GetProfile(ctx, res.Token)
	if err != nil {
		// A token whose profile cannot be read is not a usable session.
		m.apply(gen, func(s *State) {
			m.clearLocked()
			s.Error = message(err, "Login failed")
		})
		return err
	}

	if !m.apply(gen, func(s *State) { s.User = &p; s.Loading = false }) {
		return ErrSuperseded
	}
	m.logger.Debug("logged in", "user", p.DisplayName())
	return nil
}

// Logout clears the session and the persisted token. It is idempotent.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.gen++
	m.clearLocked()
	m.mu.Unlock()
	m.logger.Debug("logged out")
	m.publish()
}

// Register creates an account. It never logs the user in.
func (m *Manager) Register(ctx context.Context, reg service.Registration) (service.Account, error) {
	gen, ok := m.beginShared()
	if !ok {
		return service.Account{}, ErrClosed
	}

	acct, err := m.svc.Register(ctx, reg)
	if err != nil {
		m.fail(gen, err, "Registration failed")
		return service.Account{}, err
	}
	m.apply(gen, func(s *State) { s.Loading = false })
	return acct, nil
}

// UpdateProfile sends upd and replaces the current user with the result.
func (m *Manager) UpdateProfile(ctx context.Context, upd service.ProfileUpdate) (service.Profile, error) {
	tok := m.Token()
	if tok == "" {
		return service.Profile{}, ErrNotAuthenticated
	}
	gen, ok := m.beginShared()
	if !ok {
		return service.Profile{}, ErrClosed
	}

	p, err := m.svc.UpdateProfile(ctx, tok, upd)
	if err != nil {
		m.fail(gen, err, "Profile update failed")
		return service.Profile{}, err
	}
	m.apply(gen, func(s *State) { s.User = &p; s.Loading = false })
	return p, nil
}

// ClearError resets the sticky error, typically when the user edits a field.
func (m *Manager) ClearError() {
	m.mu.Lock()
	if m.state.Error == "" {
		m.mu.Unlock()
		return
	}
	m.state.Error = ""
	m.mu.Unlock()
	m.publish()
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Token returns the current token, or "" when anonymous.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Token
}

// TokenSource exposes the session credential as an oauth2.TokenSource.
func (m *Manager) TokenSource() oauth2.TokenSource {
	return tokenSource{m}
}

type tokenSource struct{ m *Manager }

func (ts tokenSource) Token() (*oauth2.Token, error) {
	tok := ts.m.Token()
	if tok == "" {
		return nil, ErrNotAuthenticated
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// Subscribe registers fn to be called with every new state.
// It returns a function that removes the subscription.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.observers, id)
	}
}

// Close marks the manager dead. Results of calls still in flight are dropped.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.observers = make(map[int]func(State))
}

// begin starts an operation that replaces the session.
func (m *Manager) begin() (uint64, bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, false
	}
	m.gen++
	gen := m.gen
	m.state.Loading = true
	m.state.Error = ""
	m.mu.Unlock()
	m.publish()
	return gen, true
}

// beginShared starts an operation that keeps the current session.
func (m *Manager) beginShared() (uint64, bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, false
	}
	gen := m.gen
	m.state.Loading = true
	m.state.Error = ""
	m.mu.Unlock()
	m.publish()
	return gen, true
}

// apply runs fn on the state if gen is still current and publishes.
func (m *Manager) apply(gen uint64, fn func(*State)) bool {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return false
	}
	fn(&m.state)
	m.mu.Unlock()
	m.publish()
	return true
}

func (m *Manager) fail(gen uint64, err error, fallback string) {
	m.logger.Debug("session operation failed", "err", err)
	m.apply(gen, func(s *State) {
		s.Error = message(err, fallback)
		s.Loading = false
	})
}

// clearLocked resets the state to anonymous and forgets the persisted token.
func (m *Manager) clearLocked() {
	m.state = State{}
	m.persistLocked("")
}

func (m *Manager) persistLocked(tok string) {
	var err error
	if tok == "" {
		err = m.store.Remove(localstore.TokenKey)
	} else {
		err = m.store.Set(localstore.TokenKey, tok)
	}
	if err != nil {
		m.logger.Debug("persist token", "err", err)
	}
}

func (m *Manager) snapshotLocked() State {
	s := m.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (m *Manager) publish() {
	m.mu.Lock()
	s := m.snapshotLocked()
	obs := make([]func(State), 0, len(m.observers))
	for _, fn := range m.observers {
		obs = append(obs, fn)
	}
	m.mu.Unlock()

	for _, fn := range obs {
		fn(s)
	}
}

func message(err error, fallback string) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
