// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"todoctl/internal/service"
)

// signingKey signs the tokens issued by FakeService.
var signingKey = []byte("todoctl-test-secret")

// ErrNotFound is the detail returned for unknown tasks.
var ErrNotFound = &service.APIError{StatusCode: http.StatusNotFound, Detail: "Task not found"}

type fakeUser struct {
	id       int
	username string
	email    string
	hash     []byte
}

// Claims is the JWT payload issued on login.
type Claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// FakeService is an in-memory implementation of service.Service for testing.
// Errors it returns mirror what the REST server would send.
type FakeService struct {
	mu     sync.RWMutex
	users  map[string]*fakeUser // username -> user
	tasks  map[int][]service.Task
	nextID int
	nextUs int
	calls  map[string]int

	// LoginNoToken makes Login succeed without a token.
	LoginNoToken bool

	// TokenTTL is the lifetime of issued tokens. Zero means one hour.
	TokenTTL time.Duration

	// Error injection for testing
	RegisterErr      error
	LoginErr         error
	GetProfileErr    error
	UpdateProfileErr error
	FetchTasksErr    error
	CreateTaskErr    error
	UpdateTaskErr    error
	DeleteTaskErr    error
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		users: make(map[string]*fakeUser),
		tasks: make(map[int][]service.Task),
		calls: make(map[string]int),
	}
}

// Calls returns how many times method was invoked.
func (f *FakeService) Calls(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[method]
}

// AddUser registers a user directly and returns a valid token for it.
func (f *FakeService) AddUser(username, email, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.addUserLocked(username, email, password)
	tok, err := f.issueLocked(u)
	if err != nil {
		panic(err)
	}
	return tok
}

// AddTask appends a task for the user owning token, as the server would list it.
func (f *FakeService) AddTask(token, title, description string) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.userLocked(token)
	if err != nil {
		panic(err)
	}
	f.nextID++
	t := service.Task{ID: service.ID(strconv.Itoa(f.nextID)), Title: title, Description: description}
	f.tasks[u.id] = append(f.tasks[u.id], t)
	return t
}

// Tasks returns the stored tasks of the user owning token.
func (f *FakeService) Tasks(token string) []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	u, err := f.userLocked(token)
	if err != nil {
		return nil
	}
	out := make([]service.Task, len(f.tasks[u.id]))
	copy(out, f.tasks[u.id])
	return out
}

func (f *FakeService) addUserLocked(username, email, password string) *fakeUser {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	f.nextUs++
	u := &fakeUser{id: f.nextUs, username: username, email: email, hash: hash}
	f.users[username] = u
	return u
}

func (f *FakeService) issueLocked(u *fakeUser) (string, error) {
	ttl := f.TokenTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := Claims{
		UserID: u.id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
}

func (f *FakeService) userLocked(token string) (*fakeUser, error) {
	unauthorized := &service.APIError{StatusCode: http.StatusUnauthorized, Detail: "Invalid authentication credentials"}
	if token == "" {
		return nil, unauthorized
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, unauthorized
	}
	u, ok := f.users[claims.Subject]
	if !ok || u.id != claims.UserID {
		return nil, unauthorized
	}
	return u, nil
}

func (f *FakeService) record(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

// Register implements service.Service.
func (f *FakeService) Register(ctx context.Context, reg service.Registration) (service.Account, error) {
	f.record("Register")
	if f.RegisterErr != nil {
		return service.Account{}, f.RegisterErr
	}
	if strings.TrimSpace(reg.Username) == "" || reg.Password == "" {
		return service.Account{}, &service.APIError{StatusCode: http.StatusBadRequest, Detail: "Username and password are required"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[reg.Username]; ok {
		return service.Account{}, &service.APIError{StatusCode: http.StatusBadRequest, Detail: "Username already registered"}
	}
	u := f.addUserLocked(reg.Username, reg.Email, reg.Password)
	return service.Account{ID: service.ID(strconv.Itoa(u.id)), Username: u.username, Email: u.email}, nil
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, username, password string) (service.LoginResult, error) {
	f.record("Login")
	if f.LoginErr != nil {
		return service.LoginResult{}, f.LoginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
		return service.LoginResult{}, &service.APIError{StatusCode: http.StatusUnauthorized, Detail: "Incorrect username or password"}
	}
	if f.LoginNoToken {
		return service.LoginResult{}, nil
	}
	tok, err := f.issueLocked(u)
	if err != nil {
		return service.LoginResult{}, fmt.Errorf("sign token: %w", err)
	}
	return service.LoginResult{Token: tok}, nil
}

// GetProfile implements service.Service.
func (f *FakeService) GetProfile(ctx context.Context, token string) (service.Profile, error) {
	f.record("GetProfile")
	if f.GetProfileErr != nil {
		return service.Profile{}, f.GetProfileErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	u, err := f.userLocked(token)
	if err != nil {
		return service.Profile{}, err
	}
	return service.Profile{Username: u.username, Email: u.email}, nil
}

// UpdateProfile implements service.Service.
// The username is fixed once registered; only the email changes.
func (f *FakeService) UpdateProfile(ctx context.Context, token string, upd service.ProfileUpdate) (service.Profile, error) {
	f.record("UpdateProfile")
	if f.UpdateProfileErr != nil {
		return service.Profile{}, f.UpdateProfileErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.userLocked(token)
	if err != nil {
		return service.Profile{}, err
	}
	if upd.Email != "" {
		u.email = upd.Email
	}
	return service.Profile{Username: u.username, Email: u.email}, nil
}

// FetchTasks implements service.Service.
func (f *FakeService) FetchTasks(ctx context.Context, token string) ([]service.Task, error) {
	f.record("FetchTasks")
	if f.FetchTasksErr != nil {
		return nil, f.FetchTasksErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	u, err := f.userLocked(token)
	if err != nil {
		return nil, err
	}
	out := make([]service.Task, len(f.tasks[u.id]))
	copy(out, f.tasks[u.id])
	return out, nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, token string, fields service.TaskFields) (service.Task, error) {
	f.record("CreateTask")
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.userLocked(token)
	if err != nil {
		return service.Task{}, err
	}
	if strings.TrimSpace(fields.Title) == "" {
		return service.Task{}, &service.APIError{StatusCode: http.StatusUnprocessableEntity, Detail: "Title is required"}
	}
	f.nextID++
	t := service.Task{ID: service.ID(strconv.Itoa(f.nextID)), Title: fields.Title, Description: fields.Description}
	f.tasks[u.id] = append(f.tasks[u.id], t)
	return t, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, token string, id service.ID, fields service.TaskFields) (service.Task, error) {
	f.record("UpdateTask")
	if f.UpdateTaskErr != nil {
		return service.Task{}, f.UpdateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.userLocked(token)
	if err != nil {
		return service.Task{}, err
	}
	for i, t := range f.tasks[u.id] {
		if t.ID == id {
			t.Title = fields.Title
			t.Description = fields.Description
			f.tasks[u.id][i] = t
			return t, nil
		}
	}
	return service.Task{}, ErrNotFound
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, token string, id service.ID) error {
	f.record("DeleteTask")
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.userLocked(token)
	if err != nil {
		return err
	}
	list := f.tasks[u.id]
	for i, t := range list {
		if t.ID == id {
			f.tasks[u.id] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// StatusOf returns the HTTP status an error should be served with.
func StatusOf(err error) (int, string) {
	var apiErr *service.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, apiErr.Detail
	}
	return http.StatusInternalServerError, err.Error()
}
