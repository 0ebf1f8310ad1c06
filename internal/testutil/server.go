package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"todoctl/internal/service"
)

// Server is a REST server backed by a FakeService.
type Server struct {
	*httptest.Server
	Fake *FakeService

	mu       sync.Mutex
	requests []Request
}

// Request is a recorded incoming request.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

// NewServer starts a REST server over fake and closes it when the test ends.
func NewServer(t *testing.T, fake *FakeService) *Server {
	t.Helper()

	s := &Server{Fake: fake}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Post("/register", s.register)
	r.Post("/login", s.login)
	r.Get("/profile", s.getProfile)
	r.Put("/profile", s.updateProfile)
	r.Get("/tasks", s.fetchTasks)
	r.Post("/tasks", s.createTask)
	r.Put("/tasks/{id}", s.updateTask)
	r.Delete("/tasks/{id}", s.deleteTask)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Requests returns the requests seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req service.Registration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	acct, err := s.Fake.Register(r.Context(), req)
	if err != nil {
		fail(w, err)
		return
	}
	respondJSON(w, acct, http.StatusCreated)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	res, err := s.Fake.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		fail(w, err)
		return
	}
	if res.Token == "" {
		respondJSON(w, map[string]string{}, http.StatusOK)
		return
	}
	respondJSON(w, res, http.StatusOK)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.Fake.GetProfile(r.Context(), bearer(r))
	if err != nil {
		fail(w, err)
		return
	}
	respondJSON(w, p, http.StatusOK)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	p, err := s.Fake.UpdateProfile(r.Context(), bearer(r), req)
	if err != nil {
		fail(w, err)
		return
	}
	respondJSON(w, p, http.StatusOK)
}

func (s *Server) fetchTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.Fake.FetchTasks(r.Context(), bearer(r))
	if err != nil {
		fail(w, err)
		return
	}
	respondJSON(w, map[string][]service.Task{"tasks": tasks}, http.StatusOK)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req service.TaskFields
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	t, err := s.Fake.CreateTask(r.Context(), bearer(r), req)
	if err != nil {
		fail(w, err)
		return
	}
	respondJSON(w, t, http.StatusCreated)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var req service.TaskFields
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	id := service.ID(chi.URLParam(r, "id"))
	t, err := s.Fake.UpdateTask(r.Context(), bearer(r), id, req)
	if err != nil {
		fail(w, err)
		return
	}
	respondJSON(w, t, http.StatusOK)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := service.ID(chi.URLParam(r, "id"))
	if err := s.Fake.DeleteTask(r.Context(), bearer(r), id); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func fail(w http.ResponseWriter, err error) {
	code, detail := StatusOf(err)
	respondError(w, detail, code)
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, detail string, status int) {
	respondJSON(w, map[string]string{"detail": detail}, status)
}
