// Package rest implements the service.Service interface over the to-do REST API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"todoctl/internal/config"
	"todoctl/internal/service"
)

// APITimeout is the timeout for API calls when the config leaves it unset.
const APITimeout = config.DefaultRequestTimeout

// Client implements service.Service against a REST server.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a client for cfg.BaseURL.
func New(cfg *config.Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = config.DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url: %s", cfg.BaseURL)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = APITimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL: base,
		http:    &http.Client{},
		timeout: timeout,
		logger:  logger,
	}, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		timeout: APITimeout,
		logger:  slog.New(slog.DiscardHandler),
	}
}

// Register implements service.Service.
func (c *Client) Register(ctx context.Context, reg service.Registration) (service.Account, error) {
	var acct service.Account
	err := c.do(ctx, http.MethodPost, "/register", "", reg, &acct)
	return acct, err
}

// Login implements service.Service.
func (c *Client) Login(ctx context.Context, username, password string) (service.LoginResult, error) {
	body := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{username, password}

	var res service.LoginResult
	err := c.do(ctx, http.MethodPost, "/login", "", body, &res)
	return res, err
}

// GetProfile implements service.Service.
func (c *Client) GetProfile(ctx context.Context, token string) (service.Profile, error) {
	var p service.Profile
	err := c.do(ctx, http.MethodGet, "/profile", token, nil, &p)
	return p, err
}

// UpdateProfile implements service.Service.
func (c *Client) UpdateProfile(ctx context.Context, token string, upd service.ProfileUpdate) (service.Profile, error) {
	var p service.Profile
	err := c.do(ctx, http.MethodPut, "/profile", token, upd, &p)
	return p, err
}

// FetchTasks implements service.Service.
// A response without a tasks field yields an empty list.
func (c *Client) FetchTasks(ctx context.Context, token string) ([]service.Task, error) {
	var res struct {
		Tasks []service.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/tasks", token, nil, &res); err != nil {
		return nil, err
	}
	if res.Tasks == nil {
		return []service.Task{}, nil
	}
	return res.Tasks, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, token string, fields service.TaskFields) (service.Task, error) {
	var t service.Task
	err := c.do(ctx, http.MethodPost, "/tasks", token, fields, &t)
	return t, err
}

// UpdateTask implements service.Service.
func (c *Client) UpdateTask(ctx context.Context, token string, id service.ID, fields service.TaskFields) (service.Task, error) {
	var t service.Task
	err := c.do(ctx, http.MethodPut, taskPath(id), token, fields, &t)
	return t, err
}

// DeleteTask implements service.Service.
// The server may answer with an empty body.
func (c *Client) DeleteTask(ctx context.Context, token string, id service.ID) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), token, nil, nil)
}

func taskPath(id service.ID) string {
	return "/tasks/" + url.PathEscape(string(id))
}

// do performs one API call. in is JSON-encoded when non-nil; out is decoded
// from a 2xx body when non-nil.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.clientFor(token).Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "request_id", reqID, "err", err)
		return wrapError(method+" "+path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapError(method+" "+path, err)
	}
	c.logger.Debug("request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", reqID,
	)

	return parseResponse(resp.StatusCode, data, out)
}

// clientFor returns the HTTP client for one call. Authenticated calls go
// through an oauth2.Transport that sets the bearer header.
func (c *Client) clientFor(token string) *http.Client {
	if token == "" {
		return c.http
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return &http.Client{
		Transport: &oauth2.Transport{Source: src, Base: c.http.Transport},
		Timeout:   c.http.Timeout,
	}
}

// parseResponse maps a response to the error convention of the API:
// non-2xx bodies carry {"detail": "..."}.
func parseResponse(status int, data []byte, out any) error {
	if status < 200 || status > 299 {
		var e struct {
			Detail any `json:"detail"`
		}
		apiErr := &service.APIError{StatusCode: status}
		if json.Unmarshal(data, &e) == nil {
			apiErr.Detail = detailString(e.Detail)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return service.ErrInvalidResponse
	}
	if err := json.Unmarshal(data, out); err != nil {
		return service.ErrInvalidResponse
	}
	return nil
}

// detailString flattens detail values. Validation errors may send a list of
// objects with a msg field instead of a string.
func detailString(v any) string {
	switch d := v.(type) {
	case string:
		return d
	case []any:
		var msgs []string
		for _, item := range d {
			if m, ok := item.(map[string]any); ok {
				if s, ok := m["msg"].(string); ok {
					msgs = append(msgs, s)
				}
			}
		}
		return strings.Join(msgs, "; ")
	default:
		return ""
	}
}

// wrapError wraps transport errors with user-friendly messages.
func wrapError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "context deadline exceeded") {
		return &service.TransportError{Op: op, Err: errors.New("request timed out")}
	}
	return &service.TransportError{Op: op, Err: err}
}
