// Package service defines the backend-agnostic interface for account and task operations.
package service

import "context"

// Service defines the interface for the remote to-do API.
// All HTTP calls go through this interface.
// Session, notification and task state never talk to the transport directly.
type Service interface {
	// Register creates an account. It does not log the user in.
	Register(ctx context.Context, reg Registration) (Account, error)

	// Login exchanges credentials for a bearer token.
	// A successful response may still lack a token; callers must check.
	Login(ctx context.Context, username, password string) (LoginResult, error)

	// GetProfile returns the profile owned by token.
	GetProfile(ctx context.Context, token string) (Profile, error)

	// UpdateProfile applies the non-empty fields of upd and returns the stored profile.
	UpdateProfile(ctx context.Context, token string, upd ProfileUpdate) (Profile, error)

	// FetchTasks returns every task of the current user in server order.
	FetchTasks(ctx context.Context, token string) ([]Task, error)

	// CreateTask creates a task and returns it as stored by the server.
	CreateTask(ctx context.Context, token string, fields TaskFields) (Task, error)

	// UpdateTask replaces title and description of a task.
	UpdateTask(ctx context.Context, token string, id ID, fields TaskFields) (Task, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, token string, id ID) error
}
