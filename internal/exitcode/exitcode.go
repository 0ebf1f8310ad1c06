// Package exitcode defines the process exit codes of todoctl.
package exitcode

const (
	// Success: the command did what was asked, including no-ops such as a
	// declined delete or logging out twice.
	Success = 0

	// UserError: bad arguments, failed validation or a task number that
	// does not exist.
	UserError = 1

	// AuthError: no stored session, or the server rejected the token or
	// the credentials (401/403).
	AuthError = 2

	// BackendError: the server answered with any other error, or could not
	// be reached.
	BackendError = 3
)
