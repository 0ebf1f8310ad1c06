package commands

import (
	"context"
	"flag"
	"io"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/output"
	"todoctl/internal/service"
	"todoctl/internal/session"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string       { return "logout" }
func (c *LogoutCmd) Aliases() []string  { return nil }
func (c *LogoutCmd) Synopsis() string   { return "Forget the stored session" }
func (c *LogoutCmd) Usage() string      { return "todoctl logout [common flags]" }
func (c *LogoutCmd) NeedsAuth() bool    { return false }
func (c *LogoutCmd) NeedsService() bool { return true }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if !cfg.HasToken() {
		if !cfg.Quiet {
			output.Notice(out, "not logged in")
		}
		return exitcode.Success
	}

	session.New(svc, cfg.Storage(), cfg.Logger).Logout()

	// Logout swallows storage errors; check the file really lost the token.
	if cfg.HasToken() {
		output.Error(errOut, "failed to remove token from "+cfg.StoragePath())
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		output.Notice(out, "ok")
	}
	return exitcode.Success
}
