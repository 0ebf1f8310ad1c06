package commands

import (
	"context"
	"flag"
	"io"
	"os"
	"strings"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/output"
	"todoctl/internal/service"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	username string
	password string
	input    io.Reader
}

// SetInput sets the reader prompts are answered from (for testing).
func (c *LoginCmd) SetInput(r io.Reader) {
	c.input = r
}

// SetCredentials sets the flag values (for testing).
func (c *LoginCmd) SetCredentials(username, password string) {
	c.username = username
	c.password = password
}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Log in and store the session token" }
func (c *LoginCmd) Usage() string      { return "todoctl login [--username <name>] [--password <pw>]" }
func (c *LoginCmd) NeedsAuth() bool    { return false }
func (c *LoginCmd) NeedsService() bool { return true }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.username, "username", "", "")
	fs.StringVar(&c.username, "u", "", "")
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		output.Error(errOut, "unexpected argument: "+args[0])
		return exitcode.UserError
	}

	// Public-only: a live session short-circuits.
	if cfg.HasToken() {
		sess := restoreSession(ctx, cfg, svc)
		if sess.Snapshot().Authenticated() {
			if !cfg.Quiet {
				output.Notice(out, "already logged in")
			}
			return exitcode.Success
		}
	}

	in := c.input
	if in == nil {
		in = os.Stdin
	}
	p := newPrompter(in, errOut)

	username := strings.TrimSpace(c.username)
	if username == "" {
		var err error
		if username, err = p.ask("username: "); err != nil {
			return reportFailure(errOut, err, "")
		}
		username = strings.TrimSpace(username)
	}
	password := c.password
	if password == "" {
		var err error
		if password, err = p.ask("password: "); err != nil {
			return reportFailure(errOut, err, "")
		}
	}

	sess := newSession(cfg, svc)
	if err := sess.Login(ctx, username, password); err != nil {
		return reportFailure(errOut, err, "Login failed: "+sess.Snapshot().Error)
	}

	reportSuccess(cfg, out, "Login successful!")
	return exitcode.Success
}
