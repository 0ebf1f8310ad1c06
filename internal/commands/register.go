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
	Register(&RegisterCmd{})
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	username string
	email    string
	password string
	confirm  string
	input    io.Reader
}

// SetInput sets the reader prompts are answered from (for testing).
func (c *RegisterCmd) SetInput(r io.Reader) {
	c.input = r
}

// SetFields sets the flag values (for testing).
func (c *RegisterCmd) SetFields(username, email, password, confirm string) {
	c.username = username
	c.email = email
	c.password = password
	c.confirm = confirm
}

func (c *RegisterCmd) Name() string       { return "register" }
func (c *RegisterCmd) Aliases() []string  { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string   { return "Create an account" }
func (c *RegisterCmd) NeedsAuth() bool    { return false }
func (c *RegisterCmd) NeedsService() bool { return true }
func (c *RegisterCmd) Usage() string {
	return "todoctl register --username <name> --email <email> [--password <pw>] [--confirm <pw>]"
}

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.username, "username", "", "")
	fs.StringVar(&c.username, "u", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
	fs.StringVar(&c.confirm, "confirm", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		output.Error(errOut, "unexpected argument: "+args[0])
		return exitcode.UserError
	}

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

	reg := service.Registration{
		Username: strings.TrimSpace(c.username),
		Email:    strings.TrimSpace(c.email),
		Password: c.password,
	}
	var err error
	if reg.Username == "" {
		if reg.Username, err = p.ask("username: "); err != nil {
			return reportFailure(errOut, err, "")
		}
		reg.Username = strings.TrimSpace(reg.Username)
	}
	if reg.Email == "" {
		if reg.Email, err = p.ask("email: "); err != nil {
			return reportFailure(errOut, err, "")
		}
		reg.Email = strings.TrimSpace(reg.Email)
	}
	if reg.Password == "" {
		if reg.Password, err = p.ask("password: "); err != nil {
			return reportFailure(errOut, err, "")
		}
	}
	confirm := c.confirm
	if confirm == "" {
		if confirm, err = p.ask("confirm password: "); err != nil {
			return reportFailure(errOut, err, "")
		}
	}

	if reg.Password != confirm {
		return reportFailure(errOut, ErrPasswordMismatch, "")
	}

	sess := newSession(cfg, svc)
	if _, err := sess.Register(ctx, reg); err != nil {
		return reportFailure(errOut, err, "Registration failed: "+sess.Snapshot().Error)
	}

	reportSuccess(cfg, out, "Registration successful! Please login.")
	return exitcode.Success
}
