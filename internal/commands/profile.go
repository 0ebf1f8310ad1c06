package commands

import (
	"context"
	"flag"
	"io"
	"strings"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/output"
	"todoctl/internal/service"
)

func init() {
	Register(&ProfileCmd{})
}

// ProfileCmd shows or updates the account profile.
type ProfileCmd struct {
	email string
}

// SetEmail sets the --email value (for testing).
func (c *ProfileCmd) SetEmail(email string) {
	c.email = email
}

func (c *ProfileCmd) Name() string       { return "profile" }
func (c *ProfileCmd) Aliases() []string  { return []string{"me"} }
func (c *ProfileCmd) Synopsis() string   { return "Show or update your profile" }
func (c *ProfileCmd) Usage() string      { return "todoctl profile [--email <email>]" }
func (c *ProfileCmd) NeedsAuth() bool    { return true }
func (c *ProfileCmd) NeedsService() bool { return true }

func (c *ProfileCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
}

func (c *ProfileCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		output.Error(errOut, "unexpected argument: "+args[0])
		return exitcode.UserError
	}

	sess, code, ok := requireSession(ctx, cfg, svc, errOut)
	if !ok {
		return code
	}
	user := sess.Snapshot().User

	email := strings.TrimSpace(c.email)
	if email == "" {
		output.FormatProfile(out, *user)
		return exitcode.Success
	}

	// The username cannot be changed; it is sent back as is.
	p, err := sess.UpdateProfile(ctx, service.ProfileUpdate{Username: user.Username, Email: email})
	if err != nil {
		return reportFailure(errOut, err, "Profile update failed: "+sess.Snapshot().Error)
	}

	reportSuccess(cfg, out, "Profile updated!")
	output.FormatProfile(out, p)
	return exitcode.Success
}
