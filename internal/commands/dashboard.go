package commands

import (
	"context"
	"flag"
	"io"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/notify"
	"todoctl/internal/output"
	"todoctl/internal/service"
	"todoctl/internal/tui"
)

func init() {
	Register(&DashboardCmd{})
}

// DashboardCmd opens the interactive task dashboard.
type DashboardCmd struct{}

func (c *DashboardCmd) Name() string       { return "dashboard" }
func (c *DashboardCmd) Aliases() []string  { return []string{"ui"} }
func (c *DashboardCmd) Synopsis() string   { return "Open the interactive dashboard" }
func (c *DashboardCmd) Usage() string      { return "todoctl dashboard" }
func (c *DashboardCmd) NeedsAuth() bool    { return true }
func (c *DashboardCmd) NeedsService() bool { return true }

func (c *DashboardCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DashboardCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		output.Error(errOut, "unexpected argument: "+args[0])
		return exitcode.UserError
	}

	sess, code, ok := requireSession(ctx, cfg, svc, errOut)
	if !ok {
		return code
	}
	defer sess.Close()

	loggedOut, err := tui.Run(ctx, sess, svc, notify.New(cfg.NotifyTimeout), cfg.Logger)
	if err != nil {
		output.Error(errOut, err.Error())
		return exitcode.BackendError
	}
	if loggedOut {
		reportSuccess(cfg, out, "Logged out.")
	}
	return exitcode.Success
}
