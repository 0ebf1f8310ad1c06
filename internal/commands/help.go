package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "todoctl help" }
func (c *HelpCmd) NeedsAuth() bool    { return false }
func (c *HelpCmd) NeedsService() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  todoctl                                          List tasks
  todoctl list [common flags] [--filter <text>]    List tasks, optionally filtered
  todoctl add [common flags] [--description <d>] <title...>
  todoctl edit [common flags] [--title <t>] [--description <d>] <ref>
  todoctl rm [common flags] [--yes] <ref>
  todoctl dashboard [common flags]                 Interactive task dashboard
  todoctl register [common flags] [--username <u>] [--email <e>] [--password <p>] [--confirm <p>]
  todoctl login [common flags] [--username <u>] [--password <p>]
  todoctl logout [common flags]
  todoctl profile [common flags] [--email <e>]
  todoctl status [common flags]
  todoctl help
  todoctl version

<ref> is the task number printed by list.

Common flags:
  --config <dir>   Override config directory
  --url <url>      Override the API base URL
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
