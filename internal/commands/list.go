package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/output"
	"todoctl/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
type ListCmd struct {
	filter string
}

// SetFilter sets the filter text (for testing).
func (c *ListCmd) SetFilter(f string) {
	c.filter = f
}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "List tasks" }
func (c *ListCmd) Usage() string      { return "todoctl list [--filter <text>]" }
func (c *ListCmd) NeedsAuth() bool    { return true }
func (c *ListCmd) NeedsService() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "", "")
	fs.StringVar(&c.filter, "f", "", "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		output.Error(errOut, "unexpected argument: "+args[0])
		return exitcode.UserError
	}

	store, _, code, ok := loadTasks(ctx, cfg, svc, nil, errOut)
	if !ok {
		return code
	}
	defer store.Close()

	// Numbers always refer to the unfiltered order so they stay valid for edit and rm.
	if c.filter == "" {
		output.FormatTasks(out, store.Tasks(), false)
		return exitcode.Success
	}

	all := store.Tasks()
	matches := store.Filter(c.filter)
	if len(matches) == 0 {
		output.FormatTasks(out, nil, true)
		return exitcode.Success
	}
	for _, m := range matches {
		for i, t := range all {
			if t.ID == m.ID {
				output.FormatTask(out, i+1, t)
				break
			}
		}
	}
	fmt.Fprintln(out, output.CountLabel(len(matches)))
	return exitcode.Success
}
