package commands

import (
	"context"
	"flag"
	"io"
	"strings"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/service"
	"todoctl/internal/tasks"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
}

// SetDescription sets the description (for testing).
func (c *AddCmd) SetDescription(d string) {
	c.description = d
}

func (c *AddCmd) Name() string       { return "add" }
func (c *AddCmd) Aliases() []string  { return []string{"create"} }
func (c *AddCmd) Synopsis() string   { return "Create a task" }
func (c *AddCmd) Usage() string      { return "todoctl add [--description <text>] <title...>" }
func (c *AddCmd) NeedsAuth() bool    { return true }
func (c *AddCmd) NeedsService() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	// Join args to form title
	fields := service.TaskFields{Title: strings.Join(args, " "), Description: c.description}
	if err := tasks.Validate(fields); err != nil {
		return reportFailure(errOut, err, "")
	}

	store, notes, code, ok := newTaskStore(ctx, cfg, svc, nil, errOut)
	if !ok {
		return code
	}
	defer store.Close()

	store.SetForm(fields)
	if _, err := store.Submit(ctx); err != nil {
		return reportFailure(errOut, err, notes.Last())
	}

	reportSuccess(cfg, out, notes.Last())
	return exitcode.Success
}
