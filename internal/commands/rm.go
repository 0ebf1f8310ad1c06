package commands

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/output"
	"todoctl/internal/service"
	"todoctl/internal/tasks"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	yes   bool
	input io.Reader
}

// SetInput sets the reader the confirmation is read from (for testing).
func (c *RmCmd) SetInput(r io.Reader) {
	c.input = r
}

// SetYes skips the confirmation (for testing).
func (c *RmCmd) SetYes(yes bool) {
	c.yes = yes
}

func (c *RmCmd) Name() string       { return "rm" }
func (c *RmCmd) Aliases() []string  { return []string{"delete"} }
func (c *RmCmd) Synopsis() string   { return "Delete a task" }
func (c *RmCmd) Usage() string      { return "todoctl rm [--yes] <ref>" }
func (c *RmCmd) NeedsAuth() bool    { return true }
func (c *RmCmd) NeedsService() bool { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.yes, "yes", false, "")
	fs.BoolVar(&c.yes, "y", false, "")
}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	num, err := ParseTaskRef(args)
	if err != nil {
		return reportFailure(errOut, err, "")
	}

	in := c.input
	if in == nil {
		in = os.Stdin
	}
	confirm := func(service.Task) bool {
		if c.yes {
			return true
		}
		return newPrompter(in, errOut).confirm(tasks.ConfirmMessage)
	}

	store, notes, code, ok := loadTasks(ctx, cfg, svc, confirm, errOut)
	if !ok {
		return code
	}
	defer store.Close()

	task, err := taskAt(store.Tasks(), num)
	if err != nil {
		return reportFailure(errOut, err, "")
	}

	if err := store.Delete(ctx, task.ID); err != nil {
		if errors.Is(err, tasks.ErrCanceled) {
			if !cfg.Quiet {
				output.Notice(out, "canceled")
			}
			return exitcode.Success
		}
		return reportFailure(errOut, err, notes.Last())
	}

	reportSuccess(cfg, out, notes.Last())
	return exitcode.Success
}
