package commands

import (
	"context"
	"flag"
	"io"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// optString is a string flag that remembers whether it was given.
type optString struct {
	value string
	set   bool
}

func (o *optString) String() string { return o.value }

func (o *optString) Set(v string) error {
	o.value = v
	o.set = true
	return nil
}

// EditCmd implements the edit command.
type EditCmd struct {
	title       optString
	description optString
}

// SetTitle sets the --title value (for testing).
func (c *EditCmd) SetTitle(t string) { _ = c.title.Set(t) }

// SetDescription sets the --description value (for testing).
func (c *EditCmd) SetDescription(d string) { _ = c.description.Set(d) }

func (c *EditCmd) Name() string       { return "edit" }
func (c *EditCmd) Aliases() []string  { return []string{"update"} }
func (c *EditCmd) Synopsis() string   { return "Change a task's title or description" }
func (c *EditCmd) Usage() string      { return "todoctl edit [--title <t>] [--description <d>] <ref>" }
func (c *EditCmd) NeedsAuth() bool    { return true }
func (c *EditCmd) NeedsService() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.Var(&c.title, "title", "")
	fs.Var(&c.title, "t", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.description, "d", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	num, err := ParseTaskRef(args)
	if err != nil {
		return reportFailure(errOut, err, "")
	}
	if !c.title.set && !c.description.set {
		return reportFailure(errOut, usagef("nothing to change (use --title or --description)"), "")
	}

	store, notes, code, ok := loadTasks(ctx, cfg, svc, nil, errOut)
	if !ok {
		return code
	}
	defer store.Close()

	task, err := taskAt(store.Tasks(), num)
	if err != nil {
		return reportFailure(errOut, err, "")
	}

	store.BeginEdit(task)
	form := store.Form()
	if c.title.set {
		form.Title = c.title.value
	}
	if c.description.set {
		form.Description = c.description.value
	}
	store.SetForm(form)

	if _, err := store.Submit(ctx); err != nil {
		return reportFailure(errOut, err, notes.Last())
	}

	reportSuccess(cfg, out, notes.Last())
	return exitcode.Success
}
