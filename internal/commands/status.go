package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/service"
)

func init() {
	Register(&StatusCmd{})
}

// StatusCmd reports the session state.
type StatusCmd struct {
	now func() time.Time
}

// SetNow sets the clock used for expiry output (for testing).
func (c *StatusCmd) SetNow(now func() time.Time) {
	c.now = now
}

func (c *StatusCmd) Name() string       { return "status" }
func (c *StatusCmd) Aliases() []string  { return []string{"whoami"} }
func (c *StatusCmd) Synopsis() string   { return "Show who is logged in" }
func (c *StatusCmd) Usage() string      { return "todoctl status [common flags]" }
func (c *StatusCmd) NeedsAuth() bool    { return false }
func (c *StatusCmd) NeedsService() bool { return true }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	sess := restoreSession(ctx, cfg, svc)
	s := sess.Snapshot()
	if !s.Authenticated() || s.User == nil {
		fmt.Fprintln(out, "anonymous")
		return exitcode.Success
	}

	fmt.Fprintf(out, "logged in as %s\n", s.User.DisplayName())
	if exp, ok := tokenExpiry(s.Token); ok {
		now := time.Now
		if c.now != nil {
			now = c.now
		}
		left := exp.Sub(now()).Round(time.Minute)
		fmt.Fprintf(out, "token expires %s (in %s)\n", exp.UTC().Format(time.RFC3339), left)
	}
	return exitcode.Success
}

// tokenExpiry reads the exp claim of a JWT without verifying it.
// Opaque tokens report false.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
