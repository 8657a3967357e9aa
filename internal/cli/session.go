package cli

import (
	"context"
	"time"

	"github.com/FahimKhamsa/madhabits/internal/constants"
)

type LoginCmd struct {
	User string `arg:"" help:"User id to sign in as." env:"MADHABITS_USER"`
}

func (c *LoginCmd) Run(ctx *Context) error {
	goCtx := context.Background()
	rec, err := ctx.Reconciler(goCtx)
	if err != nil {
		return err
	}
	if err := rec.SignIn(goCtx, c.User); err != nil {
		return err
	}
	ctx.printf("✓ Signed in as %s\n", c.User)
	if !rec.IsOnline() {
		ctx.println("  Remote store unreachable; changes will be queued until the next sync.")
	}
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *Context) error {
	rec, err := ctx.Reconciler(context.Background())
	if err != nil {
		return err
	}
	rec.SignOut()
	ctx.println("✓ Signed out. Local habits are kept.")
	return nil
}

type SyncCmd struct {
	Timeout time.Duration `help:"Give up after this long." default:"1m"`
}

func (c *SyncCmd) Run(ctx *Context) error {
	goCtx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	rec, err := ctx.Reconciler(goCtx)
	if err != nil {
		return err
	}
	if err := rec.SyncToCloud(goCtx); err != nil {
		return err
	}
	ctx.printf("✓ Synced %d habits\n", len(rec.Habits()))
	return nil
}

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *Context) error {
	rec, err := ctx.Reconciler(context.Background())
	if err != nil {
		return err
	}

	user := rec.UserID()
	if user == "" {
		user = "(signed out)"
	}
	network := "offline"
	if rec.IsOnline() {
		network = "online"
	}
	lastSync := "never"
	if t := rec.LastSyncAt(); !t.IsZero() {
		lastSync = t.Local().Format(constants.DateFormat + " 15:04:05")
	}

	ctx.printf("User:        %s\n", user)
	ctx.printf("Backend:     %s (%s)\n", ctx.Settings.Backend, network)
	ctx.printf("Last sync:   %s\n", lastSync)
	ctx.printf("Habits:      %d\n", len(rec.Habits()))
	ctx.printf("Queued:      %d\n", rec.OutboxLen())
	return nil
}
