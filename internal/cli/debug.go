package cli

import (
	"context"
	"encoding/json"
	"fmt"
)

type DebugCmd struct {
	DBPath    DebugDBPathCmd    `cmd:"" help:"Show database path."`
	DumpHabit DebugDumpHabitCmd `cmd:"" help:"Dump a habit and its records as JSON."`
	Outbox    DebugOutboxCmd    `cmd:"" help:"Dump queued offline changes as JSON."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *Context) error {
	return ctx.printJSON(map[string]string{
		"path":     ctx.Store.GetConfigPath(),
		"settings": ctx.SettingsPath,
	})
}

type DebugDumpHabitCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (cmd *DebugDumpHabitCmd) Run(ctx *Context) error {
	rec, err := ctx.Reconciler(context.Background())
	if err != nil {
		return err
	}
	h, err := resolveHabit(rec, cmd.Habit)
	if err != nil {
		return err
	}
	records, err := rec.GetRecordsForHabit(h.ID)
	if err != nil {
		return err
	}
	return ctx.printJSON(struct {
		Habit          any `json:"habit"`
		CompletedDates any `json:"completed_dates"`
		Records        any `json:"records"`
	}{h, h.CompletedDates, records})
}

type DebugOutboxCmd struct{}

func (cmd *DebugOutboxCmd) Run(ctx *Context) error {
	rec, err := ctx.Reconciler(context.Background())
	if err != nil {
		return err
	}
	return ctx.printJSON(rec.Outbox())
}

func (c *Context) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	c.println(string(data))
	return nil
}
