package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/FahimKhamsa/madhabits/internal/config"
)

type InitCmd struct{}

func (c *InitCmd) Run(ctx *Context) error {
	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.printf("Initialized madhabits storage at: %s\n", ctx.Store.GetConfigPath())

	if ctx.SettingsPath == "" {
		return nil
	}
	if _, err := os.Stat(ctx.SettingsPath); errors.Is(err, os.ErrNotExist) {
		if err := config.CreateDefault(ctx.SettingsPath); err != nil {
			return fmt.Errorf("failed to write default settings: %w", err)
		}
		ctx.printf("Wrote default settings to: %s\n", ctx.SettingsPath)
	}
	return nil
}
