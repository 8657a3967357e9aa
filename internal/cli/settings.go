package cli

import (
	"fmt"
	"time"

	"github.com/FahimKhamsa/madhabits/internal/config"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	Backend              *string        `help:"Remote backend: postgres or none." enum:"postgres,none"`
	Connection           *string        `help:"PostgreSQL connection string without a password."`
	Timezone             *string        `help:"IANA timezone that decides what today is."`
	SyncInterval         *time.Duration `help:"How often the daemon syncs."`
	MetricsAddr          *string        `help:"Address the daemon serves metrics on (empty disables)."`
	NotificationsEnabled *bool          `help:"Enable or disable missed-habit notifications."`
}

func (c *SettingsCmd) Run(ctx *Context) error {
	if ctx.SettingsPath == "" {
		return fmt.Errorf("no settings file configured")
	}
	settings, err := config.ReadFile(ctx.SettingsPath)
	if err != nil {
		return err
	}

	if c.List {
		ctx.println("Current Settings:")
		ctx.printf("  Backend:               %s\n", settings.Backend)
		ctx.printf("  Connection:            %s\n", valueOr(settings.Connection, "(keyring or environment)"))
		ctx.printf("  Timezone:              %s\n", valueOr(settings.Timezone, "(system)"))
		ctx.printf("  Sync Interval:         %s\n", settings.SyncInterval)
		ctx.printf("  Metrics Address:       %s\n", valueOr(settings.MetricsAddr, "(disabled)"))
		ctx.println("\nNotification Settings:")
		ctx.printf("  Notifications Enabled: %v\n", settings.Notifications)
		return nil
	}

	updated := false
	if c.Backend != nil {
		settings.Backend = *c.Backend
		updated = true
	}
	if c.Connection != nil {
		settings.Connection = *c.Connection
		updated = true
	}
	if c.Timezone != nil {
		settings.Timezone = *c.Timezone
		updated = true
	}
	if c.SyncInterval != nil {
		settings.SyncInterval = *c.SyncInterval
		updated = true
	}
	if c.MetricsAddr != nil {
		settings.MetricsAddr = *c.MetricsAddr
		updated = true
	}
	if c.NotificationsEnabled != nil {
		settings.Notifications = *c.NotificationsEnabled
		updated = true
	}

	if !updated {
		ctx.println("No changes specified. Use --list to view settings or flags to update them.")
		return nil
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := config.Save(ctx.SettingsPath, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	ctx.println("Settings updated successfully.")
	return nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
