package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/FahimKhamsa/madhabits/internal/cli"
	"github.com/FahimKhamsa/madhabits/internal/config"
	"github.com/FahimKhamsa/madhabits/internal/constants"
	apperrors "github.com/FahimKhamsa/madhabits/internal/errors"
	"github.com/FahimKhamsa/madhabits/internal/logger"
	"github.com/FahimKhamsa/madhabits/internal/storage"
	"github.com/FahimKhamsa/madhabits/internal/storage/sqlite"
)

var CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Local habit database path (.json for a JSON file, SQLite otherwise)." type:"path" default:"${config_path}"`
	Settings string `help:"Settings file path." type:"path" default:"${settings_path}"`
	Debug    bool   `help:"Write debug logs to stderr."`

	Init     cli.InitCmd     `cmd:"" help:"Initialize madhabits storage."`
	Login    cli.LoginCmd    `cmd:"" help:"Sign in and download your habits."`
	Logout   cli.LogoutCmd   `cmd:"" help:"Sign out, keeping local data."`
	Status   cli.StatusCmd   `cmd:"" help:"Show session and sync status."`
	Sync     cli.SyncCmd     `cmd:"" help:"Send queued changes and download the latest habits."`
	Habit    cli.HabitCmd    `cmd:"" help:"Manage habits and habit tracking."`
	Tui      cli.TuiCmd      `cmd:"" help:"Start the interactive habit board."`
	Daemon   cli.DaemonCmd   `cmd:"" help:"Run background sync, notifications and metrics."`
	Prefs    cli.SettingsCmd `cmd:"" name:"settings" help:"View or update settings."`
	Keyring  cli.KeyringCmd  `cmd:"" help:"Manage the database connection string in the OS keyring."`
	Backup   cli.BackupCmd   `cmd:"" help:"Manage local database backups."`
	Migrate  cli.MigrateCmd  `cmd:"" help:"Apply pending local database migrations."`
	Doctor   cli.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Inspect  cli.DebugCmd    `cmd:"" help:"Debug commands for troubleshooting."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracker with streaks, make-up days and offline sync"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":       constants.Version,
			"config_path":   constants.DefaultConfigPath,
			"settings_path": constants.DefaultSettingsPath,
		},
	)

	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: filepath.Dir(CLI.Settings)}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}

	settings, err := config.Load(CLI.Settings)
	if err != nil {
		apperrors.Fatal(err)
	}

	var store storage.Provider
	if strings.HasSuffix(CLI.Config, ".json") {
		store = storage.NewJSONStore(CLI.Config)
	} else {
		store = sqlite.NewStore(CLI.Config)
	}

	appCtx := &cli.Context{
		Store:        store,
		Settings:     settings,
		SettingsPath: CLI.Settings,
	}

	err = ctx.Run(appCtx)
	if closeErr := appCtx.Close(); closeErr != nil {
		logger.Warn("Failed to close storage", "error", closeErr)
	}
	apperrors.Fatal(err)
}
