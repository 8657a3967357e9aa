package cli

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/FahimKhamsa/madhabits/internal/backup"
	"github.com/FahimKhamsa/madhabits/internal/config"
	"github.com/FahimKhamsa/madhabits/internal/constants"
	"github.com/FahimKhamsa/madhabits/internal/migration"
	"github.com/FahimKhamsa/madhabits/internal/remote"
	"github.com/FahimKhamsa/madhabits/internal/storage/sqlite"
	"github.com/FahimKhamsa/madhabits/migrations"
)

type DoctorCmd struct {
	Timeout time.Duration `help:"Timeout for the remote store check." default:"10s"`
}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	hasError := false
	report := func(name string, err error, warnOnly bool) {
		switch {
		case err == nil:
			ctx.printf("✓ %s: OK\n", name)
		case warnOnly:
			ctx.printf("⚠ %s: WARNING\n", name)
			ctx.printf("   %v\n", err)
		default:
			ctx.printf("❌ %s: FAIL\n", name)
			ctx.printf("   Error: %v\n", err)
			hasError = true
		}
	}

	dbErr := checkDBReachable(ctx)
	report("Database reachable", dbErr, false)
	if dbErr == nil {
		report("Migrations complete", checkMigrationsComplete(ctx), false)
		report("Local snapshot", checkSnapshot(ctx), false)
	} else {
		ctx.println("⊘ Migrations complete: SKIPPED (database not reachable)")
		ctx.println("⊘ Local snapshot: SKIPPED (database not reachable)")
	}
	report("Backups present", checkBackupsPresent(ctx), true)
	report("Settings", checkSettings(ctx), false)

	if ctx.Settings.Backend == config.BackendNone && ctx.Remote == nil {
		ctx.println("⊘ Remote store: SKIPPED (no backend configured)")
	} else {
		goCtx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
		report("Remote store", checkRemote(goCtx, ctx), true)
		cancel()
	}

	ctx.println()
	if hasError {
		ctx.println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	ctx.println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	if sqliteStore, ok := ctx.Store.(*sqlite.Store); ok {
		db := sqliteStore.GetDB()
		if db == nil {
			return fmt.Errorf("database connection is nil")
		}
		var result int
		if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
			return fmt.Errorf("failed to query database: %w", err)
		}
	}
	return nil
}

func checkMigrationsComplete(ctx *Context) error {
	sqliteStore, ok := ctx.Store.(*sqlite.Store)
	if !ok {
		// JSON store doesn't have schema version
		return nil
	}
	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return err
	}
	runner := migration.NewRunner(sqliteStore.GetDB(), sub)

	current, err := runner.CurrentVersion(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}
	latest, err := runner.LatestVersion()
	if err != nil {
		return fmt.Errorf("failed to get latest schema version: %w", err)
	}
	if current != latest {
		return fmt.Errorf("schema version %d, expected %d", current, latest)
	}
	return nil
}

// checkSnapshot looks for duplicate ids and records of unknown habits.
func checkSnapshot(ctx *Context) error {
	snap, err := ctx.Store.LoadSnapshot()
	if err != nil {
		return err
	}
	ids := make(map[string]bool, len(snap.Habits))
	for _, h := range snap.Habits {
		if ids[h.ID] {
			return fmt.Errorf("duplicate habit id: %s", h.ID)
		}
		ids[h.ID] = true
	}
	for _, r := range snap.Completions {
		if !ids[r.HabitID] {
			return fmt.Errorf("completion %s on %s references unknown habit %s", r.ID, r.Date, r.HabitID)
		}
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with '%s backup create'", constants.AppName)
	}
	return nil
}

func checkSettings(ctx *Context) error {
	if err := ctx.Settings.Validate(); err != nil {
		return err
	}
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}

func checkRemote(goCtx context.Context, ctx *Context) error {
	store, err := ctx.remoteStore()
	if err != nil {
		return err
	}
	p, ok := store.(remote.Pinger)
	if !ok {
		return nil
	}
	return p.Ping(goCtx)
}
