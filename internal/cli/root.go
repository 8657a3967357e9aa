package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/FahimKhamsa/madhabits/internal/backup"
	"github.com/FahimKhamsa/madhabits/internal/config"
	"github.com/FahimKhamsa/madhabits/internal/constants"
	apperrors "github.com/FahimKhamsa/madhabits/internal/errors"
	"github.com/FahimKhamsa/madhabits/internal/keyring"
	"github.com/FahimKhamsa/madhabits/internal/logger"
	"github.com/FahimKhamsa/madhabits/internal/metrics"
	"github.com/FahimKhamsa/madhabits/internal/models"
	"github.com/FahimKhamsa/madhabits/internal/reconciler"
	"github.com/FahimKhamsa/madhabits/internal/remote"
	"github.com/FahimKhamsa/madhabits/internal/remote/postgres"
	"github.com/FahimKhamsa/madhabits/internal/storage"
	"github.com/FahimKhamsa/madhabits/internal/storage/sqlite"
)

type Context struct {
	Store        storage.Provider
	Settings     config.Config
	SettingsPath string

	// Remote replaces the backend selected by Settings.
	Remote  remote.Store
	Metrics *metrics.Metrics
	Clock   func() time.Time
	Out     io.Writer

	rec     *reconciler.Reconciler
	closers []func() error
}

func (c *Context) stdout() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.stdout(), format, args...)
}

func (c *Context) println(args ...any) {
	fmt.Fprintln(c.stdout(), args...)
}

// Reconciler loads the local snapshot, connects the remote store and returns
// the started reconciler. Later calls return the same instance.
func (c *Context) Reconciler(ctx context.Context) (*reconciler.Reconciler, error) {
	if c.rec != nil {
		return c.rec, nil
	}
	if err := c.Store.Load(); err != nil {
		return nil, err
	}
	snap, err := c.Store.LoadSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to load local state: %w", err)
	}
	loc, err := c.Settings.Location()
	if err != nil {
		return nil, err
	}
	store, err := c.remoteStore()
	if err != nil {
		return nil, err
	}

	opts := []reconciler.Option{
		reconciler.WithLocation(loc),
		reconciler.WithPersister(c.Store),
		reconciler.WithSyncInterval(c.Settings.SyncInterval),
		reconciler.WithMetrics(c.Metrics),
	}
	if c.Clock != nil {
		opts = append(opts, reconciler.WithClock(c.Clock))
	}
	rec := reconciler.New(store, opts...)
	rec.Hydrate(snap)
	if err := rec.Start(ctx); err != nil {
		logger.Warn("Initial sync failed, continuing with local data", "error", err)
	}
	c.rec = rec
	return rec, nil
}

func (c *Context) remoteStore() (remote.Store, error) {
	if c.Remote != nil {
		return c.Remote, nil
	}
	if c.Settings.Backend != config.BackendPostgres {
		return remote.Unavailable{}, nil
	}

	connStr, source := keyring.ResolveConnectionString(c.Settings.Connection)
	if connStr == "" {
		return nil, fmt.Errorf("backend %q needs a connection string: use '%s keyring set' or %s", config.BackendPostgres, constants.AppName, constants.EnvDBConnection)
	}
	if err := postgres.ValidateConnString(connStr); err != nil {
		// Passwords are fine when they come from the keyring or the environment.
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) || source == keyring.SourceConfig {
			return nil, err
		}
	}
	logger.Debug("Using remote store", "source", source, "conn", postgres.MaskPassword(connStr))

	pg := postgres.New(connStr)
	c.closers = append(c.closers, pg.Close)
	return pg, nil
}

// Close waits for background syncs and releases the stores.
func (c *Context) Close() error {
	if c.rec != nil {
		c.rec.Wait()
	}
	var errs []error
	for _, closeFn := range c.closers {
		errs = append(errs, closeFn())
	}
	c.closers = nil
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	return errors.Join(errs...)
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	if _, ok := c.Store.(*sqlite.Store); !ok {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.CreateBackup(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// resolveHabit finds a habit by id or, case-insensitively, by name.
func resolveHabit(rec *reconciler.Reconciler, ref string) (models.Habit, error) {
	if h, err := rec.GetHabitByID(ref); err == nil {
		return h, nil
	}
	var found []models.Habit
	for _, h := range rec.Habits() {
		if strings.EqualFold(h.Name, strings.TrimSpace(ref)) {
			found = append(found, h)
		}
	}
	switch len(found) {
	case 0:
		return models.Habit{}, apperrors.NotFoundf("habit %q", ref)
	case 1:
		return found[0], nil
	}
	return models.Habit{}, fmt.Errorf("%d habits are named %q, use the id instead", len(found), ref)
}

// ParseWeekdays parses a comma-separated list of weekdays
func ParseWeekdays(s string) ([]time.Weekday, error) {
	parts := strings.Split(s, ",")
	var weekdays []time.Weekday

	dayMap := map[string]time.Weekday{
		"sun":       time.Sunday,
		"sunday":    time.Sunday,
		"mon":       time.Monday,
		"monday":    time.Monday,
		"tue":       time.Tuesday,
		"tuesday":   time.Tuesday,
		"wed":       time.Wednesday,
		"wednesday": time.Wednesday,
		"thu":       time.Thursday,
		"thursday":  time.Thursday,
		"fri":       time.Friday,
		"friday":    time.Friday,
		"sat":       time.Saturday,
		"saturday":  time.Saturday,
	}

	for _, part := range parts {
		part = strings.TrimSpace(strings.ToLower(part))
		if wd, ok := dayMap[part]; ok {
			weekdays = append(weekdays, wd)
		} else {
			// Try parsing as number (0=Sunday, 6=Saturday)
			num, err := strconv.Atoi(part)
			if err == nil && num >= 0 && num <= 6 {
				weekdays = append(weekdays, time.Weekday(num))
			} else {
				return nil, fmt.Errorf("invalid weekday: %s", part)
			}
		}
	}

	return weekdays, nil
}

// FormatFrequency formats a habit schedule into a human-readable string.
// Monthly habits show their creation day as read in loc.
func FormatFrequency(h models.Habit, loc *time.Location) string {
	switch h.Frequency {
	case models.FrequencyWeekly:
		if len(h.DaysOfWeek) > 0 {
			var days []string
			for _, wd := range h.DaysOfWeek {
				days = append(days, wd.String()[:3])
			}
			return fmt.Sprintf("weekly on %s", strings.Join(days, ","))
		}
		return "weekly"
	case models.FrequencyMonthly:
		if loc == nil {
			loc = time.Local
		}
		return fmt.Sprintf("monthly on day %d", h.CreatedAt.In(loc).Day())
	default:
		return string(h.Frequency)
	}
}
