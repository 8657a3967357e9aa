package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/FahimKhamsa/madhabits/internal/constants"
	"github.com/FahimKhamsa/madhabits/internal/logger"
	"github.com/FahimKhamsa/madhabits/internal/metrics"
	"github.com/FahimKhamsa/madhabits/internal/models"
	"github.com/FahimKhamsa/madhabits/internal/notifier"
)

// warningCheckInterval is how often the daemon looks for missed habits. Each
// calendar day is notified at most once.
const warningCheckInterval = 30 * time.Minute

type DaemonCmd struct {
	MetricsAddr string `help:"Serve Prometheus metrics on this address (overrides metrics_addr)."`
}

func (cmd *DaemonCmd) Run(ctx *Context) error {
	release, err := acquirePIDLock(filepath.Join(filepath.Dir(ctx.Store.GetConfigPath()), constants.DaemonLockfileName))
	if err != nil {
		return err
	}
	defer release()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}
	ctx.Metrics = m

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := ctx.Reconciler(sigCtx)
	if err != nil {
		return err
	}
	ctx.PerformAutomaticBackup()
	logger.Info("Daemon started", "user", rec.UserID(), "online", rec.IsOnline())

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		return rec.Run(gctx)
	})

	addr := cmd.MetricsAddr
	if addr == "" {
		addr = ctx.Settings.MetricsAddr
	}
	if addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           metricsHandler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("Serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if ctx.Settings.Notifications {
		w := &warningWatcher{source: rec, send: notifier.New().NotifyMissed}
		g.Go(func() error {
			return w.run(gctx)
		})
	}

	err = g.Wait()
	logger.Info("Daemon stopped")
	return err
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// acquirePIDLock writes the current pid to path. A lockfile whose process is
// no longer a running madhabits is replaced.
func acquirePIDLock(path string) (func(), error) {
	if data, err := os.ReadFile(path); err == nil {
		pid, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
		if convErr == nil && pid != os.Getpid() && notifier.ProcessRunning(pid, constants.AppName) {
			return nil, fmt.Errorf("daemon already running (pid %d)", pid)
		}
		logger.Warn("Replacing stale daemon lockfile", "path", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write daemon lockfile: %w", err)
	}
	return func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to remove daemon lockfile", "path", path, "error", err)
		}
	}, nil
}

type warningSource interface {
	Warnings() []models.MissedInstance
	Today() string
}

// warningWatcher notifies about missed habits once per calendar day.
type warningWatcher struct {
	source   warningSource
	send     func(context.Context, []models.MissedInstance) error
	notified string
}

func (w *warningWatcher) run(ctx context.Context) error {
	ticker := time.NewTicker(warningCheckInterval)
	defer ticker.Stop()
	for {
		w.check(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *warningWatcher) check(ctx context.Context) {
	today := w.source.Today()
	if w.notified == today {
		return
	}
	missed := w.source.Warnings()
	if len(missed) == 0 {
		w.notified = today
		return
	}
	if err := w.send(ctx, missed); err != nil {
		if errors.Is(err, notifier.ErrTrayNotRunning) {
			logger.Debug("Tray app not running, will retry", "error", err)
		} else {
			logger.Warn("Failed to send missed-habit notification", "error", err)
		}
		return
	}
	w.notified = today
	logger.Info("Sent missed-habit notification", "count", len(missed))
}
