package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/FahimKhamsa/madhabits/internal/constants"
	apperrors "github.com/FahimKhamsa/madhabits/internal/errors"
	"github.com/FahimKhamsa/madhabits/internal/logger"
	"github.com/FahimKhamsa/madhabits/internal/metrics"
	"github.com/FahimKhamsa/madhabits/internal/remote"
)

// ShouldSync reports whether a periodic sync is due: never synced, or the
// last sync is at least interval old.
func ShouldSync(lastSyncAt, now time.Time, interval time.Duration) bool {
	if lastSyncAt.IsZero() {
		return true
	}
	return now.Sub(lastSyncAt) >= interval
}

// SyncDue applies ShouldSync to the reconciler's own state.
func (r *Reconciler) SyncDue() bool {
	return ShouldSync(r.LastSyncAt(), r.now(), r.syncInterval)
}

// FetchHabits replays the outbox and then replaces local state with the
// remote store's. Concurrent calls for the same user share one fetch.
func (r *Reconciler) FetchHabits(ctx context.Context) error {
	userID, err := r.requireAuth()
	if err != nil {
		return err
	}
	_, err, shared := r.fetches.Do("fetch:"+userID, func() (any, error) {
		return nil, r.fetch(ctx, userID)
	})
	if shared {
		logger.Debug("Joined in-flight fetch", "user", userID)
	}
	return err
}

func (r *Reconciler) fetch(ctx context.Context, userID string) error {
	r.gate.Lock()
	defer r.gate.Unlock()

	if err := r.flushOutbox(ctx, userID); err != nil {
		return err
	}
	habits, records, err := r.remote.FetchAll(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetch habits: %w", err)
	}

	// Session changed while the fetch was in flight.
	if r.UserID() != userID {
		return apperrors.ErrAuthRequired
	}
	r.habits.Replace(habits)
	r.ledger.Replace(records)
	r.mu.Lock()
	r.lastSyncAt = r.now()
	r.mu.Unlock()
	r.restreakAll()
	r.changed()
	logger.Debug("Fetched habits", "habits", len(habits), "completions", len(records))
	return nil
}

// SyncToCloud runs a full sync on demand.
func (r *Reconciler) SyncToCloud(ctx context.Context) error {
	return r.syncWith(ctx, metrics.TriggerManual)
}

func (r *Reconciler) syncWith(ctx context.Context, trigger string) error {
	start := time.Now()
	err := r.FetchHabits(ctx)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	r.metrics.RecordSync(trigger, outcome, time.Since(start))
	return err
}

// SetOnlineStatus records the network status. Coming back online while
// signed in starts a background sync; its failures are only logged. The
// reconnect rate limit only applies while the outbox is empty.
func (r *Reconciler) SetOnlineStatus(online bool) {
	if !r.setOnline(online) {
		return
	}
	if !r.IsAuthenticated() {
		return
	}
	if r.OutboxLen() == 0 && !r.reconnect.Allow() {
		logger.Debug("Reconnect sync rate limited")
		r.metrics.RecordSync(metrics.TriggerReconnect, metrics.OutcomeSkipped, 0)
		return
	}
	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), constants.BackgroundSyncTimeout)
		defer cancel()
		if err := r.syncWith(ctx, metrics.TriggerReconnect); err != nil {
			logger.Warn("Background sync after reconnect failed", "error", err)
		}
	}()
}

// setOnline stores the status and reports an offline to online transition.
func (r *Reconciler) setOnline(online bool) bool {
	r.mu.Lock()
	was := r.online
	r.online = online
	r.mu.Unlock()
	r.metrics.SetOnline(online)
	if was != online {
		logger.Info("Network status changed", "online", online)
	}
	return online && !was
}

// checkConnectivity pings the remote store when it supports it.
func (r *Reconciler) checkConnectivity(ctx context.Context) bool {
	p, ok := r.remote.(remote.Pinger)
	if !ok {
		return true
	}
	if err := p.Ping(ctx); err != nil {
		logger.Debug("Remote store unreachable", "error", err)
		return false
	}
	return true
}

// Start determines the network status and syncs when signed in and due.
func (r *Reconciler) Start(ctx context.Context) error {
	r.setOnline(r.checkConnectivity(ctx))
	if !r.IsAuthenticated() || !r.IsOnline() || !r.SyncDue() {
		return nil
	}
	return r.syncWith(ctx, metrics.TriggerStart)
}

// SignIn starts a session for userID. Signing in as a different user
// discards the previous user's local state.
func (r *Reconciler) SignIn(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.Validationf("user id is required")
	}

	r.gate.Lock()
	r.mu.Lock()
	previous := r.userID
	r.userID = userID
	foreign := previous != userID && (previous != "" || r.ownedByOther(userID))
	if foreign {
		r.outbox = nil
		r.lastSyncAt = time.Time{}
	}
	r.mu.Unlock()
	if foreign {
		logger.Warn("Signed in as a different user, discarding local state", "previous", previous, "user", userID)
		r.habits.Replace(nil)
		r.ledger.Replace(nil)
	}
	r.gate.Unlock()
	r.changed()

	if !r.IsOnline() {
		return nil
	}
	return r.syncWith(ctx, metrics.TriggerSignIn)
}

// ownedByOther reports whether local habits belong to a user other than
// userID. Local state outlives SignOut, so the session alone cannot tell.
func (r *Reconciler) ownedByOther(userID string) bool {
	for _, h := range r.habits.Snapshot() {
		if h.UserID != "" && h.UserID != userID {
			return true
		}
	}
	return false
}

// SignOut ends the session. Local habits and the outbox are kept.
func (r *Reconciler) SignOut() {
	r.mu.Lock()
	r.userID = ""
	r.mu.Unlock()
	r.changed()
}

// Run checks connectivity and syncs periodically until ctx is done.
func (r *Reconciler) Run(ctx context.Context) error {
	syncTicker := time.NewTicker(r.syncInterval)
	defer syncTicker.Stop()
	pingTicker := time.NewTicker(constants.ConnectivityInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pingTicker.C:
			r.SetOnlineStatus(r.checkConnectivity(ctx))
		case <-syncTicker.C:
			if !r.IsAuthenticated() || !r.IsOnline() || !r.SyncDue() {
				continue
			}
			if err := r.syncWith(ctx, metrics.TriggerInterval); err != nil {
				logger.Warn("Periodic sync failed", "error", err)
			}
		}
	}
}
