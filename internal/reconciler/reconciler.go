// Package reconciler applies habit mutations optimistically and reconciles
// them with the remote store.
//
// Every mutation is applied to the local registry and ledger first. When the
// reconciler is online the remote call follows and either confirms the change
// with the authoritative response or restores the captured pre-call state.
// Offline mutations stay applied and are queued in an outbox that is replayed
// before the next full fetch.
package reconciler

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/FahimKhamsa/madhabits/internal/constants"
	apperrors "github.com/FahimKhamsa/madhabits/internal/errors"
	"github.com/FahimKhamsa/madhabits/internal/ledger"
	"github.com/FahimKhamsa/madhabits/internal/logger"
	"github.com/FahimKhamsa/madhabits/internal/metrics"
	"github.com/FahimKhamsa/madhabits/internal/models"
	"github.com/FahimKhamsa/madhabits/internal/registry"
	"github.com/FahimKhamsa/madhabits/internal/remote"
	"github.com/FahimKhamsa/madhabits/internal/storage"
	"github.com/FahimKhamsa/madhabits/internal/streak"
	"github.com/FahimKhamsa/madhabits/internal/utils"
	"github.com/FahimKhamsa/madhabits/internal/warnings"
)

type Option func(*Reconciler)

// WithClock sets the time source. Dates are derived from it in the
// reconciler's location.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithLocation sets the timezone that decides the local calendar date.
func WithLocation(loc *time.Location) Option {
	return func(r *Reconciler) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithPersister saves a snapshot after every state change.
func WithPersister(p storage.Provider) Option {
	return func(r *Reconciler) { r.persister = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithSyncInterval sets how old the last sync must be before a periodic
// sync runs.
func WithSyncInterval(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.syncInterval = d
		}
	}
}

// WithReconnectLimit bounds how often reconnects may trigger a sync.
func WithReconnectLimit(every time.Duration, burst int) Option {
	return func(r *Reconciler) { r.reconnect = rate.NewLimiter(rate.Every(every), burst) }
}

type Reconciler struct {
	remote   remote.Store
	habits   *registry.Registry
	ledger   *ledger.Ledger
	evaluate *warnings.Evaluator

	now          func() time.Time
	loc          *time.Location
	persister    storage.Provider
	metrics      *metrics.Metrics
	syncInterval time.Duration
	reconnect    *rate.Limiter

	// gate is held shared by mutations and exclusively by full syncs.
	gate    sync.RWMutex
	locks   keyedMutex
	fetches singleflight.Group
	bg      sync.WaitGroup

	persistMu sync.Mutex

	mu         sync.Mutex
	userID     string
	online     bool
	lastSyncAt time.Time
	outbox     []models.OutboxEntry
	pending    map[string]undo
	version    uint64
	warnCache  warnCache
}

type warnCache struct {
	version uint64
	day     string
	missed  []models.MissedInstance
	valid   bool
}

// New returns a reconciler with empty local state. The reconciler starts
// offline and signed out.
func New(store remote.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		remote:       store,
		habits:       registry.New(nil),
		ledger:       ledger.New(nil),
		now:          time.Now,
		loc:          time.Local,
		syncInterval: constants.SyncInterval,
		reconnect:    rate.NewLimiter(rate.Every(constants.ReconnectSyncEvery), constants.ReconnectSyncBurst),
		pending:      make(map[string]undo),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.ledger.SetClock(r.now)
	r.evaluate = warnings.New(r.habits, r.ledger)
	return r
}

// Hydrate replaces the local state with a persisted snapshot.
func (r *Reconciler) Hydrate(snap storage.Snapshot) {
	r.gate.Lock()
	defer r.gate.Unlock()

	r.habits.Replace(snap.Habits)
	r.ledger.Replace(snap.Completions)

	r.mu.Lock()
	r.userID = snap.UserID
	r.lastSyncAt = time.Time{}
	if snap.LastSyncAt != nil {
		r.lastSyncAt = *snap.LastSyncAt
	}
	r.outbox = append([]models.OutboxEntry(nil), snap.Outbox...)
	r.version++
	r.mu.Unlock()

	r.restreakAll()
	r.metrics.SetOutboxDepth(len(snap.Outbox))
}

// Snapshot returns the persistable state.
func (r *Reconciler) Snapshot() storage.Snapshot {
	r.mu.Lock()
	snap := storage.Snapshot{
		Version: storage.SnapshotVersion,
		UserID:  r.userID,
		Outbox:  append([]models.OutboxEntry(nil), r.outbox...),
	}
	if !r.lastSyncAt.IsZero() {
		t := r.lastSyncAt
		snap.LastSyncAt = &t
	}
	r.mu.Unlock()

	snap.Habits = r.habits.All()
	snap.Completions = append([]models.CompletionRecord(nil), r.ledger.Snapshot()...)
	return snap
}

// today is the local calendar date of the reconciler's clock.
func (r *Reconciler) today() string {
	return utils.Today(r.now().In(r.loc))
}

// Today returns the local calendar date.
func (r *Reconciler) Today() string {
	return r.today()
}

// Location returns the timezone that decides the local calendar date.
func (r *Reconciler) Location() *time.Location {
	return r.loc
}

// view fills the derived fields of h from the ledger.
func (r *Reconciler) view(h models.Habit) models.Habit {
	h.CompletedDates = r.ledger.CompletedDates(h.ID)
	res := streak.ForHabit(h, h.CompletedDates, r.today())
	h.Streak, h.BestStreak = res.Current, res.Best
	return h
}

// restreak stores the habit's streak recomputed from the ledger.
func (r *Reconciler) restreak(id string) {
	h, err := r.habits.Get(id)
	if err != nil {
		return
	}
	v := r.view(h)
	if v.Streak != h.Streak || v.BestStreak != h.BestStreak {
		h.Streak, h.BestStreak = v.Streak, v.BestStreak
		r.habits.Put(h)
	}
}

func (r *Reconciler) restreakAll() {
	for _, h := range r.habits.All() {
		r.restreak(h.ID)
	}
}

// changed marks the state as modified and persists it.
func (r *Reconciler) changed() {
	r.mu.Lock()
	r.version++
	depth := len(r.outbox)
	r.mu.Unlock()
	r.metrics.SetOutboxDepth(depth)
	r.persist()
}

func (r *Reconciler) persist() {
	if r.persister == nil {
		return
	}
	r.persistMu.Lock()
	defer r.persistMu.Unlock()
	if err := r.persister.SaveSnapshot(r.Snapshot()); err != nil {
		logger.Warn("Failed to persist local snapshot", "error", err)
	}
}

func (r *Reconciler) requireAuth() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.userID == "" {
		return "", apperrors.ErrAuthRequired
	}
	return r.userID, nil
}

// Queries

// GetHabitByID returns the habit with its derived fields filled.
func (r *Reconciler) GetHabitByID(id string) (models.Habit, error) {
	h, err := r.habits.Get(id)
	if err != nil {
		return models.Habit{}, err
	}
	return r.view(h), nil
}

// Habits returns every habit in display order.
func (r *Reconciler) Habits() []models.Habit {
	all := r.habits.All()
	for i := range all {
		all[i] = r.view(all[i])
	}
	return all
}

// GetHabitsForDate returns the habits scheduled on date.
func (r *Reconciler) GetHabitsForDate(date string) ([]models.Habit, error) {
	date, err := utils.NormalizeDate(date)
	if err != nil {
		return nil, apperrors.Validationf("%v", err)
	}
	due, err := r.habits.HabitsForDate(date, r.loc)
	if err != nil {
		return nil, err
	}
	for i := range due {
		due[i] = r.view(due[i])
	}
	return due, nil
}

// GetCompletionsForDate returns every record on date, completed or not.
func (r *Reconciler) GetCompletionsForDate(date string) ([]models.CompletionRecord, error) {
	date, err := utils.NormalizeDate(date)
	if err != nil {
		return nil, apperrors.Validationf("%v", err)
	}
	return r.ledger.RecordsForDate(date), nil
}

// GetRecordsForHabit returns the habit's records sorted by date.
func (r *Reconciler) GetRecordsForHabit(id string) ([]models.CompletionRecord, error) {
	if _, err := r.habits.Get(id); err != nil {
		return nil, err
	}
	return r.ledger.RecordsForHabit(id), nil
}

// Warnings returns the missed weekly occurrences of yesterday. The result is
// cached until the state or the calendar day changes.
func (r *Reconciler) Warnings() []models.MissedInstance {
	now := r.now().In(r.loc)
	day := utils.Today(now)

	r.mu.Lock()
	c := r.warnCache
	version := r.version
	r.mu.Unlock()
	if c.valid && c.version == version && c.day == day {
		return c.missed
	}

	missed := r.evaluate.Evaluate(now)

	r.mu.Lock()
	if r.version == version {
		r.warnCache = warnCache{version: version, day: day, missed: missed, valid: true}
	}
	r.mu.Unlock()
	return missed
}

func (r *Reconciler) UserID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userID
}

func (r *Reconciler) IsAuthenticated() bool {
	return r.UserID() != ""
}

func (r *Reconciler) IsOnline() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online
}

// LastSyncAt returns the time of the last successful full sync, or the zero
// time when there has been none.
func (r *Reconciler) LastSyncAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSyncAt
}

// PendingMutations returns the number of mutations awaiting remote
// confirmation.
func (r *Reconciler) PendingMutations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Reconciler) OutboxLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outbox)
}

// Outbox returns a copy of the queued offline mutations.
func (r *Reconciler) Outbox() []models.OutboxEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.OutboxEntry(nil), r.outbox...)
}

// Wait blocks until background syncs started by SetOnlineStatus finish.
func (r *Reconciler) Wait() {
	r.bg.Wait()
}
