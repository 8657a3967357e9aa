// Package memory is an in-process remote store. It applies the same rules as
// the postgres store and lets tests inject failures and latency.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/FahimKhamsa/madhabits/internal/errors"
	"github.com/FahimKhamsa/madhabits/internal/models"
	"github.com/FahimKhamsa/madhabits/internal/remote"
	"github.com/FahimKhamsa/madhabits/internal/streak"
	"github.com/FahimKhamsa/madhabits/internal/utils"
	"github.com/FahimKhamsa/madhabits/internal/validation"
)

// Hook runs before every operation; a non-nil error fails the call before
// any state changes. It may block to simulate latency.
type Hook func(ctx context.Context, op string) error

type Option func(*Store)

// WithClock sets the time source used for timestamps and streaks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithHook installs a hook at construction time.
func WithHook(h Hook) Option {
	return func(s *Store) { s.hook = h }
}

type Store struct {
	mu      sync.Mutex
	habits  []models.Habit
	records []models.CompletionRecord
	now     func() time.Time
	hook    Hook
	calls   map[string]int
}

var _ remote.Store = (*Store)(nil)
var _ remote.Pinger = (*Store)(nil)

func New(opts ...Option) *Store {
	s := &Store{now: time.Now, calls: make(map[string]int)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetHook replaces the operation hook.
func (s *Store) SetHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// Seed replaces the stored state.
func (s *Store) Seed(habits []models.Habit, records []models.CompletionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.habits = make([]models.Habit, len(habits))
	for i, h := range habits {
		h = h.Clone()
		h.CompletedDates = nil
		s.habits[i] = h
	}
	s.records = slices.Clone(records)
}

// Calls returns how many times op was invoked, failed calls included.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Habit returns the stored habit with id.
func (s *Store) Habit(id string) (models.Habit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		return s.habits[i].Clone(), true
	}
	return models.Habit{}, false
}

// Records returns every stored completion record.
func (s *Store) Records() []models.CompletionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

func (s *Store) before(ctx context.Context, op string) error {
	s.mu.Lock()
	s.calls[op]++
	hook := s.hook
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if hook != nil {
		return hook(ctx, op)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.before(ctx, "ping")
}

func (s *Store) FetchAll(ctx context.Context, userID string) ([]models.Habit, []models.CompletionRecord, error) {
	if err := s.before(ctx, remote.OpFetchAll); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var habits []models.Habit
	for _, h := range s.habits {
		if h.UserID == userID {
			habits = append(habits, h.Clone())
		}
	}
	var records []models.CompletionRecord
	for _, r := range s.records {
		if r.UserID == userID {
			records = append(records, r)
		}
	}
	return habits, records, nil
}

func (s *Store) CreateHabit(ctx context.Context, userID string, in models.HabitInput) (models.Habit, error) {
	if err := s.before(ctx, remote.OpCreateHabit); err != nil {
		return models.Habit{}, err
	}
	in, err := validation.ValidateHabitInput(in)
	if err != nil {
		return models.Habit{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h := models.NewHabit(uuid.NewString(), userID, in, s.now())
	s.habits = append(s.habits, h)
	return h.Clone(), nil
}

func (s *Store) UpdateHabit(ctx context.Context, id string, patch models.HabitPatch) (models.Habit, error) {
	if err := s.before(ctx, remote.OpUpdateHabit); err != nil {
		return models.Habit{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return models.Habit{}, apperrors.NotFoundf("habit %s", id)
	}
	patch, err := validation.ValidateHabitPatch(s.habits[i], patch)
	if err != nil {
		return models.Habit{}, err
	}
	h := patch.Apply(s.habits[i], s.now())
	if patch.ChangesSchedule() {
		h = s.restreak(h)
	}
	s.habits[i] = h
	return h.Clone(), nil
}

func (s *Store) DeleteHabit(ctx context.Context, id string) error {
	if err := s.before(ctx, remote.OpDeleteHabit); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return apperrors.NotFoundf("habit %s", id)
	}
	s.habits = slices.Delete(s.habits, i, i+1)
	s.records = slices.DeleteFunc(s.records, func(r models.CompletionRecord) bool { return r.HabitID == id })
	return nil
}

func (s *Store) ToggleCompletion(ctx context.Context, habitID, date, note string) (models.Habit, models.CompletionRecord, error) {
	if err := s.before(ctx, remote.OpToggleCompletion); err != nil {
		return models.Habit{}, models.CompletionRecord{}, err
	}
	date, err := utils.NormalizeDate(date)
	if err != nil {
		return models.Habit{}, models.CompletionRecord{}, apperrors.Validationf("%v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(habitID)
	if i < 0 {
		return models.Habit{}, models.CompletionRecord{}, apperrors.NotFoundf("habit %s", habitID)
	}
	now := s.now()

	var rec models.CompletionRecord
	found := false
	for j, r := range s.records {
		if r.HabitID == habitID && r.Date == date {
			r.Completed = !r.Completed
			r.Note = note
			r.UpdatedAt = now
			s.records[j] = r
			rec, found = r, true
			break
		}
	}
	if !found {
		rec = models.CompletionRecord{
			ID:        uuid.NewString(),
			HabitID:   habitID,
			UserID:    s.habits[i].UserID,
			Date:      date,
			Completed: true,
			Note:      note,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.records = append(s.records, rec)
	}

	h := s.restreak(s.habits[i])
	h.UpdatedAt = now
	s.habits[i] = h
	return h.Clone(), rec, nil
}

func (s *Store) restreak(h models.Habit) models.Habit {
	var completed []string
	for _, r := range s.records {
		if r.HabitID == h.ID && r.Completed {
			completed = append(completed, r.Date)
		}
	}
	res := streak.ForHabit(h, completed, utils.Today(s.now()))
	h.Streak, h.BestStreak = res.Current, res.Best
	return h
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.habits, func(h models.Habit) bool { return h.ID == id })
}

// FailOn returns a hook that fails the listed operations with err.
func FailOn(err error, ops ...string) Hook {
	return func(_ context.Context, op string) error {
		if slices.Contains(ops, op) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
}
