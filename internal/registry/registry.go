// Package registry keeps the ordered set of habits owned by the signed-in user.
package registry

import (
	"slices"
	"sync"
	"time"

	"github.com/FahimKhamsa/madhabits/internal/constants"
	apperrors "github.com/FahimKhamsa/madhabits/internal/errors"
	"github.com/FahimKhamsa/madhabits/internal/models"
	"github.com/FahimKhamsa/madhabits/internal/utils"
	"github.com/FahimKhamsa/madhabits/internal/validation"
)

// Registry is a copy-on-write habit list. Habits are stored without their
// derived CompletedDates; callers fill those from the ledger.
type Registry struct {
	mu     sync.RWMutex
	habits []models.Habit
}

// New returns a registry seeded with habits.
func New(habits []models.Habit) *Registry {
	r := &Registry{}
	r.Replace(habits)
	return r
}

// Get returns a copy of the habit with id.
func (r *Registry) Get(id string) (models.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.index(id); i >= 0 {
		return r.habits[i].Clone(), nil
	}
	return models.Habit{}, apperrors.NotFoundf("habit %s", id)
}

// All returns copies of every habit in insertion order.
func (r *Registry) All() []models.Habit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Habit, len(r.habits))
	for i, h := range r.habits {
		out[i] = h.Clone()
	}
	return out
}

// Len returns the number of habits.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.habits)
}

// Put inserts h or replaces the habit with the same id in place.
func (r *Registry) Put(h models.Habit) {
	h = stored(h)
	r.mu.Lock()
	defer r.mu.Unlock()
	next := slices.Clone(r.habits)
	if i := r.index(h.ID); i >= 0 {
		next[i] = h
	} else {
		next = append(next, h)
	}
	r.habits = next
}

// IndexOf returns the position of the habit with id, or -1.
func (r *Registry) IndexOf(id string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index(id)
}

// PutAt replaces the habit with the same id, or inserts h at position i when
// it is absent. Out of range positions append.
func (r *Registry) PutAt(i int, h models.Habit) {
	h = stored(h)
	r.mu.Lock()
	defer r.mu.Unlock()
	next := slices.Clone(r.habits)
	if j := r.index(h.ID); j >= 0 {
		next[j] = h
	} else {
		next = slices.Insert(next, min(max(i, 0), len(next)), h)
	}
	r.habits = next
}

// Create validates in and appends a new habit with the given id.
func (r *Registry) Create(id, userID string, in models.HabitInput, now time.Time) (models.Habit, error) {
	in, err := validation.ValidateHabitInput(in)
	if err != nil {
		return models.Habit{}, err
	}
	h := models.NewHabit(id, userID, in, now)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index(id) >= 0 {
		return models.Habit{}, apperrors.Validationf("habit %s already exists", id)
	}
	r.habits = append(slices.Clone(r.habits), h)
	return h.Clone(), nil
}

// Update validates and applies a partial update.
func (r *Registry) Update(id string, patch models.HabitPatch, now time.Time) (models.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return models.Habit{}, apperrors.NotFoundf("habit %s", id)
	}
	patch, err := validation.ValidateHabitPatch(r.habits[i], patch)
	if err != nil {
		return models.Habit{}, err
	}
	h := patch.Apply(r.habits[i], now)
	next := slices.Clone(r.habits)
	next[i] = h
	r.habits = next
	return h.Clone(), nil
}

// Delete removes the habit and returns what was removed.
func (r *Registry) Delete(id string) (models.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return models.Habit{}, apperrors.NotFoundf("habit %s", id)
	}
	removed := r.habits[i]
	r.habits = slices.Delete(slices.Clone(r.habits), i, i+1)
	return removed, nil
}

// ReplaceID swaps the habit stored under from for h, keeping its position.
// It is used to adopt the remote id of a provisionally created habit.
func (r *Registry) ReplaceID(from string, h models.Habit) error {
	h = stored(h)
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(from)
	if i < 0 {
		return apperrors.NotFoundf("habit %s", from)
	}
	next := slices.Clone(r.habits)
	next[i] = h
	if j := indexIn(next, h.ID); j >= 0 && j != i {
		next = slices.Delete(next, j, j+1)
	}
	r.habits = next
	return nil
}

// Replace swaps the whole habit set.
func (r *Registry) Replace(habits []models.Habit) {
	next := make([]models.Habit, len(habits))
	for i, h := range habits {
		next[i] = stored(h)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.habits = next
}

// Snapshot returns the current habit list. The slice must not be modified.
func (r *Registry) Snapshot() []models.Habit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clip(r.habits)
}

// SetAlternativeCompletionDate records date as the make-up completion of the
// weekly occurrence on missedDate. The date must fall within the make-up
// window; adding a date that is already present changes nothing.
func (r *Registry) SetAlternativeCompletionDate(habitID, missedDate, date string, now time.Time) (models.Habit, error) {
	if err := ValidateMakeUpDate(missedDate, date); err != nil {
		return models.Habit{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(habitID)
	if i < 0 {
		return models.Habit{}, apperrors.NotFoundf("habit %s", habitID)
	}
	h := r.habits[i].Clone()
	if h.Frequency != models.FrequencyWeekly {
		return models.Habit{}, apperrors.Validationf("alternative dates only apply to weekly habits")
	}
	if h.HasAlternativeDate(date) {
		return h, nil
	}
	h.AlternativeCompletionDates = append(h.AlternativeCompletionDates, date)
	slices.Sort(h.AlternativeCompletionDates)
	h.UpdatedAt = now

	next := slices.Clone(r.habits)
	next[i] = h
	r.habits = next
	return h.Clone(), nil
}

// HabitsForDate returns the habits scheduled on date, read in loc.
func (r *Registry) HabitsForDate(date string, loc *time.Location) ([]models.Habit, error) {
	day, err := utils.ParseDate(date)
	if err != nil {
		return nil, apperrors.Validationf("%v", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Habit
	for _, h := range r.habits {
		if h.IsDueOn(day, loc) {
			out = append(out, h.Clone())
		}
	}
	return out, nil
}

// ValidateMakeUpDate checks that date lies strictly after missedDate and at
// most MakeUpWindowDays after it.
func ValidateMakeUpDate(missedDate, date string) error {
	diff, err := utils.DaysBetween(missedDate, date)
	if err != nil {
		return apperrors.Validationf("%v", err)
	}
	if diff < 1 || diff > constants.MakeUpWindowDays {
		return apperrors.Validationf("invalid date: %s is outside the make-up window of %s (1-%d days after)",
			date, missedDate, constants.MakeUpWindowDays)
	}
	return nil
}

// MonthlyLockedDate returns the first completed date of a monthly habit in
// the calendar month of date, if any. Once a month has a completion, only
// that date may be toggled for the rest of the month.
func MonthlyLockedDate(h models.Habit, completed []string, date string) (string, bool) {
	if h.Frequency != models.FrequencyMonthly {
		return "", false
	}
	locked := ""
	for _, d := range completed {
		if utils.SameMonth(d, date) && (locked == "" || d < locked) {
			locked = d
		}
	}
	return locked, locked != ""
}

// CheckMonthlyLock rejects toggling date when another date of the same month
// already holds the habit's monthly completion.
func CheckMonthlyLock(h models.Habit, completed []string, date string) error {
	locked, ok := MonthlyLockedDate(h, completed, date)
	if ok && locked != date {
		return apperrors.Validationf("%s is already completed on %s this month", h.Name, locked)
	}
	return nil
}

func (r *Registry) index(id string) int {
	return indexIn(r.habits, id)
}

func indexIn(habits []models.Habit, id string) int {
	return slices.IndexFunc(habits, func(h models.Habit) bool { return h.ID == id })
}

func stored(h models.Habit) models.Habit {
	h = h.Clone()
	h.CompletedDates = nil
	return h
}
