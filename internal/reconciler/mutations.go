package reconciler

import (
	"context"
	"slices"

	apperrors "github.com/FahimKhamsa/madhabits/internal/errors"
	"github.com/FahimKhamsa/madhabits/internal/ledger"
	"github.com/FahimKhamsa/madhabits/internal/logger"
	"github.com/FahimKhamsa/madhabits/internal/metrics"
	"github.com/FahimKhamsa/madhabits/internal/models"
	"github.com/FahimKhamsa/madhabits/internal/registry"
	"github.com/FahimKhamsa/madhabits/internal/remote"
	"github.com/FahimKhamsa/madhabits/internal/utils"
	"github.com/FahimKhamsa/madhabits/internal/validation"
)

// undo is the state of one habit before a mutation.
type undo struct {
	habit   models.Habit
	existed bool
	index   int
	records []ledger.Entry
}

// command is one optimistic mutation of a single habit.
type command struct {
	op      string
	habitID string

	// apply changes local state. It must return validation errors before
	// changing anything.
	apply func() error
	// confirm calls the remote store and adopts the authoritative result.
	confirm func(ctx context.Context) error
	// entry is the outbox entry queued instead of confirm while offline. A
	// nil entry means nothing needs to be replayed.
	entry func() *models.OutboxEntry
}

func (r *Reconciler) capture(habitID string) undo {
	u := undo{index: -1}
	if h, err := r.habits.Get(habitID); err == nil {
		u.habit, u.existed = h, true
		u.index = r.habits.IndexOf(habitID)
	}
	u.records = r.ledger.EntriesForHabit(habitID)
	return u
}

// restore puts the habit and its records back as captured.
func (r *Reconciler) restore(habitID string, u undo) {
	if u.existed {
		r.habits.PutAt(u.index, u.habit)
	} else {
		_, _ = r.habits.Delete(habitID)
	}
	r.ledger.RestoreForHabit(habitID, u.records)
	r.restreak(habitID)
}

// execute runs cmd through Optimistic to Confirmed, RolledBack or Queued.
func (r *Reconciler) execute(ctx context.Context, cmd command) error {
	r.gate.RLock()
	defer r.gate.RUnlock()
	unlock := r.locks.Lock(cmd.habitID)
	defer unlock()

	u := r.capture(cmd.habitID)
	if err := cmd.apply(); err != nil {
		r.metrics.RecordMutation(cmd.op, metrics.OutcomeRejected)
		return err
	}
	r.restreak(cmd.habitID)

	if r.shouldQueue(cmd) {
		if cmd.entry != nil {
			if e := cmd.entry(); e != nil {
				r.enqueue(*e)
			}
		}
		r.changed()
		r.metrics.RecordMutation(cmd.op, metrics.OutcomeQueued)
		logger.Debug("Queued offline mutation", "op", cmd.op, "habit", cmd.habitID)
		return nil
	}
	r.changed()

	r.mu.Lock()
	r.pending[cmd.habitID] = u
	r.mu.Unlock()
	r.metrics.MutationStarted()

	err := cmd.confirm(ctx)

	r.mu.Lock()
	delete(r.pending, cmd.habitID)
	r.mu.Unlock()
	r.metrics.MutationFinished()

	if err != nil {
		r.restore(cmd.habitID, u)
		r.changed()
		r.metrics.RecordMutation(cmd.op, metrics.OutcomeRollback)
		logger.Warn("Remote mutation failed, rolled back", "op", cmd.op, "habit", cmd.habitID, "error", err)
		return &apperrors.SyncError{Op: cmd.op, HabitID: cmd.habitID, Err: err}
	}
	// The store's streak fields come from its own clock and timezone.
	r.restreak(cmd.habitID)
	r.changed()
	r.metrics.RecordMutation(cmd.op, metrics.OutcomeSuccess)
	return nil
}

// shouldQueue reports whether cmd must wait in the outbox: always while
// offline, and for habits the remote store does not know yet or that still
// have queued changes ahead of this one.
func (r *Reconciler) shouldQueue(cmd command) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.online {
		return true
	}
	if cmd.op == remote.OpCreateHabit {
		return false
	}
	if models.IsProvisionalID(cmd.habitID) {
		return true
	}
	return slices.ContainsFunc(r.outbox, func(e models.OutboxEntry) bool { return e.HabitID == cmd.habitID })
}

// ToggleCompletion flips the completion of habitID on date and returns the
// resulting record. Dates after today are rejected, as are other dates of a
// month whose monthly completion is already recorded.
func (r *Reconciler) ToggleCompletion(ctx context.Context, habitID, date, note string) (models.CompletionRecord, error) {
	userID, err := r.requireAuth()
	if err != nil {
		return models.CompletionRecord{}, err
	}
	date, err = utils.NormalizeDate(date)
	if err != nil {
		return models.CompletionRecord{}, apperrors.Validationf("%v", err)
	}
	if today := r.today(); date > today {
		return models.CompletionRecord{}, apperrors.Validationf("cannot complete %s before it happens (today is %s)", date, today)
	}

	var result models.CompletionRecord
	err = r.execute(ctx, command{
		op:      remote.OpToggleCompletion,
		habitID: habitID,
		apply: func() error {
			h, err := r.habits.Get(habitID)
			if err != nil {
				return err
			}
			if err := registry.CheckMonthlyLock(h, r.ledger.CompletedDates(habitID), date); err != nil {
				return err
			}
			result, err = r.ledger.Toggle(habitID, userID, date, note)
			return err
		},
		confirm: func(ctx context.Context) error {
			h, rec, err := r.remote.ToggleCompletion(ctx, habitID, date, note)
			if err != nil {
				return err
			}
			r.ledger.Upsert(rec)
			r.habits.Put(h)
			result = rec
			return nil
		},
		entry: func() *models.OutboxEntry {
			return &models.OutboxEntry{
				Op:        models.OpToggleCompletion,
				HabitID:   habitID,
				Date:      date,
				Note:      note,
				Completed: result.Completed,
			}
		},
	})
	if err != nil {
		return models.CompletionRecord{}, err
	}
	return result, nil
}

// AddHabit creates a habit under a provisional id and swaps in the remote id
// once the store confirms it. A remote failure removes the habit again.
func (r *Reconciler) AddHabit(ctx context.Context, in models.HabitInput) (models.Habit, error) {
	userID, err := r.requireAuth()
	if err != nil {
		return models.Habit{}, err
	}
	in, err = validation.ValidateHabitInput(in)
	if err != nil {
		return models.Habit{}, err
	}

	tempID := models.NewProvisionalID()
	var created models.Habit
	err = r.execute(ctx, command{
		op:      remote.OpCreateHabit,
		habitID: tempID,
		apply: func() error {
			h, err := r.habits.Create(tempID, userID, in, r.now())
			created = h
			return err
		},
		confirm: func(ctx context.Context) error {
			h, err := r.remote.CreateHabit(ctx, userID, in)
			if err != nil {
				return err
			}
			if err := r.habits.ReplaceID(tempID, h); err != nil {
				return err
			}
			r.ledger.RenameHabit(tempID, h.ID)
			created = h
			return nil
		},
		entry: func() *models.OutboxEntry {
			return &models.OutboxEntry{Op: models.OpCreateHabit, HabitID: tempID, Input: &in}
		},
	})
	if err != nil {
		return models.Habit{}, err
	}
	return r.view(created), nil
}

// UpdateHabit applies a partial update.
func (r *Reconciler) UpdateHabit(ctx context.Context, id string, patch models.HabitPatch) (models.Habit, error) {
	if _, err := r.requireAuth(); err != nil {
		return models.Habit{}, err
	}
	current, err := r.habits.Get(id)
	if err != nil {
		return models.Habit{}, err
	}
	patch, err = validation.ValidateHabitPatch(current, patch)
	if err != nil {
		return models.Habit{}, err
	}
	if patch.IsEmpty() {
		return r.view(current), nil
	}

	var updated models.Habit
	err = r.execute(ctx, command{
		op:      remote.OpUpdateHabit,
		habitID: id,
		apply: func() error {
			h, err := r.habits.Update(id, patch, r.now())
			updated = h
			return err
		},
		confirm: func(ctx context.Context) error {
			h, err := r.remote.UpdateHabit(ctx, id, patch)
			if err != nil {
				return err
			}
			r.habits.Put(h)
			updated = h
			return nil
		},
		entry: func() *models.OutboxEntry {
			return &models.OutboxEntry{Op: models.OpUpdateHabit, HabitID: id, Patch: &patch}
		},
	})
	if err != nil {
		return models.Habit{}, err
	}
	return r.view(updated), nil
}

// DeleteHabit removes the habit and all of its completion records.
func (r *Reconciler) DeleteHabit(ctx context.Context, id string) error {
	if _, err := r.requireAuth(); err != nil {
		return err
	}
	return r.execute(ctx, command{
		op:      remote.OpDeleteHabit,
		habitID: id,
		apply: func() error {
			if _, err := r.habits.Delete(id); err != nil {
				return err
			}
			r.ledger.RemoveAllForHabit(id)
			return nil
		},
		confirm: func(ctx context.Context) error {
			return r.remote.DeleteHabit(ctx, id)
		},
		entry: func() *models.OutboxEntry {
			if r.discardQueued(id) {
				return nil
			}
			return &models.OutboxEntry{Op: models.OpDeleteHabit, HabitID: id}
		},
	})
}

// SetAlternativeCompletionDate designates date as the make-up completion of
// the weekly occurrence missed on missedDate.
func (r *Reconciler) SetAlternativeCompletionDate(ctx context.Context, habitID, missedDate, date string) (models.Habit, error) {
	if _, err := r.requireAuth(); err != nil {
		return models.Habit{}, err
	}
	missedDate, err := utils.NormalizeDate(missedDate)
	if err != nil {
		return models.Habit{}, apperrors.Validationf("%v", err)
	}
	date, err = utils.NormalizeDate(date)
	if err != nil {
		return models.Habit{}, apperrors.Validationf("%v", err)
	}

	var updated models.Habit
	err = r.execute(ctx, command{
		op:      remote.OpUpdateHabit,
		habitID: habitID,
		apply: func() error {
			h, err := r.habits.SetAlternativeCompletionDate(habitID, missedDate, date, r.now())
			updated = h
			return err
		},
		confirm: func(ctx context.Context) error {
			dates := slices.Clone(updated.AlternativeCompletionDates)
			h, err := r.remote.UpdateHabit(ctx, habitID, models.HabitPatch{AlternativeCompletionDates: &dates})
			if err != nil {
				return err
			}
			r.habits.Put(h)
			updated = h
			return nil
		},
		entry: func() *models.OutboxEntry {
			dates := slices.Clone(updated.AlternativeCompletionDates)
			return &models.OutboxEntry{
				Op:      models.OpUpdateHabit,
				HabitID: habitID,
				Patch:   &models.HabitPatch{AlternativeCompletionDates: &dates},
			}
		},
	})
	if err != nil {
		return models.Habit{}, err
	}
	return r.view(updated), nil
}
