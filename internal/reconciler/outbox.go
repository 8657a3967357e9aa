package reconciler

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/FahimKhamsa/madhabits/internal/errors"
	"github.com/FahimKhamsa/madhabits/internal/logger"
	"github.com/FahimKhamsa/madhabits/internal/models"
)

// enqueue appends e to the outbox. A toggle of a date that already has a
// queued toggle replaces it, since replay converges to the recorded state.
func (r *Reconciler) enqueue(e models.OutboxEntry) {
	e.ID = uuid.NewString()
	e.QueuedAt = r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if e.Op == models.OpToggleCompletion {
		for i := len(r.outbox) - 1; i >= 0; i-- {
			q := r.outbox[i]
			if q.HabitID != e.HabitID {
				continue
			}
			if q.Op == models.OpCreateHabit || q.Op == models.OpDeleteHabit {
				break
			}
			if q.Op == models.OpToggleCompletion && q.Date == e.Date {
				next := append([]models.OutboxEntry(nil), r.outbox...)
				next[i].Completed = e.Completed
				next[i].Note = e.Note
				next[i].QueuedAt = e.QueuedAt
				r.outbox = next
				return
			}
		}
	}
	r.outbox = append(append([]models.OutboxEntry(nil), r.outbox...), e)
}

// discardQueued drops queued changes made obsolete by deleting habitID. It
// reports true when the habit was never created remotely, in which case
// nothing is left to replay.
func (r *Reconciler) discardQueued(habitID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := false
	for _, q := range r.outbox {
		if q.HabitID == habitID && q.Op == models.OpCreateHabit {
			created = true
			break
		}
	}

	next := make([]models.OutboxEntry, 0, len(r.outbox))
	for _, q := range r.outbox {
		if q.HabitID == habitID && (created || q.Op == models.OpToggleCompletion || q.Op == models.OpUpdateHabit) {
			continue
		}
		next = append(next, q)
	}
	r.outbox = next
	return created
}

type recordKey struct {
	habitID string
	date    string
}

// flushOutbox replays queued mutations in order. The caller holds the gate
// exclusively. On failure the replayed prefix is dropped and the rest stays
// queued for the next attempt.
func (r *Reconciler) flushOutbox(ctx context.Context, userID string) error {
	entries := r.Outbox()
	if len(entries) == 0 {
		return nil
	}
	logger.Debug("Flushing outbox", "entries", len(entries))

	var state map[recordKey]bool
	for i := range entries {
		e := entries[i]
		var err error
		switch e.Op {
		case models.OpCreateHabit:
			err = r.replayCreate(ctx, userID, e, entries[i+1:])
		case models.OpUpdateHabit:
			if e.Patch == nil {
				break
			}
			_, err = r.remote.UpdateHabit(ctx, e.HabitID, *e.Patch)
		case models.OpDeleteHabit:
			err = r.remote.DeleteHabit(ctx, e.HabitID)
		case models.OpToggleCompletion:
			if state == nil {
				state, err = r.remoteState(ctx, userID)
				if err != nil {
					break
				}
			}
			err = r.replayToggle(ctx, e, state)
		default:
			logger.Warn("Dropping unknown outbox entry", "op", e.Op, "id", e.ID)
		}

		if apperrors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Queued mutation targets a missing habit, skipping", "op", e.Op, "habit", e.HabitID)
			err = nil
		}
		if err != nil {
			r.mu.Lock()
			r.outbox = append([]models.OutboxEntry(nil), entries[i:]...)
			r.mu.Unlock()
			r.changed()
			return &apperrors.SyncError{Op: string(e.Op), HabitID: e.HabitID, Err: err}
		}
	}

	r.mu.Lock()
	r.outbox = nil
	r.mu.Unlock()
	r.changed()
	return nil
}

// replayCreate creates the habit remotely and moves the local habit, its
// records and the remaining queued entries over to the authoritative id.
func (r *Reconciler) replayCreate(ctx context.Context, userID string, e models.OutboxEntry, rest []models.OutboxEntry) error {
	if e.Input == nil {
		return nil
	}
	created, err := r.remote.CreateHabit(ctx, userID, *e.Input)
	if err != nil {
		return err
	}
	for i := range rest {
		if rest[i].HabitID == e.HabitID {
			rest[i].HabitID = created.ID
		}
	}

	local, err := r.habits.Get(e.HabitID)
	if err != nil {
		return nil
	}
	local.ID = created.ID
	local.UserID = created.UserID
	local.CreatedAt = created.CreatedAt
	if err := r.habits.ReplaceID(e.HabitID, local); err != nil {
		return err
	}
	r.ledger.RenameHabit(e.HabitID, created.ID)
	return nil
}

// replayToggle converges the remote record to the queued state.
func (r *Reconciler) replayToggle(ctx context.Context, e models.OutboxEntry, state map[recordKey]bool) error {
	key := recordKey{habitID: e.HabitID, date: e.Date}
	if state[key] == e.Completed {
		return nil
	}
	_, rec, err := r.remote.ToggleCompletion(ctx, e.HabitID, e.Date, e.Note)
	if err != nil {
		return err
	}
	state[key] = rec.Completed
	return nil
}

func (r *Reconciler) remoteState(ctx context.Context, userID string) (map[recordKey]bool, error) {
	_, records, err := r.remote.FetchAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	state := make(map[recordKey]bool, len(records))
	for _, rec := range records {
		state[recordKey{habitID: rec.HabitID, date: rec.Date}] = rec.Completed
	}
	return state, nil
}
