// Package ledger holds completion records, at most one per habit and date.
//
// Every mutation builds a new slice and swaps it in under the write lock, so
// a slice handed out by Snapshot is never modified afterwards.
package ledger

import (
	"cmp"
	"slices"
	"sync"
	"time"

	apperrors "github.com/FahimKhamsa/madhabits/internal/errors"
	"github.com/FahimKhamsa/madhabits/internal/models"
	"github.com/FahimKhamsa/madhabits/internal/utils"
)

type Ledger struct {
	mu      sync.RWMutex
	records []models.CompletionRecord
	now     func() time.Time
}

// New returns a ledger seeded with records.
func New(records []models.CompletionRecord) *Ledger {
	return &Ledger{records: slices.Clone(records), now: time.Now}
}

// SetClock overrides the time source used for record timestamps.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Toggle flips the record for (habitID, date), replacing its note, or creates
// a completed record with a provisional id when none exists.
func (l *Ledger) Toggle(habitID, userID, date, note string) (models.CompletionRecord, error) {
	date, err := utils.NormalizeDate(date)
	if err != nil {
		return models.CompletionRecord{}, apperrors.Validationf("%v", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	next := slices.Clone(l.records)
	for i, r := range next {
		if r.HabitID == habitID && r.Date == date {
			r.Completed = !r.Completed
			r.Note = note
			r.UpdatedAt = now
			next[i] = r
			l.records = next
			return r, nil
		}
	}

	r := models.CompletionRecord{
		ID:        models.NewProvisionalID(),
		HabitID:   habitID,
		UserID:    userID,
		Date:      date,
		Completed: true,
		Note:      note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	l.records = append(next, r)
	return r, nil
}

// Find returns the record for (habitID, date).
func (l *Ledger) Find(habitID, date string) (models.CompletionRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.records {
		if r.HabitID == habitID && r.Date == date {
			return r, true
		}
	}
	return models.CompletionRecord{}, false
}

// RecordsForHabit returns the habit's records sorted by date.
func (l *Ledger) RecordsForHabit(habitID string) []models.CompletionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.CompletionRecord
	for _, r := range l.records {
		if r.HabitID == habitID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b models.CompletionRecord) int {
		return cmp.Compare(a.Date, b.Date)
	})
	return out
}

// RecordsForDate returns every record on date.
func (l *Ledger) RecordsForDate(date string) []models.CompletionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.CompletionRecord
	for _, r := range l.records {
		if r.Date == date {
			out = append(out, r)
		}
	}
	return out
}

// CompletedDates returns the sorted dates of the habit's completed records.
func (l *Ledger) CompletedDates(habitID string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []string{}
	for _, r := range l.records {
		if r.HabitID == habitID && r.Completed {
			out = append(out, r.Date)
		}
	}
	slices.Sort(out)
	return out
}

// RemoveAllForHabit deletes every record of the habit and returns them.
func (l *Ledger) RemoveAllForHabit(habitID string) []models.CompletionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	var removed []models.CompletionRecord
	next := make([]models.CompletionRecord, 0, len(l.records))
	for _, r := range l.records {
		if r.HabitID == habitID {
			removed = append(removed, r)
			continue
		}
		next = append(next, r)
	}
	l.records = next
	return removed
}

// Entry is a record together with its position in the ledger.
type Entry struct {
	Index  int
	Record models.CompletionRecord
}

// EntriesForHabit returns the habit's records with their positions, in ledger
// order.
func (l *Ledger) EntriesForHabit(habitID string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Entry
	for i, r := range l.records {
		if r.HabitID == habitID {
			out = append(out, Entry{Index: i, Record: r})
		}
	}
	return out
}

// RestoreForHabit drops the habit's current records and puts entries back at
// their positions. When no other habit's records changed in between, the
// ledger ends up exactly as it was when entries were taken.
func (l *Ledger) RestoreForHabit(habitID string, entries []Entry) {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b Entry) int { return cmp.Compare(a.Index, b.Index) })

	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]models.CompletionRecord, 0, len(l.records)+len(sorted))
	for _, r := range l.records {
		if r.HabitID != habitID {
			next = append(next, r)
		}
	}
	for _, e := range sorted {
		next = slices.Insert(next, min(max(e.Index, 0), len(next)), e.Record)
	}
	l.records = next
}

// Upsert stores an authoritative record, replacing whatever record exists
// for the same (habit, date).
func (l *Ledger) Upsert(rec models.CompletionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := slices.Clone(l.records)
	for i, r := range next {
		if r.HabitID == rec.HabitID && r.Date == rec.Date {
			next[i] = rec
			l.records = next
			return
		}
	}
	l.records = append(next, rec)
}

// RenameHabit moves records from one habit id to another, used when a
// provisional habit id is replaced by the remote one.
func (l *Ledger) RenameHabit(from, to string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := slices.Clone(l.records)
	for i := range next {
		if next[i].HabitID == from {
			next[i].HabitID = to
		}
	}
	l.records = next
}

// Replace swaps the whole record set.
func (l *Ledger) Replace(records []models.CompletionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = slices.Clone(records)
}

// Snapshot returns the current record set. The slice must not be modified.
func (l *Ledger) Snapshot() []models.CompletionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clip(l.records)
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
