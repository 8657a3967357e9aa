package sqlite

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/FahimKhamsa/madhabits/internal/models"
	"github.com/FahimKhamsa/madhabits/internal/storage"
)

func setupTestSQLiteStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store := NewStore(path)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestSnapshotRoundTrip(t *testing.T) {
	store, path := setupTestSQLiteStore(t)

	synced := time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	patchName := "Lift"
	want := storage.Snapshot{
		Version: storage.SnapshotVersion,
		UserID:  "u1",
		Habits: []models.Habit{{
			ID:                         "h1",
			UserID:                     "u1",
			Name:                       "Gym",
			Icon:                       "🏋",
			Color:                      "#FF0000",
			Frequency:                  models.FrequencyWeekly,
			DaysOfWeek:                 []time.Weekday{time.Monday, time.Thursday},
			Streak:                     2,
			BestStreak:                 5,
			AlternativeCompletionDates: []string{"2024-01-03"},
			CreatedAt:                  created,
			UpdatedAt:                  created,
		}},
		Completions: []models.CompletionRecord{{
			ID: "r1", HabitID: "h1", UserID: "u1", Date: "2024-01-01", Completed: true, Note: "leg day",
			CreatedAt: created, UpdatedAt: created,
		}},
		LastSyncAt: &synced,
		Outbox: []models.OutboxEntry{{
			ID:       "o1",
			Op:       models.OpUpdateHabit,
			HabitID:  "h1",
			Patch:    &models.HabitPatch{Name: &patchName},
			QueuedAt: synced,
		}},
	}

	if err := store.SaveSnapshot(want); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}
	store.Close()

	reopened := NewStore(path)
	if err := reopened.Load(); err != nil {
		t.Fatalf("failed to load store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.LoadSnapshot()
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestEmptySnapshot(t *testing.T) {
	store, _ := setupTestSQLiteStore(t)
	snap, err := store.LoadSnapshot()
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if snap.UserID != "" || len(snap.Habits) != 0 || snap.LastSyncAt != nil {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
}

func TestSaveOverwrites(t *testing.T) {
	store, _ := setupTestSQLiteStore(t)
	_ = store.SaveSnapshot(storage.Snapshot{UserID: "u1", Habits: []models.Habit{{ID: "h1"}}})
	if err := store.SaveSnapshot(storage.Snapshot{UserID: "u2"}); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}
	snap, _ := store.LoadSnapshot()
	if snap.UserID != "u2" || len(snap.Habits) != 0 {
		t.Errorf("second save did not replace the first: %+v", snap)
	}
}

func TestLoadUninitialized(t *testing.T) {
	err := NewStore(filepath.Join(t.TempDir(), "missing.db")).Load()
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected not initialized error, got %v", err)
	}
}
