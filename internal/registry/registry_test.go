package registry

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/FahimKhamsa/madhabits/internal/errors"
	"github.com/FahimKhamsa/madhabits/internal/models"
)

var testNow = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func weeklyInput() models.HabitInput {
	return models.HabitInput{
		Name:       "Gym",
		Frequency:  models.FrequencyWeekly,
		DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
	}
}

func TestCreateAndGet(t *testing.T) {
	r := New(nil)
	h, err := r.Create("h1", "u1", weeklyInput(), testNow)
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}
	if h.Streak != 0 || h.BestStreak != 0 {
		t.Errorf("new habit should start with zero streaks, got %d/%d", h.Streak, h.BestStreak)
	}

	got, err := r.Get("h1")
	if err != nil {
		t.Fatalf("failed to get habit: %v", err)
	}
	if got.Name != "Gym" || got.UserID != "u1" {
		t.Errorf("unexpected habit %+v", got)
	}

	if _, err := r.Create("h1", "u1", weeklyInput(), testNow); err == nil {
		t.Error("duplicate id should be rejected")
	}
	if _, err := r.Get("missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	r := New(nil)
	in := weeklyInput()
	in.DaysOfWeek = nil
	if _, err := r.Create("h1", "u1", in, testNow); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if r.Len() != 0 {
		t.Error("invalid create must not add a habit")
	}
}

func TestUpdateAndDelete(t *testing.T) {
	r := New(nil)
	_, _ = r.Create("h1", "u1", weeklyInput(), testNow)

	name := "Lift"
	later := testNow.Add(time.Hour)
	h, err := r.Update("h1", models.HabitPatch{Name: &name}, later)
	if err != nil {
		t.Fatalf("failed to update habit: %v", err)
	}
	if h.Name != "Lift" || !h.UpdatedAt.Equal(later) {
		t.Errorf("update not applied: %+v", h)
	}

	if _, err := r.Update("missing", models.HabitPatch{Name: &name}, later); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	removed, err := r.Delete("h1")
	if err != nil || removed.ID != "h1" {
		t.Fatalf("failed to delete habit: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
}

func TestPutStripsDerivedDates(t *testing.T) {
	r := New(nil)
	r.Put(models.Habit{ID: "h1", Name: "Read", Frequency: models.FrequencyDaily, CompletedDates: []string{"2024-01-01"}})
	h, _ := r.Get("h1")
	if h.CompletedDates != nil {
		t.Errorf("registry must not store completed dates, got %v", h.CompletedDates)
	}
}

func TestReplaceID(t *testing.T) {
	r := New([]models.Habit{
		{ID: "a", Name: "A", Frequency: models.FrequencyDaily},
		{ID: "temp-1", Name: "B", Frequency: models.FrequencyDaily},
		{ID: "c", Name: "C", Frequency: models.FrequencyDaily},
	})
	if err := r.ReplaceID("temp-1", models.Habit{ID: "server-1", Name: "B", Frequency: models.FrequencyDaily}); err != nil {
		t.Fatalf("failed to replace id: %v", err)
	}
	all := r.All()
	if len(all) != 3 || all[1].ID != "server-1" {
		t.Errorf("provisional habit not replaced in place: %+v", all)
	}
}

func TestPutAtRestoresPosition(t *testing.T) {
	r := New([]models.Habit{
		{ID: "a", Name: "A", Frequency: models.FrequencyDaily},
		{ID: "b", Name: "B", Frequency: models.FrequencyDaily},
		{ID: "c", Name: "C", Frequency: models.FrequencyDaily},
	})
	i := r.IndexOf("b")
	removed, err := r.Delete("b")
	if err != nil {
		t.Fatal(err)
	}
	r.PutAt(i, removed)

	var ids []string
	for _, h := range r.All() {
		ids = append(ids, h.ID)
	}
	if len(ids) != 3 || ids[1] != "b" {
		t.Errorf("PutAt() order = %v, want [a b c]", ids)
	}

	r.PutAt(0, models.Habit{ID: "c", Name: "C2", Frequency: models.FrequencyDaily})
	if h, _ := r.Get("c"); h.Name != "C2" || r.IndexOf("c") != 2 {
		t.Errorf("PutAt() on an existing habit must replace in place")
	}
	if r.IndexOf("missing") != -1 {
		t.Error("IndexOf() of unknown id should be -1")
	}
}

func TestSetAlternativeCompletionDate(t *testing.T) {
	// Monday 2024-01-08 was missed.
	missed := "2024-01-08"
	tests := []struct {
		name    string
		date    string
		wantErr bool
	}{
		{"first day of window", "2024-01-09", false},
		{"last day of window", "2024-01-15", false},
		{"one past the window", "2024-01-16", true},
		{"on the missed date", "2024-01-08", true},
		{"before the missed date", "2024-01-07", true},
		{"malformed", "01/09/2024", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(nil)
			_, _ = r.Create("h1", "u1", weeklyInput(), testNow)

			h, err := r.SetAlternativeCompletionDate("h1", missed, tt.date, testNow)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetAlternativeCompletionDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, apperrors.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				stored, _ := r.Get("h1")
				if len(stored.AlternativeCompletionDates) != 0 {
					t.Error("rejected date must not be stored")
				}
				return
			}
			if !h.HasAlternativeDate(tt.date) {
				t.Errorf("date %s not recorded", tt.date)
			}
		})
	}
}

func TestSetAlternativeCompletionDateIdempotentAndWeeklyOnly(t *testing.T) {
	r := New(nil)
	_, _ = r.Create("h1", "u1", weeklyInput(), testNow)
	_, _ = r.SetAlternativeCompletionDate("h1", "2024-01-08", "2024-01-10", testNow)
	h, err := r.SetAlternativeCompletionDate("h1", "2024-01-08", "2024-01-10", testNow)
	if err != nil {
		t.Fatalf("repeat should succeed: %v", err)
	}
	if len(h.AlternativeCompletionDates) != 1 {
		t.Errorf("expected one alternative date, got %v", h.AlternativeCompletionDates)
	}

	_, _ = r.Create("d1", "u1", models.HabitInput{Name: "Read", Frequency: models.FrequencyDaily}, testNow)
	if _, err := r.SetAlternativeCompletionDate("d1", "2024-01-08", "2024-01-10", testNow); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("daily habit should reject alternative dates, got %v", err)
	}
}

func TestHabitsForDate(t *testing.T) {
	r := New(nil)
	_, _ = r.Create("daily", "u1", models.HabitInput{Name: "Read", Frequency: models.FrequencyDaily}, testNow)
	_, _ = r.Create("weekly", "u1", weeklyInput(), testNow)
	// Created on the 15th.
	_, _ = r.Create("monthly", "u1", models.HabitInput{Name: "Budget", Frequency: models.FrequencyMonthly}, testNow)

	tests := []struct {
		date string
		want []string
	}{
		{"2024-02-15", []string{"daily", "monthly"}}, // Thursday
		{"2024-02-16", []string{"daily", "weekly"}},  // Friday
		{"2024-02-14", []string{"daily", "weekly"}},  // Wednesday
		{"2024-02-17", []string{"daily"}},            // Saturday
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			got, err := r.HabitsForDate(tt.date, time.UTC)
			if err != nil {
				t.Fatalf("failed to get habits: %v", err)
			}
			var ids []string
			for _, h := range got {
				ids = append(ids, h.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("HabitsForDate(%s) = %v, want %v", tt.date, ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("HabitsForDate(%s) = %v, want %v", tt.date, ids, tt.want)
				}
			}
		})
	}
}

func TestMonthlyLock(t *testing.T) {
	h := models.Habit{Name: "Budget", Frequency: models.FrequencyMonthly}
	completed := []string{"2024-01-20", "2024-02-03"}

	if err := CheckMonthlyLock(h, completed, "2024-02-10"); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected lock violation, got %v", err)
	}
	if err := CheckMonthlyLock(h, completed, "2024-02-03"); err != nil {
		t.Errorf("locked date itself must stay toggleable: %v", err)
	}
	if err := CheckMonthlyLock(h, completed, "2024-03-01"); err != nil {
		t.Errorf("new month must be free: %v", err)
	}
	daily := models.Habit{Frequency: models.FrequencyDaily}
	if err := CheckMonthlyLock(daily, completed, "2024-02-10"); err != nil {
		t.Errorf("daily habit must not be locked: %v", err)
	}
}
