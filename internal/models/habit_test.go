package models

import (
	"testing"
	"time"
)

func TestHabitCloneIsDeep(t *testing.T) {
	h := Habit{
		ID:                         "h1",
		DaysOfWeek:                 []time.Weekday{time.Monday},
		AlternativeCompletionDates: []string{"2024-01-02"},
		CompletedDates:             []string{"2024-01-01"},
	}
	c := h.Clone()
	c.DaysOfWeek[0] = time.Friday
	c.AlternativeCompletionDates[0] = "2024-02-02"
	c.CompletedDates = append(c.CompletedDates, "2024-01-03")

	if h.DaysOfWeek[0] != time.Monday {
		t.Error("clone shares DaysOfWeek with original")
	}
	if h.AlternativeCompletionDates[0] != "2024-01-02" {
		t.Error("clone shares AlternativeCompletionDates with original")
	}
	if len(h.CompletedDates) != 1 {
		t.Error("clone shares CompletedDates with original")
	}
}

func TestHabitIsDueOn(t *testing.T) {
	created := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		habit Habit
		date  time.Time
		want  bool
	}{
		{"daily always due", Habit{Frequency: FrequencyDaily}, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), true},
		{"weekly allotted", Habit{Frequency: FrequencyWeekly, DaysOfWeek: []time.Weekday{time.Monday}}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"weekly not allotted", Habit{Frequency: FrequencyWeekly, DaysOfWeek: []time.Weekday{time.Monday}}, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), false},
		{"monthly on creation day", Habit{Frequency: FrequencyMonthly, CreatedAt: created}, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"monthly on other day", Habit{Frequency: FrequencyMonthly, CreatedAt: created}, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.habit.IsDueOn(tt.date, time.UTC); got != tt.want {
				t.Errorf("IsDueOn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewHabitDefaults(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHabit("temp-1", "u1", HabitInput{
		Name:       "  Read  ",
		Frequency:  FrequencyDaily,
		DaysOfWeek: []time.Weekday{time.Monday},
	}, now)

	if h.Name != "Read" {
		t.Errorf("Name = %q, want trimmed", h.Name)
	}
	if h.Icon == "" || h.Color == "" {
		t.Errorf("expected display defaults, got icon=%q color=%q", h.Icon, h.Color)
	}
	if len(h.DaysOfWeek) != 0 {
		t.Errorf("daily habit should not keep weekdays, got %v", h.DaysOfWeek)
	}
	if !h.IsProvisional() {
		t.Error("expected temp- id to be provisional")
	}
}

func TestHabitPatchApply(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	h := Habit{ID: "h1", Name: "Run", Frequency: FrequencyWeekly, DaysOfWeek: []time.Weekday{time.Monday}, UpdatedAt: now}

	name := "Jog"
	freq := FrequencyDaily
	patched := HabitPatch{Name: &name, Frequency: &freq}.Apply(h, later)

	if patched.Name != "Jog" || patched.Frequency != FrequencyDaily {
		t.Errorf("patch not applied: %+v", patched)
	}
	if patched.DaysOfWeek != nil {
		t.Errorf("switching away from weekly should clear weekdays, got %v", patched.DaysOfWeek)
	}
	if !patched.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", patched.UpdatedAt, later)
	}
	if h.Name != "Run" {
		t.Error("Apply mutated the original habit")
	}
	if (HabitPatch{}).IsEmpty() != true {
		t.Error("zero patch should be empty")
	}
	if !(HabitPatch{Frequency: &freq}).ChangesSchedule() {
		t.Error("frequency change should affect schedule")
	}
}

func TestParseFrequency(t *testing.T) {
	if f, err := ParseFrequency(" Weekly "); err != nil || f != FrequencyWeekly {
		t.Errorf("ParseFrequency() = %q, %v", f, err)
	}
	if _, err := ParseFrequency("yearly"); err == nil {
		t.Error("expected error for unknown frequency")
	}
}
