package validation

import (
	"errors"
	"reflect"
	"testing"
	"time"

	apperrors "github.com/FahimKhamsa/madhabits/internal/errors"
	"github.com/FahimKhamsa/madhabits/internal/models"
)

func TestValidateHabitInput(t *testing.T) {
	tests := []struct {
		name     string
		input    models.HabitInput
		wantErr  bool
		wantDays []time.Weekday
	}{
		{
			name:  "valid daily",
			input: models.HabitInput{Name: "Meditate", Frequency: models.FrequencyDaily},
		},
		{
			name:     "weekly days sorted and deduplicated",
			input:    models.HabitInput{Name: "Gym", Frequency: models.FrequencyWeekly, DaysOfWeek: []time.Weekday{5, 1, 3, 1}},
			wantDays: []time.Weekday{1, 3, 5},
		},
		{
			name:    "blank name",
			input:   models.HabitInput{Name: "   ", Frequency: models.FrequencyDaily},
			wantErr: true,
		},
		{
			name:    "missing frequency",
			input:   models.HabitInput{Name: "Read"},
			wantErr: true,
		},
		{
			name:    "unknown frequency",
			input:   models.HabitInput{Name: "Read", Frequency: "yearly"},
			wantErr: true,
		},
		{
			name:    "weekly without days",
			input:   models.HabitInput{Name: "Gym", Frequency: models.FrequencyWeekly},
			wantErr: true,
		},
		{
			name:    "weekday out of range",
			input:   models.HabitInput{Name: "Gym", Frequency: models.FrequencyWeekly, DaysOfWeek: []time.Weekday{7}},
			wantErr: true,
		},
		{
			name:    "bad color",
			input:   models.HabitInput{Name: "Gym", Frequency: models.FrequencyDaily, Color: "blue"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateHabitInput(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateHabitInput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, apperrors.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				return
			}
			if tt.wantDays != nil && !reflect.DeepEqual(got.DaysOfWeek, tt.wantDays) {
				t.Errorf("DaysOfWeek = %v, want %v", got.DaysOfWeek, tt.wantDays)
			}
		})
	}
}

func TestValidateHabitPatch(t *testing.T) {
	daily := models.Habit{ID: "h1", Name: "Read", Frequency: models.FrequencyDaily}
	weekly := models.Habit{ID: "h2", Name: "Gym", Frequency: models.FrequencyWeekly, DaysOfWeek: []time.Weekday{1}}
	weeklyFreq := models.FrequencyWeekly
	blank := " "
	noDays := []time.Weekday{}
	dates := []string{"2024-01-03", "2024-01-02", "2024-01-03"}
	badDates := []string{"2024/01/03"}

	if _, err := ValidateHabitPatch(daily, models.HabitPatch{Frequency: &weeklyFreq}); err == nil {
		t.Error("switching to weekly without days should fail")
	}
	if _, err := ValidateHabitPatch(daily, models.HabitPatch{Name: &blank}); err == nil {
		t.Error("blank name should fail")
	}
	if _, err := ValidateHabitPatch(weekly, models.HabitPatch{DaysOfWeek: &noDays}); err == nil {
		t.Error("clearing days of a weekly habit should fail")
	}
	if _, err := ValidateHabitPatch(weekly, models.HabitPatch{AlternativeCompletionDates: &badDates}); err == nil {
		t.Error("malformed alternative date should fail")
	}

	p, err := ValidateHabitPatch(weekly, models.HabitPatch{AlternativeCompletionDates: &dates})
	if err != nil {
		t.Fatalf("failed to validate patch: %v", err)
	}
	if want := []string{"2024-01-02", "2024-01-03"}; !reflect.DeepEqual(*p.AlternativeCompletionDates, want) {
		t.Errorf("AlternativeCompletionDates = %v, want %v", *p.AlternativeCompletionDates, want)
	}
}

func TestHabitValidatorRegistersNotBlank(t *testing.T) {
	v, err := newHabitValidator()
	if err != nil {
		t.Fatalf("newHabitValidator() error = %v", err)
	}

	tests := []struct {
		name    string
		input   models.HabitInput
		wantErr bool
	}{
		{"name", models.HabitInput{Name: "Read", Frequency: models.FrequencyDaily}, false},
		{"blank name", models.HabitInput{Name: "   ", Frequency: models.FrequencyDaily}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
