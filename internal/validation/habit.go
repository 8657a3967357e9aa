package validation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/FahimKhamsa/madhabits/internal/constants"
	apperrors "github.com/FahimKhamsa/madhabits/internal/errors"
	"github.com/FahimKhamsa/madhabits/internal/models"
)

// habitValidate is the shared validator for habit payloads.
var habitValidate *validator.Validate

func init() {
	v, err := newHabitValidator()
	if err != nil {
		panic(fmt.Sprintf("validation: %v", err))
	}
	habitValidate = v
}

// newHabitValidator returns a validator with the custom habit tags
// registered.
func newHabitValidator() (*validator.Validate, error) {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validateNotBlank); err != nil {
		return nil, fmt.Errorf("register notblank: %w", err)
	}
	return v, nil
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// ValidateHabitInput checks a create payload and returns a normalized copy
// (trimmed name, sorted and deduplicated weekdays).
func ValidateHabitInput(in models.HabitInput) (models.HabitInput, error) {
	if err := habitValidate.Struct(in); err != nil {
		return in, wrap(err)
	}
	in.Name = strings.TrimSpace(in.Name)

	days, err := normalizeDays(in.Frequency, in.DaysOfWeek)
	if err != nil {
		return in, err
	}
	in.DaysOfWeek = days
	return in, nil
}

// ValidateHabitPatch checks a partial update against the habit it applies to.
// The resulting habit must still be valid as a whole.
func ValidateHabitPatch(current models.Habit, patch models.HabitPatch) (models.HabitPatch, error) {
	if err := habitValidate.Struct(patch); err != nil {
		return patch, wrap(err)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return patch, apperrors.Validationf("habit name cannot be empty")
	}

	freq := current.Frequency
	if patch.Frequency != nil {
		freq = *patch.Frequency
	}
	days := current.DaysOfWeek
	if patch.DaysOfWeek != nil {
		days = *patch.DaysOfWeek
	}
	// Switching to weekly without supplying days is only valid when the
	// habit already carries some.
	normalized, err := normalizeDays(freq, days)
	if err != nil {
		return patch, err
	}
	if patch.DaysOfWeek != nil || (patch.Frequency != nil && freq == models.FrequencyWeekly) {
		patch.DaysOfWeek = &normalized
	}

	if patch.AlternativeCompletionDates != nil {
		dates, err := ValidateDates(*patch.AlternativeCompletionDates)
		if err != nil {
			return patch, err
		}
		patch.AlternativeCompletionDates = &dates
	}
	return patch, nil
}

// ValidateDates checks and normalizes a list of dates into a sorted set.
func ValidateDates(dates []string) ([]string, error) {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if _, err := time.Parse(constants.DateFormat, d); err != nil {
			return nil, apperrors.Validationf("invalid date %q (expected YYYY-MM-DD)", d)
		}
		out = append(out, d)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func normalizeDays(freq models.Frequency, days []time.Weekday) ([]time.Weekday, error) {
	if freq != models.FrequencyWeekly {
		return nil, nil
	}
	if len(days) == 0 {
		return nil, apperrors.Validationf("weekly habits need at least one day of the week")
	}
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			return nil, apperrors.Validationf("invalid day of week %d (expected 0-6)", d)
		}
		out = append(out, d)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func wrap(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.Validationf("field %s failed %q check", strings.ToLower(fe.Field()), fe.Tag())
	}
	return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
}
