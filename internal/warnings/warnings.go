// Package warnings finds weekly habits whose scheduled occurrence yesterday
// went uncompleted and proposes make-up dates for them.
package warnings

import (
	"slices"
	"time"

	"github.com/FahimKhamsa/madhabits/internal/constants"
	"github.com/FahimKhamsa/madhabits/internal/models"
	"github.com/FahimKhamsa/madhabits/internal/streak"
	"github.com/FahimKhamsa/madhabits/internal/utils"
)

// HabitSource lists the habits to evaluate.
type HabitSource interface {
	All() []models.Habit
}

// CompletionSource answers completion lookups.
type CompletionSource interface {
	Find(habitID, date string) (models.CompletionRecord, bool)
	CompletedDates(habitID string) []string
}

type Evaluator struct {
	habits      HabitSource
	completions CompletionSource
}

func New(habits HabitSource, completions CompletionSource) *Evaluator {
	return &Evaluator{habits: habits, completions: completions}
}

// Evaluate returns one MissedInstance per weekly habit that was allotted
// yesterday (relative to now's local date) and has neither a completed
// record nor a make-up date left over for it.
func (e *Evaluator) Evaluate(now time.Time) []models.MissedInstance {
	yesterday := utils.Yesterday(now)
	wd, err := utils.DayOfWeek(yesterday)
	if err != nil {
		return nil
	}

	var missed []models.MissedInstance
	for _, h := range e.habits.All() {
		if h.Frequency != models.FrequencyWeekly || len(h.DaysOfWeek) == 0 || !h.IsAllotted(wd) {
			continue
		}
		if rec, ok := e.completions.Find(h.ID, yesterday); ok && rec.Completed {
			continue
		}
		h.CompletedDates = e.completions.CompletedDates(h.ID)
		if h.HasAlternativeDate(yesterday) || streak.MadeUp(h, h.CompletedDates, yesterday) {
			continue
		}
		missed = append(missed, models.MissedInstance{
			Habit:      h,
			MissedDate: yesterday,
			Candidates: Candidates(h, yesterday),
		})
	}
	return missed
}

// MakeUpWindow returns the dates on which a missed occurrence may be made up.
func MakeUpWindow(missedDate string) []string {
	start, err := utils.AddDays(missedDate, 1)
	if err != nil {
		return nil
	}
	end, _ := utils.AddDays(missedDate, constants.MakeUpWindowDays)
	window, _ := utils.DateRange(start, end)
	return window
}

// Candidates returns the window dates that are not allotted days, not already
// completed and not already make-up dates. h.CompletedDates must be filled.
func Candidates(h models.Habit, missedDate string) []string {
	var out []string
	for _, d := range MakeUpWindow(missedDate) {
		wd, _ := utils.DayOfWeek(d)
		if h.IsAllotted(wd) || h.HasAlternativeDate(d) || slices.Contains(h.CompletedDates, d) {
			continue
		}
		out = append(out, d)
	}
	return out
}
