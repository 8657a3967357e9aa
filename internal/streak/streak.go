package streak

import (
	"math"
	"slices"
	"time"

	"github.com/FahimKhamsa/madhabits/internal/constants"
	"github.com/FahimKhamsa/madhabits/internal/models"
	"github.com/FahimKhamsa/madhabits/internal/utils"
)

// Input is everything the calculator needs about one habit.
type Input struct {
	Frequency models.Frequency
	// DaysOfWeek are the allotted weekdays of a weekly habit.
	DaysOfWeek []time.Weekday
	// Completed holds the dates with a completed record, in any order.
	Completed []string
	// Alternatives are make-up dates of a weekly habit.
	Alternatives []string
	// Since is the date the habit was created. Uncompleted weekly days before
	// it neither break a run nor claim make-up dates. Empty means no bound.
	Since string
	// Today is the local calendar date the streak is evaluated on.
	Today string
}

// Result is a pair of streak lengths. Best is never below Current.
type Result struct {
	Current int
	Best    int
}

// ForHabit calculates the streak of h from the given completed dates.
func ForHabit(h models.Habit, completed []string, today string) Result {
	return Calculate(Input{
		Frequency:    h.Frequency,
		DaysOfWeek:   h.DaysOfWeek,
		Completed:    completed,
		Alternatives: h.AlternativeCompletionDates,
		Since:        createdOn(h),
		Today:        today,
	})
}

// createdOn returns the creation date of h, or "" when it is unknown.
func createdOn(h models.Habit) string {
	if h.CreatedAt.IsZero() {
		return ""
	}
	return utils.Today(h.CreatedAt)
}

// sinceDay parses an optional Since date into a day number.
func sinceDay(since string) int {
	n, err := utils.DayNumber(since)
	if err != nil {
		return math.MinInt
	}
	return n
}

// Calculate returns the current and best streak. Dates after Today never
// count, and malformed dates are ignored.
func Calculate(in Input) Result {
	today, err := utils.DayNumber(in.Today)
	if err != nil {
		return Result{}
	}

	var r Result
	switch in.Frequency {
	case models.FrequencyWeekly:
		r = weekly(in, today)
	case models.FrequencyMonthly:
		r = monthly(in.Completed, in.Today)
	default:
		r = consecutive(dayNumbers(in.Completed, today), today)
	}
	if r.Best < r.Current {
		r.Best = r.Current
	}
	return r
}

// dayNumbers returns the sorted, deduplicated day numbers on or before limit.
func dayNumbers(dates []string, limit int) []int {
	out := make([]int, 0, len(dates))
	for _, d := range dates {
		n, err := utils.DayNumber(d)
		if err != nil || n > limit {
			continue
		}
		out = append(out, n)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// consecutive computes runs over sorted unit indexes (days or months). The
// current run must end at now or now-1.
func consecutive(units []int, now int) Result {
	if len(units) == 0 {
		return Result{}
	}

	best, run := 1, 1
	for i := 1; i < len(units); i++ {
		if units[i] == units[i-1]+1 {
			run++
		} else {
			run = 1
		}
		best = max(best, run)
	}

	last := units[len(units)-1]
	if last != now && last != now-1 {
		return Result{Current: 0, Best: best}
	}
	current := 1
	for i := len(units) - 1; i > 0 && units[i-1] == units[i]-1; i-- {
		current++
	}
	return Result{Current: current, Best: best}
}

func monthly(completed []string, today string) Result {
	now, err := utils.MonthIndex(today)
	if err != nil {
		return Result{}
	}
	months := make([]int, 0, len(completed))
	for _, d := range completed {
		if d > today {
			continue
		}
		m, err := utils.MonthIndex(d)
		if err != nil {
			continue
		}
		months = append(months, m)
	}
	slices.Sort(months)
	return consecutive(slices.Compact(months), now)
}

// makeUps hands out make-up dates to open allotted days. Each date is used
// at most once, by the earliest open day it can cover.
type makeUps struct {
	dates []int
	used  []bool
}

func newMakeUps(dates []int) *makeUps {
	return &makeUps{dates: dates, used: make([]bool, len(dates))}
}

// claim takes the first free make-up date within the window after day.
func (m *makeUps) claim(day int) bool {
	for i, a := range m.dates {
		if m.used[i] || a <= day {
			continue
		}
		if a > day+constants.MakeUpWindowDays {
			break
		}
		m.used[i] = true
		return true
	}
	return false
}

// weekly walks every allotted day from the first relevant date up to today.
// A day counts when it was completed or when it can claim a make-up date. An
// unsatisfied day that is today does not break the run because it can still
// be completed.
func weekly(in Input, today int) Result {
	if len(in.DaysOfWeek) == 0 {
		return Result{}
	}
	done := dayNumbers(in.Completed, today)
	alts := dayNumbers(in.Alternatives, today)
	if len(done) == 0 && len(alts) == 0 {
		return Result{}
	}

	start := today
	if len(done) > 0 {
		start = done[0]
	}
	if len(alts) > 0 {
		start = min(start, alts[0]-constants.MakeUpWindowDays)
	}

	completed := make(map[int]bool, len(done))
	for _, n := range done {
		completed[n] = true
	}
	pool := newMakeUps(alts)
	since := sinceDay(in.Since)

	var best, run int
	for day := start; day <= today; day++ {
		wd, _ := utils.DayOfWeek(utils.FromDayNumber(day))
		if !slices.Contains(in.DaysOfWeek, wd) || (day < since && !completed[day]) {
			continue
		}

		satisfied := completed[day] || pool.claim(day)
		switch {
		case satisfied:
			run++
			best = max(best, run)
		case day == today:
			// still open
		default:
			run = 0
		}
	}
	return Result{Current: run, Best: best}
}

// MadeUp reports whether the allotted day date is covered by a make-up date
// of h after every earlier open allotted day has claimed its own, using the
// same matching as the streak. Make-up dates after date count even when they
// still lie in the future. completed holds the habit's completed dates.
func MadeUp(h models.Habit, completed []string, date string) bool {
	target, err := utils.DayNumber(date)
	if err != nil || len(h.DaysOfWeek) == 0 {
		return false
	}
	alts := dayNumbers(h.AlternativeCompletionDates, math.MaxInt)
	if len(alts) == 0 {
		return false
	}
	done := make(map[int]bool, len(completed))
	for _, n := range dayNumbers(completed, target) {
		done[n] = true
	}

	pool := newMakeUps(alts)
	since := sinceDay(createdOn(h))
	for day := alts[0] - constants.MakeUpWindowDays; day < target; day++ {
		wd, _ := utils.DayOfWeek(utils.FromDayNumber(day))
		if slices.Contains(h.DaysOfWeek, wd) && !done[day] && day >= since {
			pool.claim(day)
		}
	}
	return pool.claim(target)
}
