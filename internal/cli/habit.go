package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/FahimKhamsa/madhabits/internal/models"
	"github.com/FahimKhamsa/madhabits/internal/notifier"
	"github.com/FahimKhamsa/madhabits/internal/utils"
)

type HabitCmd struct {
	Add      HabitAddCmd      `cmd:"" help:"Add a new habit."`
	List     HabitListCmd     `cmd:"" help:"List habits with their streaks."`
	Today    HabitTodayCmd    `cmd:"" help:"Show the habits due today."`
	Mark     HabitMarkCmd     `cmd:"" help:"Toggle a habit's completion for a day."`
	Edit     HabitEditCmd     `cmd:"" help:"Edit a habit."`
	Delete   HabitDeleteCmd   `cmd:"" help:"Delete a habit and its history."`
	Makeup   HabitMakeupCmd   `cmd:"" help:"Set a make-up date for a missed weekly occurrence."`
	Warnings HabitWarningsCmd `cmd:"" help:"Show weekly habits missed yesterday."`
	Log      HabitLogCmd      `cmd:"" help:"Show habit log (ASCII history)."`
}

type HabitAddCmd struct {
	Name        string `arg:"" help:"Habit name."`
	Frequency   string `help:"daily, weekly or monthly." enum:"daily,weekly,monthly" default:"daily"`
	Days        string `help:"Weekdays of a weekly habit, e.g. mon,wed,fri."`
	Description string `help:"Optional description."`
	Icon        string `help:"Icon shown next to the name."`
	Color       string `help:"Hex color, e.g. #10B981."`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	goCtx := context.Background()
	rec, err := ctx.Reconciler(goCtx)
	if err != nil {
		return err
	}

	in := models.HabitInput{
		Name:        c.Name,
		Description: c.Description,
		Icon:        c.Icon,
		Color:       c.Color,
		Frequency:   models.Frequency(c.Frequency),
	}
	if c.Days != "" {
		if in.DaysOfWeek, err = ParseWeekdays(c.Days); err != nil {
			return err
		}
	}

	h, err := rec.AddHabit(goCtx, in)
	if err != nil {
		return err
	}
	ctx.printf("Added habit: %s (%s)\n", habitLabel(h), FormatFrequency(h, rec.Location()))
	printQueued(ctx, h.IsProvisional())
	return nil
}

type HabitListCmd struct{}

func (c *HabitListCmd) Run(ctx *Context) error {
	rec, err := ctx.Reconciler(context.Background())
	if err != nil {
		return err
	}

	habits := rec.Habits()
	if len(habits) == 0 {
		ctx.println("No habits found.")
		return nil
	}

	nameCol := lipgloss.NewStyle().Width(28)
	freqCol := lipgloss.NewStyle().Width(24)
	ctx.println(headerStyle.Render(nameCol.Render("Habit") + freqCol.Render("Schedule") + "Streak (best)"))
	for _, h := range habits {
		line := nameCol.Render(habitLabel(h)) + freqCol.Render(FormatFrequency(h, rec.Location())) + fmt.Sprintf("%d (%d)", h.Streak, h.BestStreak)
		if h.IsProvisional() {
			line += dimStyle.Render("  [not synced]")
		}
		ctx.println(line)
	}
	return nil
}

type HabitTodayCmd struct {
	Date string `help:"Date in YYYY-MM-DD format (default: today)."`
}

func (c *HabitTodayCmd) Run(ctx *Context) error {
	rec, err := ctx.Reconciler(context.Background())
	if err != nil {
		return err
	}

	day := c.Date
	if day == "" {
		day = rec.Today()
	}
	due, err := rec.GetHabitsForDate(day)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		ctx.printf("No habits due on %s.\n", day)
		return nil
	}

	records, err := rec.GetCompletionsForDate(day)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(records))
	for _, r := range records {
		done[r.HabitID] = r.Completed
	}

	ctx.printf("Habits for %s:\n\n", day)
	recorded := 0
	for _, h := range due {
		status := "[ ]"
		if done[h.ID] {
			status = doneStyle.Render("[x]")
			recorded++
		}
		ctx.printf("%s %s  %s\n", status, habitLabel(h), dimStyle.Render(fmt.Sprintf("streak %d", h.Streak)))
	}
	ctx.printf("\nRecorded: %d/%d\n", recorded, len(due))
	return nil
}

type HabitMarkCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Date  string `help:"Date in YYYY-MM-DD format (default: today)."`
	Note  string `help:"Optional note for this entry."`
}

func (c *HabitMarkCmd) Run(ctx *Context) error {
	goCtx := context.Background()
	rec, err := ctx.Reconciler(goCtx)
	if err != nil {
		return err
	}
	h, err := resolveHabit(rec, c.Habit)
	if err != nil {
		return err
	}

	day := c.Date
	if day == "" {
		day = rec.Today()
	}
	r, err := rec.ToggleCompletion(goCtx, h.ID, day, c.Note)
	if err != nil {
		return err
	}
	updated, err := rec.GetHabitByID(r.HabitID)
	if err != nil {
		return err
	}

	verb := "Unmarked"
	if r.Completed {
		verb = "Marked"
	}
	ctx.printf("%s habit %s for %s (streak %d)\n", verb, habitLabel(updated), r.Date, updated.Streak)
	printQueued(ctx, !rec.IsOnline() || h.IsProvisional())
	return nil
}

type HabitEditCmd struct {
	Habit       string `arg:"" help:"Habit id or name."`
	Name        string `help:"New name."`
	Description string `help:"New description."`
	Icon        string `help:"New icon."`
	Color       string `help:"New hex color."`
	Frequency   string `help:"New frequency." enum:",daily,weekly,monthly" default:""`
	Days        string `help:"New weekdays for a weekly habit, e.g. mon,thu."`
}

func (c *HabitEditCmd) patch() (models.HabitPatch, error) {
	var p models.HabitPatch
	if c.Name != "" {
		p.Name = &c.Name
	}
	if c.Description != "" {
		p.Description = &c.Description
	}
	if c.Icon != "" {
		p.Icon = &c.Icon
	}
	if c.Color != "" {
		p.Color = &c.Color
	}
	if c.Frequency != "" {
		f := models.Frequency(c.Frequency)
		p.Frequency = &f
	}
	if c.Days != "" {
		days, err := ParseWeekdays(c.Days)
		if err != nil {
			return p, err
		}
		p.DaysOfWeek = &days
	}
	if p.IsEmpty() {
		return p, fmt.Errorf("nothing to change: pass at least one of --name, --description, --icon, --color, --frequency or --days")
	}
	return p, nil
}

func (c *HabitEditCmd) Run(ctx *Context) error {
	patch, err := c.patch()
	if err != nil {
		return err
	}
	goCtx := context.Background()
	rec, err := ctx.Reconciler(goCtx)
	if err != nil {
		return err
	}
	h, err := resolveHabit(rec, c.Habit)
	if err != nil {
		return err
	}

	updated, err := rec.UpdateHabit(goCtx, h.ID, patch)
	if err != nil {
		return err
	}
	ctx.printf("Updated habit: %s (%s)\n", habitLabel(updated), FormatFrequency(updated, rec.Location()))
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Yes   bool   `short:"y" help:"Delete without asking for confirmation."`
}

func (c *HabitDeleteCmd) Run(ctx *Context) error {
	goCtx := context.Background()
	rec, err := ctx.Reconciler(goCtx)
	if err != nil {
		return err
	}
	h, err := resolveHabit(rec, c.Habit)
	if err != nil {
		return err
	}

	if !c.Yes {
		ok, err := confirmFunc(
			fmt.Sprintf("Delete %s?", h.Name),
			fmt.Sprintf("All %d completions of this habit are deleted with it.", len(h.CompletedDates)),
		)
		if err != nil {
			return err
		}
		if !ok {
			ctx.println("Delete cancelled.")
			return nil
		}
	}

	ctx.PerformAutomaticBackup()
	if err := rec.DeleteHabit(goCtx, h.ID); err != nil {
		return err
	}
	ctx.printf("Deleted habit: %s\n", h.Name)
	return nil
}

type HabitMakeupCmd struct {
	Habit  string `arg:"" help:"Habit id or name."`
	Missed string `arg:"" help:"The missed date (YYYY-MM-DD)."`
	Date   string `arg:"" help:"The make-up date, within 7 days after the missed date."`
}

func (c *HabitMakeupCmd) Run(ctx *Context) error {
	goCtx := context.Background()
	rec, err := ctx.Reconciler(goCtx)
	if err != nil {
		return err
	}
	h, err := resolveHabit(rec, c.Habit)
	if err != nil {
		return err
	}

	updated, err := rec.SetAlternativeCompletionDate(goCtx, h.ID, c.Missed, c.Date)
	if err != nil {
		return err
	}
	ctx.printf("%s: %s makes up for %s (streak %d)\n", habitLabel(updated), c.Date, c.Missed, updated.Streak)
	return nil
}

type HabitWarningsCmd struct {
	Interactive bool `short:"i" help:"Pick a make-up date for each missed habit."`
	Notify      bool `help:"Also send the warnings to the tray app."`
}

func (c *HabitWarningsCmd) Run(ctx *Context) error {
	goCtx := context.Background()
	rec, err := ctx.Reconciler(goCtx)
	if err != nil {
		return err
	}

	missed := rec.Warnings()
	if len(missed) == 0 {
		ctx.println("No missed habits yesterday.")
		return nil
	}

	for _, m := range missed {
		ctx.printf("%s %s was due on %s\n", missedStyle.Render("!"), habitLabel(m.Habit), m.MissedDate)
		if len(m.Candidates) > 0 {
			ctx.printf("  make-up dates: %s\n", dimStyle.Render(strings.Join(m.Candidates, ", ")))
		}
	}

	if c.Notify {
		if err := notifier.New().NotifyMissed(goCtx, missed); err != nil {
			ctx.printf("Notification not sent: %v\n", err)
		}
	}
	if !c.Interactive {
		return nil
	}

	for _, m := range missed {
		if len(m.Candidates) == 0 {
			continue
		}
		picked, err := chooseFunc(fmt.Sprintf("Make-up date for %s (missed %s)", m.Habit.Name, m.MissedDate), m.Candidates)
		if err != nil {
			return err
		}
		if picked == "" {
			continue
		}
		if _, err := rec.SetAlternativeCompletionDate(goCtx, m.Habit.ID, m.MissedDate, picked); err != nil {
			return err
		}
		ctx.printf("✓ %s made up on %s\n", m.Habit.Name, picked)
	}
	return nil
}

type HabitLogCmd struct {
	Days  int    `help:"Number of days to show." default:"14"`
	Habit string `help:"Show log for specific habit only."`
}

func (c *HabitLogCmd) Run(ctx *Context) error {
	if c.Days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}
	rec, err := ctx.Reconciler(context.Background())
	if err != nil {
		return err
	}

	habits := rec.Habits()
	if c.Habit != "" {
		h, err := resolveHabit(rec, c.Habit)
		if err != nil {
			return err
		}
		habits = []models.Habit{h}
	}
	if len(habits) == 0 {
		ctx.println("No habits found.")
		return nil
	}

	today := rec.Today()
	start, err := utils.AddDays(today, -(c.Days - 1))
	if err != nil {
		return err
	}
	days, err := utils.DateRange(start, today)
	if err != nil {
		return err
	}

	const nameWidth = 20
	nameCol := lipgloss.NewStyle().Width(nameWidth).MaxWidth(nameWidth)

	ctx.printf("Habit log (last %d days):\n\n", c.Days)
	header := nameCol.Render("Habit")
	for _, d := range days {
		header += fmt.Sprintf(" %5s", d[5:7]+"/"+d[8:10])
	}
	ctx.println(headerStyle.Render(header))
	ctx.println(strings.Repeat("-", nameWidth+6*len(days)))

	for _, h := range habits {
		line := nameCol.Render(habitStyle(h).Render(h.Name))
		for _, d := range days {
			line += "  " + c.marker(rec.Location(), h, d, today) + "   "
		}
		ctx.println(line)
	}
	ctx.println()
	ctx.println(dimStyle.Render("x done   + made up   - missed   o due today   . not scheduled"))
	return nil
}

func (c *HabitLogCmd) marker(loc *time.Location, h models.Habit, day, today string) string {
	switch {
	case slices.Contains(h.CompletedDates, day):
		return doneStyle.Render("x")
	case h.HasAlternativeDate(day):
		return doneStyle.Render("+")
	}
	due := false
	if t, err := utils.ParseDateInLocation(day, loc); err == nil {
		due = h.IsDueOn(t, loc)
	}
	switch {
	case !due:
		return dimStyle.Render(".")
	case day == today:
		return "o"
	default:
		return missedStyle.Render("-")
	}
}

func printQueued(ctx *Context, queued bool) {
	if queued {
		ctx.println(dimStyle.Render("  (offline: queued, will sync when the remote store is reachable)"))
	}
}
