package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FahimKhamsa/madhabits/internal/constants"
)

// Frequency is how often a habit is expected to be completed.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// ParseFrequency parses a frequency name case-insensitively.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("invalid frequency %q (expected daily, weekly or monthly)", s)
	}
	return f, nil
}

type Habit struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Color       string    `json:"color,omitempty"`
	Frequency   Frequency `json:"frequency"`
	// DaysOfWeek lists the allotted weekdays of a weekly habit (Sunday = 0).
	DaysOfWeek []time.Weekday `json:"days_of_week,omitempty"`
	Streak     int            `json:"streak"`
	BestStreak int            `json:"best_streak"`
	// CompletedDates is derived from the completion ledger when a habit is
	// read; it is never persisted with the habit.
	CompletedDates             []string  `json:"-"`
	AlternativeCompletionDates []string  `json:"alternative_completion_dates,omitempty"`
	CreatedAt                  time.Time `json:"created_at"`
	UpdatedAt                  time.Time `json:"updated_at"`
}

// Clone returns a deep copy of h.
func (h Habit) Clone() Habit {
	c := h
	c.DaysOfWeek = slices.Clone(h.DaysOfWeek)
	c.CompletedDates = slices.Clone(h.CompletedDates)
	c.AlternativeCompletionDates = slices.Clone(h.AlternativeCompletionDates)
	return c
}

// IsProvisional reports whether the habit still carries a locally assigned id.
func (h Habit) IsProvisional() bool {
	return IsProvisionalID(h.ID)
}

// IsAllotted reports whether wd is one of the habit's scheduled weekdays.
func (h Habit) IsAllotted(wd time.Weekday) bool {
	return slices.Contains(h.DaysOfWeek, wd)
}

// HasAlternativeDate reports whether date is a designated make-up date.
func (h Habit) HasAlternativeDate(date string) bool {
	return slices.Contains(h.AlternativeCompletionDates, date)
}

// IsDueOn reports whether the habit is scheduled on date. Monthly habits are
// due on the day of month they were created, read in loc.
func (h Habit) IsDueOn(date time.Time, loc *time.Location) bool {
	switch h.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		return h.IsAllotted(date.Weekday())
	case FrequencyMonthly:
		if loc == nil {
			loc = time.Local
		}
		return h.CreatedAt.In(loc).Day() == date.Day()
	}
	return false
}

// HabitInput carries the fields needed to create a habit.
type HabitInput struct {
	Name        string         `json:"name" validate:"required,notblank,max=100"`
	Description string         `json:"description,omitempty" validate:"max=500"`
	Icon        string         `json:"icon,omitempty" validate:"max=16"`
	Color       string         `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Frequency   Frequency      `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	DaysOfWeek  []time.Weekday `json:"days_of_week,omitempty" validate:"dive,min=0,max=6"`
}

// NewHabit builds a habit from input with display defaults applied.
func NewHabit(id, userID string, in HabitInput, now time.Time) Habit {
	h := Habit{
		ID:          id,
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Icon:        in.Icon,
		Color:       in.Color,
		Frequency:   in.Frequency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if h.Icon == "" {
		h.Icon = constants.DefaultHabitIcon
	}
	if h.Color == "" {
		h.Color = constants.DefaultHabitColor
	}
	if in.Frequency == FrequencyWeekly {
		h.DaysOfWeek = slices.Clone(in.DaysOfWeek)
	}
	return h
}

// HabitPatch is a partial update. Nil fields are left unchanged.
type HabitPatch struct {
	Name                       *string         `json:"name,omitempty" validate:"omitempty,notblank,max=100"`
	Description                *string         `json:"description,omitempty" validate:"omitempty,max=500"`
	Icon                       *string         `json:"icon,omitempty" validate:"omitempty,max=16"`
	Color                      *string         `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Frequency                  *Frequency      `json:"frequency,omitempty" validate:"omitempty,oneof=daily weekly monthly"`
	DaysOfWeek                 *[]time.Weekday `json:"days_of_week,omitempty"`
	AlternativeCompletionDates *[]string       `json:"alternative_completion_dates,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p HabitPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Icon == nil && p.Color == nil &&
		p.Frequency == nil && p.DaysOfWeek == nil && p.AlternativeCompletionDates == nil
}

// ChangesSchedule reports whether the patch affects streak computation.
func (p HabitPatch) ChangesSchedule() bool {
	return p.Frequency != nil || p.DaysOfWeek != nil || p.AlternativeCompletionDates != nil
}

// Apply returns a copy of h with the patch applied.
func (p HabitPatch) Apply(h Habit, now time.Time) Habit {
	out := h.Clone()
	if p.Name != nil {
		out.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Icon != nil {
		out.Icon = *p.Icon
	}
	if p.Color != nil {
		out.Color = *p.Color
	}
	if p.Frequency != nil {
		out.Frequency = *p.Frequency
	}
	if p.DaysOfWeek != nil {
		out.DaysOfWeek = slices.Clone(*p.DaysOfWeek)
	}
	if p.AlternativeCompletionDates != nil {
		out.AlternativeCompletionDates = slices.Clone(*p.AlternativeCompletionDates)
	}
	if out.Frequency != FrequencyWeekly {
		out.DaysOfWeek = nil
	}
	out.UpdatedAt = now
	return out
}

// NewProvisionalID returns a locally generated id that the remote store will
// later replace.
func NewProvisionalID() string {
	return constants.ProvisionalIDPrefix + uuid.NewString()
}

// IsProvisionalID reports whether id was generated by NewProvisionalID.
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, constants.ProvisionalIDPrefix)
}
