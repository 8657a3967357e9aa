package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/FahimKhamsa/madhabits/internal/constants"
)

const secondsPerDay = 24 * 60 * 60

// FormatDate returns the calendar date of t (YYYY-MM-DD) as seen in t's own
// location. It never converts to UTC first, so 23:59 local stays on the local day.
func FormatDate(t time.Time) string {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Format(constants.DateFormat)
}

// Today returns the local calendar date of now.
func Today(now time.Time) string {
	return FormatDate(now)
}

// Yesterday returns the local calendar date of the day before now.
func Yesterday(now time.Time) string {
	return FormatDate(time.Date(now.Year(), now.Month(), now.Day()-1, 12, 0, 0, 0, now.Location()))
}

// ParseDate parses a YYYY-MM-DD date. The result is midnight UTC, which keeps
// day arithmetic free of DST shifts; only the date fields are meaningful.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", date, err)
	}
	return t, nil
}

// NormalizeDate accepts either a plain date or an RFC 3339 timestamp and
// returns the date part exactly as written, validated.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(constants.DateFormat), nil
}

// IsValidDate reports whether s is a well-formed YYYY-MM-DD date.
func IsValidDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// DayOfWeek returns the weekday of a date (Sunday = 0).
func DayOfWeek(date string) (time.Weekday, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}

// AddDays shifts a date by n calendar days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(constants.DateFormat), nil
}

// DaysBetween returns the number of calendar days from a to b (b - a).
func DaysBetween(a, b string) (int, error) {
	da, err := DayNumber(a)
	if err != nil {
		return 0, err
	}
	db, err := DayNumber(b)
	if err != nil {
		return 0, err
	}
	return db - da, nil
}

// DayNumber converts a date into a day count since 1970-01-01.
func DayNumber(date string) (int, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return int(t.Unix() / secondsPerDay), nil
}

// FromDayNumber is the inverse of DayNumber.
func FromDayNumber(n int) string {
	return time.Unix(int64(n)*secondsPerDay, 0).UTC().Format(constants.DateFormat)
}

// MonthIndex returns a monotonically increasing month number (year*12 + month-1).
func MonthIndex(date string) (int, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return t.Year()*12 + int(t.Month()) - 1, nil
}

// SameMonth reports whether two dates fall in the same calendar month.
func SameMonth(a, b string) bool {
	return len(a) >= 7 && len(b) >= 7 && a[:7] == b[:7]
}

// DateRange returns every date from start to end inclusive. An end before
// start yields an empty slice.
func DateRange(start, end string) ([]string, error) {
	s, err := DayNumber(start)
	if err != nil {
		return nil, err
	}
	e, err := DayNumber(end)
	if err != nil {
		return nil, err
	}
	if e < s {
		return []string{}, nil
	}
	dates := make([]string, 0, e-s+1)
	for n := s; n <= e; n++ {
		dates = append(dates, FromDayNumber(n))
	}
	return dates, nil
}
