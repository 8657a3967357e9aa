package models

import "time"

// CompletionRecord is the state of one habit on one calendar date. A record
// is toggled in place rather than deleted.
type CompletionRecord struct {
	ID        string    `json:"id"`
	HabitID   string    `json:"habit_id"`
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"`
	Completed bool      `json:"completed"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsProvisional reports whether the record has not been confirmed remotely.
func (r CompletionRecord) IsProvisional() bool {
	return IsProvisionalID(r.ID)
}

// MissedInstance describes a weekly occurrence that was not completed.
type MissedInstance struct {
	Habit      Habit
	MissedDate string
	// Candidates are dates in the make-up window that may be proposed as an
	// alternative completion date.
	Candidates []string
}
