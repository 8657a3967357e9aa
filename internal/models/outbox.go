package models

import "time"

// OutboxOp names a mutation queued while offline.
type OutboxOp string

const (
	OpCreateHabit      OutboxOp = "create_habit"
	OpUpdateHabit      OutboxOp = "update_habit"
	OpDeleteHabit      OutboxOp = "delete_habit"
	OpToggleCompletion OutboxOp = "toggle_completion"
)

// OutboxEntry is a locally applied mutation waiting to be replayed against
// the remote store.
type OutboxEntry struct {
	ID      string      `json:"id"`
	Op      OutboxOp    `json:"op"`
	HabitID string      `json:"habit_id"`
	Input   *HabitInput `json:"input,omitempty"`
	Patch   *HabitPatch `json:"patch,omitempty"`
	Date    string      `json:"date,omitempty"`
	Note    string      `json:"note,omitempty"`
	// Completed is the state the toggle left locally; replay converges the
	// remote record to it rather than flipping blindly.
	Completed bool      `json:"completed,omitempty"`
	QueuedAt  time.Time `json:"queued_at"`
}
