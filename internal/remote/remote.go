// Package remote defines the authoritative habit store the reconciler syncs
// against.
package remote

import (
	"context"

	apperrors "github.com/FahimKhamsa/madhabits/internal/errors"
	"github.com/FahimKhamsa/madhabits/internal/models"
)

// Operation names, shared by implementations for logging and fault hooks.
const (
	OpFetchAll         = "fetch_all"
	OpCreateHabit      = "create_habit"
	OpUpdateHabit      = "update_habit"
	OpDeleteHabit      = "delete_habit"
	OpToggleCompletion = "toggle_completion"
)

// Store is the remote relational backend. Every call either succeeds with the
// authoritative state or fails without side effects.
type Store interface {
	FetchAll(ctx context.Context, userID string) ([]models.Habit, []models.CompletionRecord, error)
	CreateHabit(ctx context.Context, userID string, in models.HabitInput) (models.Habit, error)
	UpdateHabit(ctx context.Context, id string, patch models.HabitPatch) (models.Habit, error)
	DeleteHabit(ctx context.Context, id string) error
	// ToggleCompletion flips the record for (habitID, date), creating it as
	// completed when absent, and returns the habit with recomputed streaks.
	ToggleCompletion(ctx context.Context, habitID, date, note string) (models.Habit, models.CompletionRecord, error)
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Unavailable is the store used when no backend is configured. Every call
// fails, which keeps the reconciler permanently offline.
type Unavailable struct{}

func (Unavailable) FetchAll(context.Context, string) ([]models.Habit, []models.CompletionRecord, error) {
	return nil, nil, apperrors.ErrBackendUnavailable
}

func (Unavailable) CreateHabit(context.Context, string, models.HabitInput) (models.Habit, error) {
	return models.Habit{}, apperrors.ErrBackendUnavailable
}

func (Unavailable) UpdateHabit(context.Context, string, models.HabitPatch) (models.Habit, error) {
	return models.Habit{}, apperrors.ErrBackendUnavailable
}

func (Unavailable) DeleteHabit(context.Context, string) error {
	return apperrors.ErrBackendUnavailable
}

func (Unavailable) ToggleCompletion(context.Context, string, string, string) (models.Habit, models.CompletionRecord, error) {
	return models.Habit{}, models.CompletionRecord{}, apperrors.ErrBackendUnavailable
}

func (Unavailable) Ping(context.Context) error {
	return apperrors.ErrBackendUnavailable
}
