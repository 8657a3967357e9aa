package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/FahimKhamsa/madhabits/internal/models"
)

// mutationDoneMsg reports the result of a mutation or sync started from the
// board.
type mutationDoneMsg struct {
	status string
	err    error
}

func run(fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		status, err := fn(ctx)
		return mutationDoneMsg{status: status, err: err}
	}
}

func toggleCmd(source Source, habitID string) tea.Cmd {
	return run(func(ctx context.Context) (string, error) {
		r, err := source.ToggleCompletion(ctx, habitID, source.Today(), "")
		if err != nil {
			return "", err
		}
		if r.Completed {
			return fmt.Sprintf("Marked done for %s", r.Date), nil
		}
		return fmt.Sprintf("Unmarked for %s", r.Date), nil
	})
}

func addCmd(source Source, in models.HabitInput) tea.Cmd {
	return run(func(ctx context.Context) (string, error) {
		h, err := source.AddHabit(ctx, in)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Added %s", h.Name), nil
	})
}

func deleteCmd(source Source, habitID, name string) tea.Cmd {
	return run(func(ctx context.Context) (string, error) {
		if err := source.DeleteHabit(ctx, habitID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Deleted %s", name), nil
	})
}

func syncCmd(source Source) tea.Cmd {
	return run(func(ctx context.Context) (string, error) {
		if err := source.SyncToCloud(ctx); err != nil {
			return "", err
		}
		return "Synced", nil
	})
}
