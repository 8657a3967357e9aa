package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/FahimKhamsa/madhabits/internal/constants"
	"github.com/FahimKhamsa/madhabits/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	missedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
)

// habitStyle renders a habit name in the habit's own color.
func habitStyle(h models.Habit) lipgloss.Style {
	color := h.Color
	if color == "" {
		color = constants.DefaultHabitColor
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
}

func habitLabel(h models.Habit) string {
	return habitStyle(h).Render(h.Icon + " " + h.Name)
}
