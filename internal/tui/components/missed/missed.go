package missed

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/FahimKhamsa/madhabits/internal/models"
)

var (
	habitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	candidateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// Model shows yesterday's missed weekly habits and their make-up dates.
type Model struct {
	viewport viewport.Model
	missed   []models.MissedInstance
}

func New(width, height int) Model {
	m := Model{viewport: viewport.New(width, height)}
	m.viewport.SetContent(m.render())
	return m
}

func (m *Model) SetMissed(missed []models.MissedInstance) {
	m.missed = missed
	m.viewport.SetContent(m.render())
}

func (m Model) Count() int {
	return len(m.missed)
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
}

func (m Model) render() string {
	if len(m.missed) == 0 {
		return "\n  Nothing missed yesterday."
	}
	var b strings.Builder
	for _, mi := range m.missed {
		fmt.Fprintf(&b, "\n  %s was due on %s\n", habitStyle.Render(mi.Habit.Name), dateStyle.Render(mi.MissedDate))
		if len(mi.Candidates) > 0 {
			fmt.Fprintf(&b, "    %s\n", candidateStyle.Render("make up on: "+strings.Join(mi.Candidates, ", ")))
		} else {
			fmt.Fprintf(&b, "    %s\n", candidateStyle.Render("no make-up dates left"))
		}
	}
	b.WriteString("\n  Use 'madhabits habit warnings -i' to pick a make-up date.\n")
	return b.String()
}
