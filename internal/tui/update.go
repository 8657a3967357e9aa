package tui

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/FahimKhamsa/madhabits/internal/models"
	"github.com/FahimKhamsa/madhabits/internal/tui/components/habits"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		h, v := docStyle.GetFrameSize()
		// Tabs, status and help take four lines.
		m.habitsModel.SetSize(msg.Width-h, msg.Height-v-4)
		m.missedModel.SetSize(msg.Width-h, msg.Height-v-4)
		return m, nil

	case mutationDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			m.statusErr = true
		} else {
			m.status = msg.status
			m.statusErr = false
			if !m.source.IsOnline() && m.source.OutboxLen() > 0 {
				m.status += " (queued, offline)"
			}
		}
		m.refresh()
		return m, nil
	}

	switch m.state {
	case StateAddHabit:
		return m.updateAddHabit(msg)
	case StateConfirmDelete:
		return m.updateConfirmDelete(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && !(m.state == StateToday && m.habitsModel.Filtering()) {
		switch {
		case key.Matches(keyMsg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(keyMsg, m.keys.Tab):
			m.state = (m.state + 1) % tabCount
			return m, nil
		case key.Matches(keyMsg, m.keys.ShiftTab):
			m.state = (m.state - 1 + tabCount) % tabCount
			return m, nil
		case key.Matches(keyMsg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(keyMsg, m.keys.Sync):
			m.status = "Syncing..."
			m.statusErr = false
			return m, syncCmd(m.source)
		}
	}

	switch msg := msg.(type) {
	case habits.AddHabitMsg:
		m.habitForm = &HabitFormModel{Frequency: string(models.FrequencyDaily)}
		m.form = newHabitForm(m.habitForm)
		m.state = StateAddHabit
		return m, m.form.Init()
	case habits.ToggleHabitMsg:
		return m, toggleCmd(m.source, msg.ID)
	case habits.DeleteHabitMsg:
		m.habitToDeleteID = msg.ID
		m.habitToDelete = msg.Name
		m.state = StateConfirmDelete
		return m, nil
	}

	var cmd tea.Cmd
	switch m.state {
	case StateToday:
		m.habitsModel, cmd = m.habitsModel.Update(msg)
	case StateMissed:
		m.missedModel, cmd = m.missedModel.Update(msg)
	}
	return m, cmd
}

func (m Model) updateAddHabit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = StateToday
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.state = StateToday
		return m, addCmd(m.source, m.habitForm.input())
	case huh.StateAborted:
		m.state = StateToday
	}
	return m, cmd
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		m.state = StateToday
		return m, deleteCmd(m.source, m.habitToDeleteID, m.habitToDelete)
	case key.Matches(keyMsg, m.keys.Cancel):
		m.state = StateToday
	}
	return m, nil
}

func (f *HabitFormModel) input() models.HabitInput {
	in := models.HabitInput{
		Name:      strings.TrimSpace(f.Name),
		Frequency: models.Frequency(f.Frequency),
	}
	if in.Frequency == models.FrequencyWeekly {
		in.DaysOfWeek = f.Days
	}
	return in
}

func newHabitForm(f *HabitFormModel) *huh.Form {
	days := make([]huh.Option[time.Weekday], 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		days = append(days, huh.NewOption(wd.String(), wd))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&f.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Frequency").
				Options(huh.NewOptions(
					string(models.FrequencyDaily),
					string(models.FrequencyWeekly),
					string(models.FrequencyMonthly),
				)...).
				Value(&f.Frequency),
		),
		huh.NewGroup(
			huh.NewMultiSelect[time.Weekday]().
				Title("Days").
				Options(days...).
				Value(&f.Days),
		).WithHideFunc(func() bool {
			return f.Frequency != string(models.FrequencyWeekly)
		}),
	)
}
