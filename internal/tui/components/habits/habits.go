package habits

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/FahimKhamsa/madhabits/internal/models"
)

type AddHabitMsg struct{}

type ToggleHabitMsg struct {
	ID string
}

type DeleteHabitMsg struct {
	ID   string
	Name string
}

type Item struct {
	Habit    models.Habit
	IsMarked bool
	IsDue    bool
}

func (i Item) Title() string {
	mark := "○ "
	switch {
	case i.IsMarked:
		mark = "✓ "
	case !i.IsDue:
		mark = "· "
	}
	title := mark + strings.TrimSpace(i.Habit.Icon+" "+i.Habit.Name)
	if i.Habit.IsProvisional() {
		title += " (not synced)"
	}
	return title
}

func (i Item) Description() string {
	desc := fmt.Sprintf("%s | streak %d (best %d)", schedule(i.Habit), i.Habit.Streak, i.Habit.BestStreak)
	switch {
	case i.IsMarked:
		desc += " | done today"
	case !i.IsDue:
		desc += " | not due today"
	}
	return desc
}

func (i Item) FilterValue() string { return i.Habit.Name }

func schedule(h models.Habit) string {
	if h.Frequency != models.FrequencyWeekly || len(h.DaysOfWeek) == 0 {
		return string(h.Frequency)
	}
	days := make([]string, len(h.DaysOfWeek))
	for i, wd := range h.DaysOfWeek {
		days[i] = wd.String()[:3]
	}
	return "weekly on " + strings.Join(days, ",")
}

type KeyMap struct {
	Add    key.Binding
	Toggle key.Binding
	Delete key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("m", " "),
			key.WithHelp("m/space", "toggle today"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Toggle, keys.Add, keys.Delete}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Toggle, keys.Add, keys.Delete}
	}

	return Model{list: l, keys: keys}
}

// SetHabits replaces the items. marked and due are keyed by habit id.
func (m *Model) SetHabits(habits []models.Habit, marked, due map[string]bool) {
	items := make([]list.Item, len(habits))
	for i, h := range habits {
		items[i] = Item{Habit: h, IsMarked: marked[h.ID], IsDue: due[h.ID]}
	}
	m.list.SetItems(items)
}

// Items returns the current list items.
func (m Model) Items() []Item {
	out := make([]Item, 0, len(m.list.Items()))
	for _, it := range m.list.Items() {
		if i, ok := it.(Item); ok {
			out = append(out, i)
		}
	}
	return out
}

// Filtering reports whether the list is taking filter input.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddHabitMsg{} }
		case key.Matches(msg, m.keys.Toggle):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return ToggleHabitMsg{ID: i.Habit.ID} }
			}
		case key.Matches(msg, m.keys.Delete):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return DeleteHabitMsg{ID: i.Habit.ID, Name: i.Habit.Name} }
			}
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  No habits yet.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
