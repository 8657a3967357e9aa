// Package tui is the interactive habit board.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/FahimKhamsa/madhabits/internal/models"
	"github.com/FahimKhamsa/madhabits/internal/tui/components/habits"
	"github.com/FahimKhamsa/madhabits/internal/tui/components/missed"
)

type SessionState int

const (
	StateToday SessionState = iota
	StateMissed
	StateAddHabit
	StateConfirmDelete
)

// tabCount is the number of states reachable with tab.
const tabCount = 2

// mutationTimeout bounds every remote round trip started from the board.
const mutationTimeout = 30 * time.Second

// Source is the habit state the board reads and mutates.
type Source interface {
	Today() string
	Habits() []models.Habit
	GetHabitsForDate(date string) ([]models.Habit, error)
	GetCompletionsForDate(date string) ([]models.CompletionRecord, error)
	Warnings() []models.MissedInstance
	IsOnline() bool
	OutboxLen() int

	AddHabit(ctx context.Context, in models.HabitInput) (models.Habit, error)
	ToggleCompletion(ctx context.Context, habitID, date, note string) (models.CompletionRecord, error)
	DeleteHabit(ctx context.Context, id string) error
	SyncToCloud(ctx context.Context) error
}

type HabitFormModel struct {
	Name      string
	Frequency string
	Days      []time.Weekday
}

type Model struct {
	source          Source
	state           SessionState
	keys            KeyMap
	help            help.Model
	habitsModel     habits.Model
	missedModel     missed.Model
	form            *huh.Form
	habitForm       *HabitFormModel
	habitToDeleteID string
	habitToDelete   string
	status          string
	statusErr       bool
	quitting        bool
	width           int
	height          int
}

func NewModel(source Source) Model {
	m := Model{
		source:      source,
		state:       StateToday,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		habitsModel: habits.New(0, 0),
		missedModel: missed.New(0, 0),
	}
	m.refresh()
	return m
}

// refresh reloads every component from the source.
func (m *Model) refresh() {
	today := m.source.Today()

	marked := make(map[string]bool)
	if records, err := m.source.GetCompletionsForDate(today); err == nil {
		for _, r := range records {
			marked[r.HabitID] = r.Completed
		}
	}
	due := make(map[string]bool)
	if list, err := m.source.GetHabitsForDate(today); err == nil {
		for _, h := range list {
			due[h.ID] = true
		}
	}

	m.habitsModel.SetHabits(m.source.Habits(), marked, due)
	m.missedModel.SetMissed(m.source.Warnings())
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Sync, m.keys.Quit, m.keys.Help}
	if m.state == StateToday {
		keys = append(keys, m.keys.Toggle, m.keys.Add)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Sync, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down}

	var actions []key.Binding
	if m.state == StateToday {
		actions = []key.Binding{m.keys.Toggle, m.keys.Add, m.keys.Delete}
	}
	return [][]key.Binding{global, navigation, actions}
}

func (m Model) Init() tea.Cmd {
	return nil
}
