package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/FahimKhamsa/madhabits/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *Context) error {
	rec, err := ctx.Reconciler(context.Background())
	if err != nil {
		return err
	}

	ctx.PerformAutomaticBackup()

	p := tea.NewProgram(tui.NewModel(rec), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
