package cli

import (
	"github.com/charmbracelet/huh"
)

// Prompts are variables so tests can answer them.
var (
	confirmFunc = confirm
	chooseFunc  = choose
)

func confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return ok, err
}

// choose asks for one of options. An empty result means skip.
func choose(title string, options []string) (string, error) {
	opts := make([]huh.Option[string], 0, len(options)+1)
	for _, o := range options {
		opts = append(opts, huh.NewOption(o, o))
	}
	opts = append(opts, huh.NewOption("Skip", ""))

	var picked string
	err := huh.NewSelect[string]().
		Title(title).
		Options(opts...).
		Value(&picked).
		Run()
	return picked, err
}
