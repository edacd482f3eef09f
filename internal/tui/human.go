package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
)

// AskHuman shows prompt in a one-line terminal form and returns the
// trimmed answer. Aborting the form (ctrl+c) is treated as an empty answer,
// which ends the conversation.
func AskHuman(ctx context.Context, prompt string) (string, error) {
	var answer string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("feedback").
				Title(prompt).
				Placeholder("exit").
				Value(&answer),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(answer), nil
}
