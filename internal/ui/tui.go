// ABOUTME: TUI program lifecycle
// ABOUTME: Runs the bubbletea program alongside playback and stops both together
package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows m while play runs. Quitting the UI cancels play's context and
// play ending closes the UI. It returns play's error first.
func Run(ctx context.Context, m Model, play func(context.Context) error, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(m, opts...)

	playErr := make(chan error, 1)
	go func() {
		err := play(ctx)
		playErr <- err
		p.Send(DoneMsg{Err: err})
	}()

	_, uiErr := p.Run()
	cancel()
	if err := <-playErr; err != nil {
		return err
	}
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return uiErr
	}
	return nil
}
