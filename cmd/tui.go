package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bowlstone/internal/onboarding"
	"github.com/desertthunder/bowlstone/internal/session"
	"github.com/desertthunder/bowlstone/internal/shared"
	"github.com/desertthunder/bowlstone/internal/storage"
	"github.com/desertthunder/bowlstone/internal/ui"
)

// TUI launches the interactive board.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return fmt.Errorf("%w: the board needs an interactive terminal, try 'bowl stones list'", shared.ErrInvalidArgument)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/bowl-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	ws, err := r.workspace(ctx, cmd.Bool("guest"))
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.close(); err != nil {
			r.logger.Warn("failed to save board", "error", err)
		}
	}()

	model := ui.NewModel(ctx, ui.Options{
		Controller:        ws.ctrl,
		Gate:              onboarding.NewGate(ws.env.durable, storage.NewMemory(), r.logger),
		Reflections:       r.generator(ctx),
		ReflectionTimeout: r.config.Reflection.TimeoutDuration(),
		HelpStyle:         "auto",
		Logger:            r.logger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := ws.hub.Subscribe(func(sc session.Context) {
		p.Send(ui.SessionChangedMsg(sc))
	})
	defer unsubscribe()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
