package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/offbeatlabs/stepsync/internal/lifecycle"
	"github.com/offbeatlabs/stepsync/internal/shared"
	"github.com/offbeatlabs/stepsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for media management.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.records == nil || r.gateway == nil {
		return fmt.Errorf("%w: backend services not configured", shared.ErrMissingConfig)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/stepsync-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	// Settle anything a previous run left mid-upload before taking the screen.
	r.recoverSessions(ctx)

	var journal lifecycle.Journal
	if j, err := r.openJournal(); err == nil {
		journal = j
	} else {
		fileLogger.Warn("upload journal unavailable", "error", err)
	}
	defer r.CloseDB()

	model := ui.NewModel(ctx, ui.ModelOpts{
		Records:   r.records,
		Gateway:   r.gateway,
		Transport: r.transport,
		Journal:   journal,
		Policy:    lifecycle.PolicyFromConfig(r.config.Polling),
		Logger:    fileLogger,
	})
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
