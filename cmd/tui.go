package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/subfeed/internal/models"
	"github.com/desertthunder/subfeed/internal/shared"
	"github.com/desertthunder/subfeed/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for the subscription feed.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := r.config.Log.File
	if logPath == "" {
		logPath = "./tmp/subfeed-tui.log"
	}
	fileLogger, err := shared.NewFileLogger(shared.ExpandPath(logPath))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, ui.Opts{
		Session: r.session,
		Feed:    r.feed,
		Login:   r.tuiLogin,
		Open:    shared.OpenBrowser,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// tuiLogin runs the browser sign-in without writing to the terminal the UI owns.
func (r *Runner) tuiLogin(ctx context.Context) (*models.UserProfile, error) {
	return r.login(ctx, shared.OpenBrowser, func(url string) {
		r.logger.Warn("open this URL to sign in", "url", url)
	})
}
