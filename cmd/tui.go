package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/desertthunder/lapx/internal/tasks"
	"github.com/desertthunder/lapx/internal/ui"
	"github.com/urfave/cli/v3"
)

// openFunc adapts the load pipeline to the picker: it applies the open checks, then runs the pipeline.
func (r *Runner) openFunc() ui.OpenFunc {
	return func(ctx context.Context, lapPath string, progress chan<- tasks.ProgressUpdate) (*models.Session, error) {
		project, err := models.LoadProject(r.fs, lapPath)
		if err != nil {
			return nil, err
		}
		if err := r.checkOpenable(project); err != nil {
			return nil, err
		}
		return r.pipeline().Run(ctx, project, lapPath, progress)
	}
}

// TUI launches the interactive picker over recently opened projects.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	recent, err := r.recentProjects(cmd.Int("limit"), "")
	if err != nil {
		return fmt.Errorf("%w: recent projects unavailable: %v", shared.ErrServiceUnavailable, err)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, recent, r.openFunc())
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if session := model.Session(); session != nil && cmd.Bool("backup") {
		return r.runBackup(ctx, r.config.Cloud.BackupDelay(), r.config.Cloud.BackupInterval())
	}
	return nil
}
