package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/lapx/internal/formatter"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) loadDescriptor(cmd *cli.Command) (*models.Project, string, error) {
	lapPath := cmd.StringArg("project")
	if lapPath == "" {
		return nil, "", fmt.Errorf("%w: project path", shared.ErrMissingArgument)
	}
	project, err := models.LoadProject(r.fs, lapPath)
	if err != nil {
		return nil, "", err
	}
	return project, lapPath, nil
}

func (r *Runner) saveDescriptor(project *models.Project, lapPath string) error {
	if err := models.SaveProject(r.fs, project, lapPath); err != nil {
		return err
	}
	r.logger.Debug("descriptor saved", "path", lapPath, "layers", project.BGACount())
	return nil
}

// ProjectShow prints a descriptor.
func (r *Runner) ProjectShow(ctx context.Context, cmd *cli.Command) error {
	project, lapPath, err := r.loadDescriptor(cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(project, true)
	}
	return r.writeBytes(formatter.ProjectToText(project, lapPath))
}

// ProjectSet edits descriptor metadata. Only flags that were given are applied.
func (r *Runner) ProjectSet(ctx context.Context, cmd *cli.Command) error {
	project, lapPath, err := r.loadDescriptor(cmd)
	if err != nil {
		return err
	}

	fields := []struct {
		flag   string
		target *string
	}{
		{"name", &project.Name},
		{"designer", &project.Designer},
		{"folder", &project.ProjectFolder},
		{"chart", &project.ChartPath},
		{"music", &project.MusicPath},
	}

	changed := 0
	for _, f := range fields {
		if cmd.IsSet(f.flag) {
			*f.target = cmd.String(f.flag)
			changed++
		}
	}
	if changed == 0 {
		return fmt.Errorf("%w: nothing to change", shared.ErrMissingArgument)
	}

	if err := r.saveDescriptor(project, lapPath); err != nil {
		return err
	}
	return r.writeBytes(formatter.ProjectToText(project, lapPath))
}

// BGAAdd pushes a new outermost background layer.
func (r *Runner) BGAAdd(ctx context.Context, cmd *cli.Command) error {
	project, lapPath, err := r.loadDescriptor(cmd)
	if err != nil {
		return err
	}

	image := cmd.StringArg("image")
	if image == "" {
		return fmt.Errorf("%w: image path", shared.ErrMissingArgument)
	}
	if !project.AddLayer(image) {
		return fmt.Errorf("%w: project already has %d layers", shared.ErrInvalidArgument, models.MaxLayers)
	}

	if err := r.saveDescriptor(project, lapPath); err != nil {
		return err
	}
	return r.writeBytes(formatter.ProjectToText(project, lapPath))
}

// BGARemove drops the outermost background layer.
func (r *Runner) BGARemove(ctx context.Context, cmd *cli.Command) error {
	project, lapPath, err := r.loadDescriptor(cmd)
	if err != nil {
		return err
	}
	if !project.RemoveLayer() {
		return fmt.Errorf("%w: project has no layers", shared.ErrInvalidArgument)
	}

	if err := r.saveDescriptor(project, lapPath); err != nil {
		return err
	}
	return r.writeBytes(formatter.ProjectToText(project, lapPath))
}

// BGASwap exchanges layer i with layer i+1.
func (r *Runner) BGASwap(ctx context.Context, cmd *cli.Command) error {
	project, lapPath, err := r.loadDescriptor(cmd)
	if err != nil {
		return err
	}
	if err := project.SwapAdjacentLayers(cmd.IntArg("index")); err != nil {
		return err
	}

	if err := r.saveDescriptor(project, lapPath); err != nil {
		return err
	}
	return r.writeBytes(formatter.ProjectToText(project, lapPath))
}
