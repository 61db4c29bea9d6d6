package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/desertthunder/lapx/internal/locale"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/desertthunder/lapx/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// consoleEnvironment is the editor host used by the CLI: entering the editor prints the session summary.
type consoleEnvironment struct {
	out io.Writer
}

func (e *consoleEnvironment) EnterEditor(ctx context.Context, session *models.Session, onProgress func(float64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	onProgress(0.5)
	if _, err := fmt.Fprintf(e.out, "→ Editing %s\n", session.Property.ChartPath); err != nil {
		return err
	}
	onProgress(1)
	return nil
}

// checkOpenable applies the wizard's checks: the descriptor must be valid and carry at least one layer.
func (r *Runner) checkOpenable(project *models.Project) error {
	if err := project.Validate(); err != nil {
		return fmt.Errorf("%s: %w", r.catalog.Localize(locale.ProjectInvalidProject), err)
	}
	if project.BGACount() == 0 {
		return fmt.Errorf("%w: %s", shared.ErrValidation, r.catalog.Localize(locale.ProjectNoBGA))
	}
	return nil
}

// openProject runs the load pipeline, printing progress lines unless quiet.
func (r *Runner) openProject(ctx context.Context, project *models.Project, lapPath string, quiet bool) (*models.Session, error) {
	pipeline := r.pipeline()
	if quiet {
		return pipeline.Run(ctx, project, lapPath, nil)
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	var g errgroup.Group
	g.Go(func() error {
		for update := range progress {
			r.writePlain("[%3.0f%%] %s\n", update.Progress*100, update.Message)
		}
		return nil
	})

	session, err := pipeline.Run(ctx, project, lapPath, progress)
	close(progress)
	g.Wait()
	return session, err
}

func (r *Runner) writeSessionSummary(project *models.Project, session *models.Session) {
	r.writePlainHeader(fmt.Sprintf("%s by %s", project.Name, project.Designer))
	check := func(label string, ok bool) {
		mark := "–"
		if ok {
			mark = "✓"
		}
		r.writePlain("  %s %s\n", mark, label)
	}

	result := session.Result
	check("chart", result.ChartLoaded())
	for _, role := range models.LoadOrder {
		if _, ok := project.LayerFor(role); ok {
			check("background ("+role.String()+")", result.Has(models.BackgroundFlag(role)))
		}
	}
	check("music", result.MusicLoaded())
	check("video", result.VideoDetected())
	r.writePlain("%s\n", r.catalog.Localize(locale.ProjectLoaded))
}

// describeOpenError reduces a stage failure to its localized message; the cause goes to the debug log.
func (r *Runner) describeOpenError(err error) error {
	var stageErr *tasks.StageError
	if !errors.As(err, &stageErr) {
		return err
	}
	r.logger.Debug("load stage failed", "stage", stageErr.Stage, "error", stageErr.Err)
	return &openError{message: fmt.Sprintf("%s (%s)", stageErr.Message, stageErr.Stage), cause: stageErr}
}

// openError prints only the user-facing message while keeping the stage error reachable through errors.Is and errors.As.
type openError struct {
	message string
	cause   error
}

func (e *openError) Error() string { return e.message }

func (e *openError) Unwrap() error { return e.cause }

// Open loads a project through the pipeline and makes it the live session.
//
// Unless --direct is set the project must pass the wizard's checks first.
//
// With --save-as the chart is written to a new location; with --backup the periodic
// cloud backup runs until interrupted.
func (r *Runner) Open(ctx context.Context, cmd *cli.Command) error {
	lapPath := cmd.StringArg("project")
	if lapPath == "" {
		return fmt.Errorf("%w: project path", shared.ErrMissingArgument)
	}

	project, err := models.LoadProject(r.fs, lapPath)
	if err != nil {
		return err
	}
	if !cmd.Bool(directFlag) {
		if err := r.checkOpenable(project); err != nil {
			return err
		}
	}

	session, err := r.openProject(ctx, project, lapPath, cmd.Bool("quiet"))
	if err != nil {
		return r.describeOpenError(err)
	}
	r.writeSessionSummary(project, session)

	if target := cmd.String("save-as"); target != "" {
		saver := tasks.NewChartSaver(r.fs, r.workspace, r.syncClient(), r.prefsLoader(), r.logger)
		path, err := saver.SaveAs(ctx, target)
		if err != nil {
			return fmt.Errorf("save as failed: %w", err)
		}
		r.writePlain("✓ Chart saved to %s\n", path)
	}

	if cmd.Bool("backup") {
		return r.runBackup(ctx, r.config.Cloud.BackupDelay(), r.config.Cloud.BackupInterval())
	}
	return nil
}

// New creates a project in a folder: an empty chart plus a descriptor named after the folder.
func (r *Runner) New(ctx context.Context, cmd *cli.Command) error {
	folder := cmd.StringArg("folder")
	if folder == "" {
		return fmt.Errorf("%w: project folder", shared.ErrMissingArgument)
	}

	project, lapPath, err := models.NewProject(r.fs, folder)
	if err != nil {
		return err
	}

	designer := cmd.String("designer")
	if designer == "" {
		designer = r.preferences().Designer
	}
	project.Designer = designer
	if music := cmd.String("music"); music != "" {
		project.MusicPath = music
	}
	for _, path := range cmd.StringSlice("bga") {
		if !project.AddLayer(path) {
			return fmt.Errorf("%w: at most %d background layers", shared.ErrInvalidArgument, models.MaxLayers)
		}
	}

	if err := models.SaveProject(r.fs, project, lapPath); err != nil {
		return err
	}
	if designer != "" && r.prefs != nil {
		if err := r.prefs.Update(func(p *shared.Preferences) { p.Designer = designer }); err != nil {
			r.logger.Warn("failed to remember designer", "error", err)
		}
	}

	r.logger.Info("project created", "path", lapPath)
	r.writePlain("✓ Created %s\n", lapPath)
	r.writePlain("  chart: %s\n", project.ChartPath)
	if project.Designer == "" || project.BGACount() == 0 {
		r.writePlain("  next: lapx project set %s --designer <name>; lapx project bga add %s <image>\n", lapPath, lapPath)
	}
	return nil
}

// Import turns an unpacked release folder into a project descriptor.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.StringArg("folder")
	if dir == "" {
		return fmt.Errorf("%w: release folder", shared.ErrMissingArgument)
	}

	project, lapPath, err := models.ImportFolder(r.fs, filepath.Clean(dir))
	if err != nil {
		return err
	}

	r.logger.Info("folder imported", "path", lapPath, "layers", project.BGACount())
	r.writePlain("✓ Imported %s (%s) as %s\n", project.Name, project.Designer, lapPath)

	if cmd.Bool("open") {
		if err := r.checkOpenable(project); err != nil {
			return err
		}
		session, err := r.openProject(ctx, project, lapPath, true)
		if err != nil {
			return r.describeOpenError(err)
		}
		r.writeSessionSummary(project, session)
	}
	return nil
}

// directFlag marks an open that came from a bare descriptor path rather than the wizard.
const directFlag = "direct"

// rewriteArgs turns `lapx <file.lap>` into `lapx open --direct <file.lap>` when the file exists.
func rewriteArgs(args []string, exists func(string) bool) []string {
	if len(args) != 2 {
		return args
	}
	path := args[1]
	if !strings.EqualFold(filepath.Ext(path), models.ProjectExt) || !exists(path) {
		return args
	}
	return []string{args[0], "open", "--" + directFlag, path}
}
