package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lapx/internal/locale"
	"github.com/desertthunder/lapx/internal/media"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/spf13/afero"
)

// VideoFile is the background video looked up in the project folder.
const VideoFile = "background.mp4"

// Environment is the host that shows a loaded session.
type Environment interface {
	// EnterEditor switches the host into the editor for session, reporting its own progress in [0,1].
	EnterEditor(ctx context.Context, session *models.Session, onProgress func(float64)) error
}

// PreferenceUpdater persists preference changes.
type PreferenceUpdater interface {
	Update(fn func(*shared.Preferences)) error
}

// RecentRecorder remembers projects that were opened successfully.
type RecentRecorder interface {
	Touch(rec *models.RecentProject) error
}

// StageError is a failed pipeline stage.
//
// Message is the localized text for Key and is what Error returns; Err keeps the cause
// for [errors.Is] and debug logging.
type StageError struct {
	Stage   Stage
	Key     string
	Message string
	Err     error
}

func (e *StageError) Error() string {
	return e.Message
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// PipelineOptions carries the collaborators of a [Pipeline]. Only Fs, Workspace and the
// decoders are required.
type PipelineOptions struct {
	Fs          afero.Fs
	Workspace   *models.Workspace
	Images      media.ImageDecoder
	Audio       media.AudioDecoder
	Environment Environment
	Preferences PreferenceUpdater
	Recent      RecentRecorder
	Localizer   locale.Localizer
	Logger      *log.Logger
}

// Pipeline turns a project descriptor into a live session through ordered stages.
//
// A run stops at the first failing stage. The new session becomes live in the workspace
// only after every stage succeeded; on failure it is released and the previous session
// stays live.
type Pipeline struct {
	fs        afero.Fs
	workspace *models.Workspace
	images    media.ImageDecoder
	audio     media.AudioDecoder
	env       Environment
	prefs     PreferenceUpdater
	recent    RecentRecorder
	localizer locale.Localizer
	logger    *log.Logger
	progress  Progress
}

// NewPipeline creates a pipeline from opts.
func NewPipeline(opts PipelineOptions) *Pipeline {
	localizer := opts.Localizer
	if localizer == nil {
		localizer = locale.New("en")
	}
	return &Pipeline{
		fs:        opts.Fs,
		workspace: opts.Workspace,
		images:    opts.Images,
		audio:     opts.Audio,
		env:       opts.Environment,
		prefs:     opts.Preferences,
		recent:    opts.Recent,
		localizer: localizer,
		logger:    shared.WithLogger(opts.Logger, "component", "pipeline"),
	}
}

// Progress returns the completion fraction of the current or last run.
func (p *Pipeline) Progress() float64 {
	return p.progress.Value()
}

// sendProgress sends a progress update through the channel without blocking.
func (p *Pipeline) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (p *Pipeline) advance(progress chan<- ProgressUpdate, stage Stage, v float64, format string, args ...any) {
	update := stageUpdate(stage, p.progress.Advance(v), format, args...)
	p.logger.Debug("stage progress", "stage", stage, "progress", update.Progress)
	p.sendProgress(progress, update)
}

func (p *Pipeline) fail(stage Stage, key string, err error) *StageError {
	p.logger.Debug("stage failed", "stage", stage, "key", key, "error", err)
	return &StageError{Stage: stage, Key: key, Message: p.localizer.Localize(key), Err: err}
}

// Run loads project (read from lapPath) and commits the resulting session to the workspace.
func (p *Pipeline) Run(ctx context.Context, project *models.Project, lapPath string, progress chan<- ProgressUpdate) (*models.Session, error) {
	p.progress.reset()

	if err := p.validate(project); err != nil {
		return nil, err
	}
	p.advance(progress, StageValidate, progressValidated, "Validated %s by %s", project.Name, project.Designer)

	session := models.NewSession(project.ChartPath)
	if err := p.load(ctx, project, lapPath, session, progress); err != nil {
		session.Release()
		return nil, err
	}
	return session, nil
}

func (p *Pipeline) load(ctx context.Context, project *models.Project, lapPath string, session *models.Session, progress chan<- ProgressUpdate) error {
	if err := p.loadChart(project, session); err != nil {
		return err
	}
	p.advance(progress, StageChart, progressChart, "Loaded chart %s", session.Property.ChartName)

	if err := p.loadBackgrounds(ctx, project, session, progress); err != nil {
		return err
	}

	if err := p.loadMusic(ctx, project, session); err != nil {
		return err
	}
	p.sendProgress(progress, stageUpdate(StageMusic, p.progress.Value(), "Loaded music %s", filepath.Base(project.MusicPath)))

	p.detectVideo(project, session)

	return p.finalize(ctx, project, lapPath, session, progress)
}

func (p *Pipeline) validate(project *models.Project) error {
	if project == nil {
		return p.fail(StageValidate, locale.ProjectInvalidProject, fmt.Errorf("%w: no project", shared.ErrValidation))
	}
	if strings.TrimSpace(project.Name) == "" {
		return p.fail(StageValidate, locale.ProjectNoName, fmt.Errorf("%w: name is required", shared.ErrValidation))
	}
	if strings.TrimSpace(project.Designer) == "" {
		return p.fail(StageValidate, locale.ProjectNoDesigner, fmt.Errorf("%w: designer is required", shared.ErrValidation))
	}
	return nil
}

func (p *Pipeline) loadChart(project *models.Project, session *models.Session) error {
	if err := p.copyFile(project.ChartPath, models.BackupPath(project.ChartPath)); err != nil {
		p.logger.Warn("chart backup failed", "chart", project.ChartPath, "error", err)
	}

	data, err := afero.ReadFile(p.fs, project.ChartPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %s", shared.ErrNotFound, project.ChartPath)
		}
		return p.fail(StageChart, locale.ProjectReadChartFailed, err)
	}
	if !json.Valid(data) {
		return p.fail(StageChart, locale.ProjectReadChartFailed, fmt.Errorf("%w: %s is not a valid chart", shared.ErrFormat, project.ChartPath))
	}

	session.Chart = &models.Chart{Raw: string(data)}
	session.Result.Mark(models.ChartLoaded)
	return nil
}

func (p *Pipeline) copyFile(src, dst string) error {
	in, err := p.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := p.fs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (p *Pipeline) loadBackgrounds(ctx context.Context, project *models.Project, session *models.Session, progress chan<- ProgressUpdate) error {
	count := project.BGACount()
	p.advance(progress, StageBackgrounds, progressMapped, "Mapped %d background layers", count)

	for i, role := range models.LoadOrder {
		path, ok := project.LayerFor(role)
		if ok {
			img, err := p.images.DecodeImage(ctx, path)
			if err != nil {
				return p.fail(StageBackgrounds, locale.ProjectReadImageFailed, err)
			}
			session.Background.Set(role, img)
			session.Result.Mark(models.BackgroundFlag(role))
		}
		p.advance(progress, StageBackgrounds, backgroundCheckpoints[i], "Background %s: %t", role, ok)
	}
	return nil
}

func (p *Pipeline) loadMusic(ctx context.Context, project *models.Project, session *models.Session) error {
	codec, err := media.CodecForPath(project.MusicPath)
	if err != nil {
		return p.fail(StageMusic, locale.ProjectReadMusicFailed, err)
	}

	clip, err := p.audio.DecodeAudio(ctx, project.MusicPath, codec)
	if err != nil {
		return p.fail(StageMusic, locale.ProjectReadMusicFailed, err)
	}

	session.Music = clip
	session.Result.Mark(models.MusicLoaded)
	return nil
}

func (p *Pipeline) detectVideo(project *models.Project, session *models.Session) {
	if project.ProjectFolder == "" {
		return
	}
	path := filepath.Join(project.ProjectFolder, VideoFile)
	if info, err := p.fs.Stat(path); err == nil && !info.IsDir() {
		session.Background.VideoPath = path
		session.Result.Mark(models.VideoDetected)
	}
}

func (p *Pipeline) finalize(ctx context.Context, project *models.Project, lapPath string, session *models.Session, progress chan<- ProgressUpdate) error {
	if p.prefs != nil {
		err := p.prefs.Update(func(prefs *shared.Preferences) {
			prefs.LastOpenedChartFolder = session.Property.ChartFolder
			prefs.Designer = project.Designer
		})
		if err != nil {
			p.logger.Warn("failed to save preferences", "error", err)
		}
	}

	p.advance(progress, StageFinalize, progressTransition, "Entering editor")
	if p.env != nil {
		err := p.env.EnterEditor(ctx, session, func(v float64) {
			v = min(max(v, 0), 1)
			p.advance(progress, StageFinalize, progressTransition+progressTransitionW*v, "Entering editor")
		})
		if err != nil {
			return p.fail(StageFinalize, locale.ProjectEnterEditor, err)
		}
	}

	if lapPath != "" {
		if err := models.SaveProject(p.fs, project, lapPath); err != nil {
			p.logger.Warn("failed to re-save project", "path", lapPath, "error", err)
		}
	}

	p.workspace.Commit(project, lapPath, session)

	if p.recent != nil && lapPath != "" {
		if err := p.recent.Touch(models.NewRecentProject(lapPath, project, time.Now())); err != nil {
			p.logger.Warn("failed to record recent project", "error", err)
		}
	}

	p.advance(progress, StageFinalize, progressDone, "%s", p.localizer.Localize(locale.ProjectLoaded))
	p.logger.Info("project loaded", "name", project.Name, "layers", project.BGACount(), "video", session.Result.VideoDetected())
	return nil
}
