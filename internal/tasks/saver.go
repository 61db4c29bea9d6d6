package tasks

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/services"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/spf13/afero"
)

// PreferenceLoader reads the current preferences.
type PreferenceLoader interface {
	Load() shared.Preferences
}

// ChartSaver writes the live chart to disk and, with cloud autosave on, uploads it.
type ChartSaver struct {
	fs        afero.Fs
	workspace *models.Workspace
	uploader  Uploader
	prefs     PreferenceLoader
	logger    *log.Logger
}

// NewChartSaver creates a saver. uploader and prefs may be nil to disable autosave.
func NewChartSaver(fsys afero.Fs, ws *models.Workspace, uploader Uploader, prefs PreferenceLoader, logger *log.Logger) *ChartSaver {
	return &ChartSaver{
		fs:        fsys,
		workspace: ws,
		uploader:  uploader,
		prefs:     prefs,
		logger:    shared.WithLogger(logger, "component", "saver"),
	}
}

// Save writes the live chart to its save location and re-saves the project descriptor.
func (s *ChartSaver) Save(ctx context.Context) (string, error) {
	session := s.workspace.Session()
	if session == nil {
		return "", fmt.Errorf("%w: no project loaded", shared.ErrState)
	}

	path := s.workspace.ChartLocation()
	if path == "" {
		return "", fmt.Errorf("%w: chart has no save location", shared.ErrState)
	}
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create chart folder: %w", err)
	}
	if err := afero.WriteFile(s.fs, path, []byte(session.ChartText()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write chart: %w", err)
	}

	if project, lapPath := s.workspace.Project(); project != nil && lapPath != "" {
		if err := models.SaveProject(s.fs, project, lapPath); err != nil {
			return path, err
		}
	}
	s.logger.Info("chart saved", "path", path)

	s.autosave(ctx, session)
	return path, nil
}

// SaveAs moves the save location to path (forcing a .txt suffix) and saves.
func (s *ChartSaver) SaveAs(ctx context.Context, path string) (string, error) {
	if s.workspace.Session() == nil {
		return "", fmt.Errorf("%w: no project loaded", shared.ErrState)
	}
	s.workspace.SetChartLocation(services.ChartFilePath(path))
	return s.Save(ctx)
}

func (s *ChartSaver) autosave(ctx context.Context, session *models.Session) {
	if s.uploader == nil || s.prefs == nil || !s.prefs.Load().CloudAutosave {
		return
	}
	if _, err := s.uploader.Upload(ctx, models.TransferChart, []byte(session.ChartText()), nil); err != nil {
		s.logger.Warn("cloud autosave failed", "error", err)
	}
}
