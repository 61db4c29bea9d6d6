package main

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/lapx/internal/formatter"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/repositories"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

type recentView struct {
	LapPath  string    `json:"lapPath"`
	Name     string    `json:"name"`
	Designer string    `json:"designer"`
	BGACount int       `json:"bgaCount"`
	OpenedAt time.Time `json:"openedAt"`
}

type transferView struct {
	Sequence  int       `json:"sequence"`
	Direction string    `json:"direction"`
	Kind      string    `json:"kind"`
	Project   string    `json:"project"`
	Bytes     int64     `json:"bytes"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// recentSource lets fuzzy search over project names and paths.
type recentSource []*models.RecentProject

func (s recentSource) String(i int) string { return s[i].Name() + " " + s[i].LapPath() }
func (s recentSource) Len() int            { return len(s) }

// filterRecent keeps the projects matching pattern, best match first.
func filterRecent(projects []*models.RecentProject, pattern string) []*models.RecentProject {
	if pattern == "" {
		return projects
	}
	matches := fuzzy.FindFrom(pattern, recentSource(projects))
	filtered := make([]*models.RecentProject, 0, len(matches))
	for _, m := range matches {
		filtered = append(filtered, projects[m.Index])
	}
	return filtered
}

func (r *Runner) recentProjects(limit int, pattern string) ([]*models.RecentProject, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	criteria := map[string]any{}
	if pattern == "" && limit > 0 {
		criteria["limit"] = limit
	}
	projects, err := repositories.NewProjectRepository(db).List(criteria)
	if err != nil {
		return nil, err
	}

	projects = filterRecent(projects, pattern)
	if limit > 0 && len(projects) > limit {
		projects = projects[:limit]
	}
	return projects, nil
}

// pruneRecent forgets projects whose descriptor no longer exists and returns how many were removed.
func (r *Runner) pruneRecent() (int, error) {
	db, err := r.database()
	if err != nil {
		return 0, err
	}
	repo := repositories.NewProjectRepository(db)
	projects, err := repo.List(nil)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range projects {
		if ok, _ := afero.Exists(r.fs, p.LapPath()); ok {
			continue
		}
		if err := repo.Delete(p.ID()); err != nil {
			return removed, err
		}
		r.logger.Debug("forgot missing project", "path", p.LapPath())
		removed++
	}
	return removed, nil
}

// Recent lists recently opened projects.
func (r *Runner) Recent(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("prune") {
		removed, err := r.pruneRecent()
		if err != nil {
			return err
		}
		r.writePlain("Forgot %d missing project(s)\n", removed)
	}

	projects, err := r.recentProjects(cmd.Int("limit"), cmd.String("filter"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]recentView, 0, len(projects))
		for _, p := range projects {
			views = append(views, recentView{p.LapPath(), p.Name(), p.Designer(), p.BGACount(), p.OpenedAt()})
		}
		return r.writeJSON(views, true)
	}
	return r.writeBytes(formatter.RecentToText(projects, time.Now()))
}

// History lists the cloud transfer log, or exports it with --output.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	criteria := map[string]any{
		"project_name": cmd.String("project"),
		"direction":    cmd.String("direction"),
		"kind":         cmd.String("kind"),
		"outcome":      cmd.String("outcome"),
	}
	if limit := cmd.Int("limit"); limit > 0 {
		criteria["limit"] = limit
	}
	records, err := repositories.NewTransferRepository(db).List(criteria)
	if err != nil {
		return err
	}

	var data []byte
	switch {
	case cmd.Bool("csv"):
		var buf bytes.Buffer
		if err := formatter.WriteHistoryCSV(&buf, records); err != nil {
			return err
		}
		data = buf.Bytes()
	case cmd.Bool("json"):
		views := make([]transferView, 0, len(records))
		for _, rec := range records {
			views = append(views, transferView{
				Sequence:  rec.Sequence(),
				Direction: string(rec.Direction()),
				Kind:      rec.Kind().String(),
				Project:   rec.ProjectName(),
				Bytes:     rec.Bytes(),
				Outcome:   string(rec.Outcome()),
				Error:     rec.Error(),
				CreatedAt: rec.CreatedAt(),
			})
		}
		if data, err = formatter.ToJSON(views); err != nil {
			return err
		}
	default:
		data = formatter.HistoryToText(records, time.Now())
	}

	output := cmd.String("output")
	if output == "" {
		return r.writeBytes(data)
	}
	path, err := formatter.WriteExport(r.fs, output, data)
	if err != nil {
		return fmt.Errorf("failed to export history: %w", err)
	}
	r.logger.Info("history exported", "path", path, "records", len(records))
	return r.writePlain("✓ Exported %d record(s) to %s\n", len(records), path)
}
