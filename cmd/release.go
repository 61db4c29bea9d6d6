package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/desertthunder/lapx/internal/formatter"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/release"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// ReleasePack writes <name>.larelease next to the project's chart.
func (r *Runner) ReleasePack(ctx context.Context, cmd *cli.Command) error {
	project, _, err := r.loadDescriptor(cmd)
	if err != nil {
		return err
	}

	path, err := release.Package(r.fs, project)
	if err != nil {
		return fmt.Errorf("failed to package release: %w", err)
	}

	size := int64(0)
	if info, err := r.fs.Stat(path); err == nil {
		size = info.Size()
	}
	r.logger.Info("release packaged", "path", path, "bytes", size)
	r.writePlain("✓ Release written to %s (%s)\n", path, humanize.Bytes(uint64(size)))

	if cmd.Bool("reveal") {
		if err := shared.RevealInFileBrowser(path); err != nil {
			r.logger.Warn("failed to reveal release", "error", err)
		}
	}
	return nil
}

func (r *Runner) readRelease(cmd *cli.Command) (*release.Manifest, string, error) {
	path := cmd.StringArg("release")
	if path == "" {
		return nil, "", fmt.Errorf("%w: release path", shared.ErrMissingArgument)
	}
	m, err := release.ReadFile(r.fs, path)
	if err != nil {
		return nil, "", err
	}
	return m, path, nil
}

// ReleaseInspect prints the header fields and section sizes of a release.
func (r *Runner) ReleaseInspect(ctx context.Context, cmd *cli.Command) error {
	m, _, err := r.readRelease(cmd)
	if err != nil {
		return err
	}

	switch {
	case cmd.Bool("json"):
		return r.writeJSON(manifestSummary(m), true)
	case cmd.Bool("markdown"):
		return r.writeBytes(formatter.ManifestToMarkdown(m))
	default:
		return r.writeBytes(formatter.ManifestToText(m))
	}
}

type releaseSummary struct {
	Name        string   `json:"name"`
	Designer    string   `json:"designer"`
	ChartBytes  int      `json:"chartBytes"`
	MusicExt    string   `json:"musicExt"`
	MusicBytes  int      `json:"musicBytes"`
	Backgrounds []int    `json:"backgrounds"`
	TotalBytes  int64    `json:"totalBytes"`
	Files       []string `json:"files"`
}

func manifestSummary(m *release.Manifest) releaseSummary {
	s := releaseSummary{
		Name:       m.Name,
		Designer:   m.Designer,
		ChartBytes: len(m.Chart),
		MusicExt:   m.MusicExt,
		MusicBytes: len(m.Music),
		TotalBytes: m.Size(),
		Files:      release.BackgroundFiles(len(m.Backgrounds)),
	}
	s.Backgrounds = make([]int, 0, len(m.Backgrounds))
	for _, bg := range m.Backgrounds {
		s.Backgrounds = append(s.Backgrounds, len(bg))
	}
	return s
}

// ReleaseUnpack extracts a release into a folder, optionally importing it as a project.
//
// Without --output the folder is the release path minus its extension.
func (r *Runner) ReleaseUnpack(ctx context.Context, cmd *cli.Command) error {
	m, path, err := r.readRelease(cmd)
	if err != nil {
		return err
	}

	dir := cmd.String("output")
	if dir == "" {
		dir = strings.TrimSuffix(path, filepath.Ext(path))
	}

	written, err := release.Extract(r.fs, m, dir)
	if err != nil {
		return err
	}
	r.logger.Info("release unpacked", "dir", dir, "files", len(written))
	r.writePlain("✓ Unpacked %s into %s\n", m.Name, dir)
	for _, file := range written {
		r.writePlain("  %s\n", file)
	}

	if !cmd.Bool("import") {
		return nil
	}
	project, lapPath, err := models.ImportFolder(r.fs, dir)
	if err != nil {
		return err
	}
	r.writePlain("✓ Imported %s as %s\n", project.Name, lapPath)
	return nil
}
