// package formatter renders projects, releases and history for terminal output and export (text, Markdown, CSV, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/release"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// ProjectToText describes a descriptor and its background layers.
func ProjectToText(p *models.Project, lapPath string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Project:  %s\n", orDash(p.Name))
	fmt.Fprintf(&buf, "Designer: %s\n", orDash(p.Designer))
	if lapPath != "" {
		fmt.Fprintf(&buf, "File:     %s\n", lapPath)
	}
	fmt.Fprintf(&buf, "Folder:   %s\n", orDash(p.ProjectFolder))
	fmt.Fprintf(&buf, "Chart:    %s\n", orDash(p.ChartPath))
	fmt.Fprintf(&buf, "Music:    %s\n", orDash(p.MusicPath))
	fmt.Fprintf(&buf, "Layers:   %d\n", p.BGACount())

	for i, path := range p.Layers() {
		role := "-"
		for _, r := range models.LoadOrder {
			if rp, ok := p.LayerFor(r); ok && rp == path {
				role = r.String()
				break
			}
		}
		fmt.Fprintf(&buf, "  [%d] %-6s %s\n", i, role, path)
	}

	if err := p.Validate(); err != nil {
		fmt.Fprintf(&buf, "Invalid:  %v\n", err)
	}
	return buf.Bytes()
}

// ManifestToText summarizes a release with human-readable sizes.
func ManifestToText(m *release.Manifest) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Release:  %s\n", m.Name)
	fmt.Fprintf(&buf, "Designer: %s\n", m.Designer)
	fmt.Fprintf(&buf, "Size:     %s\n", humanize.Bytes(uint64(m.Size())))
	fmt.Fprintf(&buf, "Chart:    %s\n", humanize.Bytes(uint64(len(m.Chart))))
	fmt.Fprintf(&buf, "Music:    %s (%s)\n", humanize.Bytes(uint64(len(m.Music))), orDash(m.MusicExt))

	names := release.BackgroundFiles(len(m.Backgrounds))
	fmt.Fprintf(&buf, "Layers:   %d\n", len(m.Backgrounds))
	for i, data := range m.Backgrounds {
		fmt.Fprintf(&buf, "  %s %s\n", names[i], humanize.Bytes(uint64(len(data))))
	}
	return buf.Bytes()
}

// ManifestToMarkdown renders a release card suitable for a README next to the unpacked files.
func ManifestToMarkdown(m *release.Manifest) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", m.Name)
	fmt.Fprintf(&buf, "**Designer**: %s\n\n", m.Designer)
	fmt.Fprintf(&buf, "**Size**: %s\n\n", humanize.Bytes(uint64(m.Size())))

	buf.WriteString("## Files\n\n")
	fmt.Fprintf(&buf, "- chart (%s)\n", humanize.Bytes(uint64(len(m.Chart))))
	fmt.Fprintf(&buf, "- music%s (%s)\n", m.MusicExt, humanize.Bytes(uint64(len(m.Music))))
	for i, name := range release.BackgroundFiles(len(m.Backgrounds)) {
		fmt.Fprintf(&buf, "- %s (%s)\n", name, humanize.Bytes(uint64(len(m.Backgrounds[i]))))
	}
	return buf.Bytes()
}

// RecentToText lists recently opened projects, newest first, with relative open times.
func RecentToText(projects []*models.RecentProject, now time.Time) []byte {
	var buf bytes.Buffer

	if len(projects) == 0 {
		buf.WriteString("No recent projects.\n")
		return buf.Bytes()
	}

	for i, p := range projects {
		fmt.Fprintf(&buf, "%d. %s by %s (%d layers, opened %s)\n   %s\n",
			i+1, p.Name(), orDash(p.Designer()), p.BGACount(),
			humanize.RelTime(p.OpenedAt(), now, "ago", "from now"), p.LapPath())
	}
	return buf.Bytes()
}

// HistoryToText lists transfer log entries.
func HistoryToText(records []*models.TransferRecord, now time.Time) []byte {
	var buf bytes.Buffer

	if len(records) == 0 {
		buf.WriteString("No transfers recorded.\n")
		return buf.Bytes()
	}

	for _, rec := range records {
		fmt.Fprintf(&buf, "#%d %-8s %-6s %-20s %8s %-9s %s",
			rec.Sequence(), rec.Direction(), rec.Kind(), rec.ProjectName(),
			humanize.Bytes(uint64(max(rec.Bytes(), 0))), rec.Outcome(),
			humanize.RelTime(rec.CreatedAt(), now, "ago", "from now"))
		if rec.Error() != "" {
			fmt.Fprintf(&buf, " (%s)", rec.Error())
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// WriteHistoryCSV writes transfer records with columns: Sequence, Direction, Kind, Project, Bytes, Outcome, Error, CreatedAt
func WriteHistoryCSV(w io.Writer, records []*models.TransferRecord) error {
	writer := csv.NewWriter(w)

	headers := []string{"Sequence", "Direction", "Kind", "Project", "Bytes", "Outcome", "Error", "CreatedAt"}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, rec := range records {
		record := []string{
			strconv.Itoa(rec.Sequence()),
			string(rec.Direction()),
			rec.Kind().String(),
			rec.ProjectName(),
			strconv.FormatInt(rec.Bytes(), 10),
			string(rec.Outcome()),
			rec.Error(),
			rec.CreatedAt().UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

// ToJSON renders v as indented JSON followed by a newline.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteExport writes data to path on fsys, creating parent folders, and returns the path.
func WriteExport(fsys afero.Fs, path string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("empty export path")
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}
