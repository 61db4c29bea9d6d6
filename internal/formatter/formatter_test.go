package formatter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/release"
	tu "github.com/desertthunder/lapx/internal/testing"
	"github.com/spf13/afero"
)

func TestProjectToText(t *testing.T) {
	t.Run("WithLayers", func(t *testing.T) {
		p := &models.Project{Name: "Song", Designer: "Me", ProjectFolder: "/songs/song", ChartPath: "/songs/song/chart.txt", MusicPath: "/songs/song/music.ogg"}
		p.AddLayer("/songs/song/bg.png")
		p.AddLayer("/songs/song/gray.png")

		output := string(ProjectToText(p, "/songs/song/Song.lap"))

		for _, want := range []string{"Project:  Song", "Designer: Me", "File:     /songs/song/Song.lap", "Layers:   2", "color", "gray"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output:\n%s", want, output)
			}
		}
		if strings.Contains(output, "Invalid") {
			t.Errorf("valid project reported invalid:\n%s", output)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		output := string(ProjectToText(&models.Project{}, ""))
		if !strings.Contains(output, "Project:  -") {
			t.Errorf("expected dash for empty name:\n%s", output)
		}
		if !strings.Contains(output, "Invalid:") {
			t.Errorf("expected invalid marker:\n%s", output)
		}
		if strings.Contains(output, "File:") {
			t.Errorf("expected no file line without a path:\n%s", output)
		}
	})
}

func TestManifestOutput(t *testing.T) {
	m := &release.Manifest{
		Name:        "Song",
		Designer:    "Me",
		Chart:       make([]byte, 2048),
		MusicExt:    ".ogg",
		Music:       make([]byte, 3_000_000),
		Backgrounds: [][]byte{make([]byte, 10), make([]byte, 20)},
	}

	t.Run("Text", func(t *testing.T) {
		output := string(ManifestToText(m))
		for _, want := range []string{"Release:  Song", "Chart:    2.0 kB", "Music:    3.0 MB (.ogg)", "Layers:   2", "background.jpg", "background_gray.jpg"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output:\n%s", want, output)
			}
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		output := string(ManifestToMarkdown(m))
		if !strings.HasPrefix(output, "# Song\n") {
			t.Errorf("expected title heading, got:\n%s", output)
		}
		if !strings.Contains(output, "- music.ogg (3.0 MB)") {
			t.Errorf("expected music entry:\n%s", output)
		}
		if strings.Count(output, "- background") != 2 {
			t.Errorf("expected two background entries:\n%s", output)
		}
	})
}

func TestRecentToText(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Empty", func(t *testing.T) {
		if got := string(RecentToText(nil, now)); got != "No recent projects.\n" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("Entries", func(t *testing.T) {
		projects := []*models.RecentProject{
			models.RestoreRecentProject("1", "/a/A.lap", "Alpha", "Ann", 3, now.Add(-2*time.Hour), now, now),
			models.RestoreRecentProject("2", "/b/B.lap", "Beta", "", 0, now.Add(-72*time.Hour), now, now),
		}
		output := string(RecentToText(projects, now))

		for _, want := range []string{"1. Alpha by Ann (3 layers, opened 2 hours ago)", "/a/A.lap", "2. Beta by - (0 layers, opened 3 days ago)"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output:\n%s", want, output)
			}
		}
	})
}

func history(now time.Time) []*models.TransferRecord {
	return []*models.TransferRecord{
		models.RestoreTransferRecord("a", 2, models.DirectionDownload, models.TransferChart, "Song", 0, models.OutcomeNotFound, "", now.Add(-time.Minute), now),
		models.RestoreTransferRecord("b", 1, models.DirectionUpload, models.TransferBackup, "Song", 1500, models.OutcomeFailed, "connection refused", now.Add(-time.Hour), now),
	}
}

func TestHistoryToText(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if got := string(HistoryToText(nil, now)); got != "No transfers recorded.\n" {
		t.Errorf("unexpected empty output %q", got)
	}

	output := string(HistoryToText(history(now), now))
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), output)
	}
	if !strings.HasPrefix(lines[0], "#2 download") || !strings.Contains(lines[0], "not_found") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "1.5 kB") || !strings.HasSuffix(lines[1], "(connection refused)") {
		t.Errorf("unexpected second line %q", lines[1])
	}
}

func TestWriteHistoryCSV(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Rows", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteHistoryCSV(&buf, history(now)); err != nil {
			t.Fatalf("WriteHistoryCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if lines[0] != "Sequence,Direction,Kind,Project,Bytes,Outcome,Error,CreatedAt" {
			t.Errorf("unexpected header %q", lines[0])
		}
		if lines[2] != "1,upload,backup,Song,1500,failed,connection refused,2024-05-01T11:00:00Z" {
			t.Errorf("unexpected row %q", lines[2])
		}
	})

	t.Run("WriteError", func(t *testing.T) {
		if err := WriteHistoryCSV(&tu.FWriter{}, history(now)); err == nil {
			t.Error("expected error from failing writer")
		}
	})
}

func TestToJSON(t *testing.T) {
	data, err := ToJSON(map[string]int{"layers": 2})
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	if string(data) != "{\n  \"layers\": 2\n}\n" {
		t.Errorf("unexpected JSON %q", data)
	}

	if _, err := ToJSON(make(chan int)); err == nil {
		t.Error("expected error for unsupported value")
	}
}

func TestWriteExport(t *testing.T) {
	fsys := afero.NewMemMapFs()

	path, err := WriteExport(fsys, "/out/nested/history.csv", []byte("a,b\n"))
	if err != nil {
		t.Fatalf("WriteExport failed: %v", err)
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	if string(data) != "a,b\n" {
		t.Errorf("unexpected content %q", data)
	}

	if _, err := WriteExport(fsys, " ", nil); err == nil {
		t.Error("expected error for empty path")
	}
}
