package models

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/desertthunder/lapx/internal/shared"
	"github.com/spf13/afero"
)

const (
	// ProjectExt is the project descriptor file extension.
	ProjectExt = ".lap"
	// EmptyChart is the chart body written for a brand new project.
	EmptyChart = `{"events":null,"eos":0,"bpm":null,"scroll":null}`
	// InfoFile holds name and designer inside an unpacked release folder.
	InfoFile = "info.bytes"

	BackgroundColorFile  = "background.jpg"
	BackgroundGrayFile   = "background_gray.jpg"
	BackgroundLinearFile = "background_linear.jpg"
)

// MusicExts are the music extensions an unpacked release folder may carry, in lookup order.
var MusicExts = []string{".ogg", ".mp3", ".wav"}

// IsMusicExt reports whether ext, in any case, is one of [MusicExts].
func IsMusicExt(ext string) bool {
	return slices.Contains(MusicExts, strings.ToLower(ext))
}

// LoadProject reads a .lap descriptor.
//
// Any gap between occupied background slots is closed so the layering invariant holds for callers.
func LoadProject(fsys afero.Fs, path string) (*Project, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var project *Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrFormat, path, err)
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %s: empty project document", shared.ErrFormat, path)
	}

	layers := project.Layers()
	for i := range MaxLayers {
		layer := ""
		if i < len(layers) {
			layer = layers[i]
		}
		project.setLayer(i, layer)
	}
	return project, nil
}

// SaveProject replaces the descriptor at path with p.
func SaveProject(fsys afero.Fs, p *Project, path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}

	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create project folder: %w", err)
	}

	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}
	return nil
}

// ProjectFilePath returns where a project created in its own folder is saved.
func ProjectFilePath(p *Project) string {
	return filepath.Join(p.ProjectFolder, p.Name+ProjectExt)
}

// NewProject starts a project in folder: it is named after the folder and gets an empty chart.
//
// The chart goes to EmptyChart.txt, or EmptyChart_NNNN.txt when that name is taken.
func NewProject(fsys afero.Fs, folder string) (*Project, string, error) {
	if err := fsys.MkdirAll(folder, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create project folder: %w", err)
	}

	chartPath := filepath.Join(folder, "EmptyChart.txt")
	for {
		exists, err := afero.Exists(fsys, chartPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to check chart path: %w", err)
		}
		if !exists {
			break
		}
		chartPath = filepath.Join(folder, fmt.Sprintf("EmptyChart_%d.txt", 1000+rand.IntN(9000)))
	}

	if err := afero.WriteFile(fsys, chartPath, []byte(EmptyChart), 0o644); err != nil {
		return nil, "", fmt.Errorf("failed to write empty chart: %w", err)
	}

	project := &Project{
		Name:          filepath.Base(filepath.Clean(folder)),
		ProjectFolder: folder,
		ChartPath:     chartPath,
	}
	return project, ProjectFilePath(project), nil
}

// ImportFolder builds a descriptor from an unpacked release folder and saves it as project.lap.
func ImportFolder(fsys afero.Fs, dir string) (*Project, string, error) {
	f, err := fsys.Open(filepath.Join(dir, InfoFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s in %s", shared.ErrNotFound, InfoFile, dir)
		}
		return nil, "", fmt.Errorf("failed to open %s: %w", InfoFile, err)
	}
	defer f.Close()

	name, designer, err := ReadInfo(f)
	if err != nil {
		return nil, "", err
	}

	chart, err := firstMatch(fsys, dir, "*.txt")
	if err != nil {
		return nil, "", err
	}
	music, err := findMusic(fsys, dir)
	if err != nil {
		return nil, "", err
	}

	project := &Project{
		Name:          name,
		Designer:      designer,
		ProjectFolder: dir,
		ChartPath:     chart,
		MusicPath:     music,
	}

	var layers []string
	switch {
	case fileExists(fsys, filepath.Join(dir, BackgroundLinearFile)):
		layers = []string{BackgroundLinearFile, BackgroundGrayFile, BackgroundColorFile}
	case fileExists(fsys, filepath.Join(dir, BackgroundGrayFile)):
		layers = []string{BackgroundGrayFile, BackgroundColorFile}
	default:
		layers = []string{BackgroundColorFile}
	}
	for i, file := range layers {
		project.setLayer(i, filepath.Join(dir, file))
	}

	lapPath := filepath.Join(dir, "project"+ProjectExt)
	if err := SaveProject(fsys, project, lapPath); err != nil {
		return nil, "", err
	}
	return project, lapPath, nil
}

// ReadInfo decodes name and designer from an info.bytes stream.
//
// Each string is a 7-bit varint byte length followed by UTF-8 bytes.
func ReadInfo(r io.Reader) (name, designer string, err error) {
	br := bufio.NewReader(r)
	if name, err = readVarString(br); err != nil {
		return "", "", fmt.Errorf("%w: %s name: %v", shared.ErrFormat, InfoFile, err)
	}
	if designer, err = readVarString(br); err != nil {
		return "", "", fmt.Errorf("%w: %s designer: %v", shared.ErrFormat, InfoFile, err)
	}
	return name, designer, nil
}

// WriteInfo encodes name and designer in the info.bytes layout.
func WriteInfo(w io.Writer, name, designer string) error {
	var buf bytes.Buffer
	for _, s := range []string{name, designer} {
		buf.Write(binary.AppendUvarint(nil, uint64(len(s))))
		buf.WriteString(s)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func readVarString(r *bufio.Reader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	if n > 1<<20 {
		return "", fmt.Errorf("string length %d too large", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func firstMatch(fsys afero.Fs, dir, pattern string) (string, error) {
	matches, err := afero.Glob(fsys, filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("failed to search %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no %s in %s", shared.ErrNotFound, pattern, dir)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// findMusic returns the first music file in dir, trying [MusicExts] in order.
func findMusic(fsys afero.Fs, dir string) (string, error) {
	for _, ext := range MusicExts {
		path, err := firstMatch(fsys, dir, "*"+ext)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: no music (%s) in %s", shared.ErrNotFound, strings.Join(MusicExts, ", "), dir)
}

func fileExists(fsys afero.Fs, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && !info.IsDir()
}

// BackupPath returns the sibling path a chart is copied to before it is loaded.
func BackupPath(chartPath string) string {
	ext := filepath.Ext(chartPath)
	return strings.TrimSuffix(chartPath, ext) + "_backup" + ext
}
