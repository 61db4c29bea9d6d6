// Package release reads and writes .larelease files, the single-file distribution form of a project.
//
// All integers are little-endian int32. Strings and blobs are an int32 byte length
// followed by the raw bytes; strings are UTF-8.
//
//	int32    bgaCount
//	lenstr   name
//	lenstr   designer
//	lenblob  chart
//	lenstr   musicExt   (".ogg", with the dot)
//	lenblob  music
//	lenblob  bga0       (bgaCount >= 1)
//	lenblob  bga1       (bgaCount >= 2)
//	lenblob  bga2       (bgaCount == 3)
//
// [Extract] lays a release out as a folder that [models.ImportFolder] accepts.
package release

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/spf13/afero"
)

// Ext is the release file extension.
const Ext = ".larelease"

const maxFieldLen = 1 << 30

// Manifest is the decoded content of a release file.
type Manifest struct {
	Name        string
	Designer    string
	Chart       []byte
	MusicExt    string
	Music       []byte
	Backgrounds [][]byte
}

// Size returns the encoded length of m in bytes.
func (m *Manifest) Size() int64 {
	n := int64(4)
	for _, field := range m.fields() {
		n += 4 + int64(len(field))
	}
	return n
}

func (m *Manifest) fields() [][]byte {
	fields := [][]byte{[]byte(m.Name), []byte(m.Designer), m.Chart, []byte(m.MusicExt), m.Music}
	return append(fields, m.Backgrounds...)
}

// Path returns where the release for p is written: <chart folder>/<name>.larelease.
func Path(p *models.Project) string {
	return filepath.Join(filepath.Dir(p.ChartPath), p.Name+Ext)
}

// FromProject reads every file p references into a manifest.
func FromProject(fsys afero.Fs, p *models.Project) (*Manifest, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	chart, err := readFile(fsys, p.ChartPath)
	if err != nil {
		return nil, err
	}
	music, err := readFile(fsys, p.MusicPath)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Name:     p.Name,
		Designer: p.Designer,
		Chart:    chart,
		MusicExt: filepath.Ext(p.MusicPath),
		Music:    music,
	}
	for _, layer := range p.Layers() {
		data, err := readFile(fsys, layer)
		if err != nil {
			return nil, err
		}
		m.Backgrounds = append(m.Backgrounds, data)
	}
	return m, nil
}

// Package writes the release for p to [Path] and returns that path.
//
// An invalid project is rejected before any file is created.
func Package(fsys afero.Fs, p *models.Project) (string, error) {
	m, err := FromProject(fsys, p)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := Write(&buf, m); err != nil {
		return "", err
	}

	path := Path(p)
	if err := afero.WriteFile(fsys, path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write release: %w", err)
	}
	return path, nil
}

// Write encodes m.
func Write(w io.Writer, m *Manifest) error {
	if len(m.Backgrounds) > models.MaxLayers {
		return fmt.Errorf("%w: %d backgrounds, at most %d", shared.ErrInvalidInput, len(m.Backgrounds), models.MaxLayers)
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, int32(len(m.Backgrounds))); err != nil {
		return fmt.Errorf("failed to write release header: %w", err)
	}
	for _, field := range m.fields() {
		if err := binary.Write(bw, binary.LittleEndian, int32(len(field))); err != nil {
			return fmt.Errorf("failed to write release field: %w", err)
		}
		if _, err := bw.Write(field); err != nil {
			return fmt.Errorf("failed to write release field: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write release: %w", err)
	}
	return nil
}

// Read decodes a release stream.
func Read(r io.Reader) (*Manifest, error) {
	br := bufio.NewReader(r)

	var count int32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: release header: %v", shared.ErrFormat, err)
	}
	if count < 0 || count > models.MaxLayers {
		return nil, fmt.Errorf("%w: background count %d", shared.ErrFormat, count)
	}

	m := &Manifest{}
	name, err := readField(br, "name")
	if err != nil {
		return nil, err
	}
	designer, err := readField(br, "designer")
	if err != nil {
		return nil, err
	}
	if m.Chart, err = readField(br, "chart"); err != nil {
		return nil, err
	}
	ext, err := readField(br, "music extension")
	if err != nil {
		return nil, err
	}
	if m.Music, err = readField(br, "music"); err != nil {
		return nil, err
	}
	m.Name, m.Designer, m.MusicExt = string(name), string(designer), string(ext)
	if err := checkMusicExt(m.MusicExt); err != nil {
		return nil, err
	}

	for i := range int(count) {
		bg, err := readField(br, fmt.Sprintf("background %d", i))
		if err != nil {
			return nil, err
		}
		m.Backgrounds = append(m.Backgrounds, bg)
	}
	return m, nil
}

// ReadFile decodes the release at path.
func ReadFile(fsys afero.Fs, path string) (*Manifest, error) {
	f, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open release: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// checkMusicExt accepts an empty extension or a bare one such as ".ogg".
func checkMusicExt(ext string) error {
	if ext == "" {
		return nil
	}
	if ext[0] != '.' || strings.ContainsAny(ext, `/\:`) || strings.Contains(ext, "..") || filepath.Base(ext) != ext {
		return fmt.Errorf("%w: music extension %q", shared.ErrFormat, ext)
	}
	return nil
}

func readField(r io.Reader, name string) ([]byte, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("%w: %s length: %v", shared.ErrFormat, name, err)
	}
	if n < 0 || n > maxFieldLen {
		return nil, fmt.Errorf("%w: %s length %d", shared.ErrFormat, name, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrFormat, name, err)
	}
	return b, nil
}

func readFile(fsys afero.Fs, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", shared.ErrNotFound)
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// BackgroundFiles returns the file names background slots are extracted to, in slot order.
func BackgroundFiles(count int) []string {
	switch count {
	case 1:
		return []string{models.BackgroundColorFile}
	case 2:
		return []string{models.BackgroundGrayFile, models.BackgroundColorFile}
	case 3:
		return []string{models.BackgroundLinearFile, models.BackgroundGrayFile, models.BackgroundColorFile}
	default:
		return nil
	}
}

type entry struct {
	name string
	data []byte
}

// Extract writes m into dir as info.bytes, chart.txt, music<ext> and background*.jpg.
// It returns the paths written.
//
// The music extension must be one of [models.MusicExts] so the folder can be imported again.
func Extract(fsys afero.Fs, m *Manifest, dir string) ([]string, error) {
	if err := checkMusicExt(m.MusicExt); err != nil {
		return nil, err
	}
	if !models.IsMusicExt(m.MusicExt) {
		return nil, fmt.Errorf("%w: music extension %q cannot be imported", shared.ErrFormat, m.MusicExt)
	}
	if len(m.Backgrounds) > models.MaxLayers {
		return nil, fmt.Errorf("%w: %d backgrounds, at most %d", shared.ErrInvalidInput, len(m.Backgrounds), models.MaxLayers)
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var info bytes.Buffer
	if err := models.WriteInfo(&info, m.Name, m.Designer); err != nil {
		return nil, err
	}

	files := []entry{
		{models.InfoFile, info.Bytes()},
		{"chart.txt", m.Chart},
		{"music" + strings.ToLower(m.MusicExt), m.Music},
	}
	for i, name := range BackgroundFiles(len(m.Backgrounds)) {
		files = append(files, entry{name, m.Backgrounds[i]})
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := afero.WriteFile(fsys, path, f.data, 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
