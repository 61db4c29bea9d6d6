package release

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/spf13/afero"
)

func seedProject(t *testing.T, fsys afero.Fs, layers int) *models.Project {
	t.Helper()
	dir := "/songs/demo"
	p := &models.Project{
		Name:          "Demo Song",
		Designer:      "谱师",
		ProjectFolder: dir,
		ChartPath:     filepath.Join(dir, "chart.txt"),
		MusicPath:     filepath.Join(dir, "music.ogg"),
	}
	_ = afero.WriteFile(fsys, p.ChartPath, []byte(`{"events":[]}`), 0o644)
	_ = afero.WriteFile(fsys, p.MusicPath, []byte("OggS-music-bytes"), 0o644)
	for i := range layers {
		path := filepath.Join(dir, []string{"one.jpg", "two.jpg", "three.jpg"}[i])
		_ = afero.WriteFile(fsys, path, []byte("image-"+path), 0o644)
		p.AddLayer(path)
	}
	return p
}

func TestPackageRoundTrip(t *testing.T) {
	for layers := 0; layers <= models.MaxLayers; layers++ {
		t.Run(fmt.Sprintf("%d layers", layers), func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			p := seedProject(t, fsys, layers)

			path, err := Package(fsys, p)
			if err != nil {
				t.Fatalf("package failed: %v", err)
			}
			if path != "/songs/demo/Demo Song.larelease" {
				t.Errorf("unexpected release path %s", path)
			}

			m, err := ReadFile(fsys, path)
			if err != nil {
				t.Fatalf("read failed: %v", err)
			}
			if m.Name != p.Name || m.Designer != p.Designer {
				t.Errorf("metadata mismatch: %q / %q", m.Name, m.Designer)
			}
			if string(m.Chart) != `{"events":[]}` || string(m.Music) != "OggS-music-bytes" || m.MusicExt != ".ogg" {
				t.Errorf("payload mismatch: %+v", m)
			}
			if len(m.Backgrounds) != layers {
				t.Fatalf("expected %d backgrounds, got %d", layers, len(m.Backgrounds))
			}
			for i, layer := range p.Layers() {
				if string(m.Backgrounds[i]) != "image-"+layer {
					t.Errorf("background %d: expected bytes of %s, got %q", i, layer, m.Backgrounds[i])
				}
			}

			info, _ := fsys.Stat(path)
			if info.Size() != m.Size() {
				t.Errorf("Size() = %d, file is %d bytes", m.Size(), info.Size())
			}
		})
	}
}

func TestWireLayout(t *testing.T) {
	m := &Manifest{Name: "N", Designer: "DD", Chart: []byte("{}"), MusicExt: ".ogg", Music: []byte{9}, Backgrounds: [][]byte{{1, 2}}}
	var buf bytes.Buffer
	if err := Write(&buf, m); err != nil {
		t.Fatal(err)
	}

	var want bytes.Buffer
	le := func(v int32) { _ = binary.Write(&want, binary.LittleEndian, v) }
	le(1)
	le(1)
	want.WriteString("N")
	le(2)
	want.WriteString("DD")
	le(2)
	want.WriteString("{}")
	le(4)
	want.WriteString(".ogg")
	le(1)
	want.WriteByte(9)
	le(2)
	want.Write([]byte{1, 2})

	if !bytes.Equal(buf.Bytes(), want.Bytes()) {
		t.Errorf("unexpected encoding\n got %v\nwant %v", buf.Bytes(), want.Bytes())
	}
}

func TestPackageRejectsInvalidProject(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *models.Project)
		want   error
	}{
		{name: "no name", mutate: func(p *models.Project) { p.Name = "" }, want: shared.ErrValidation},
		{name: "no designer", mutate: func(p *models.Project) { p.Designer = "" }, want: shared.ErrValidation},
		{name: "missing music", mutate: func(p *models.Project) { p.MusicPath = "/songs/demo/none.ogg" }, want: shared.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			p := seedProject(t, fsys, 1)
			tt.mutate(p)

			if _, err := Package(fsys, p); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			matches, _ := afero.Glob(fsys, "/songs/demo/*"+Ext)
			if len(matches) != 0 {
				t.Errorf("expected no release file, found %v", matches)
			}
		})
	}
}

func TestReadErrors(t *testing.T) {
	var tooMany bytes.Buffer
	_ = binary.Write(&tooMany, binary.LittleEndian, int32(4))

	var negative bytes.Buffer
	_ = binary.Write(&negative, binary.LittleEndian, int32(0))
	_ = binary.Write(&negative, binary.LittleEndian, int32(-1))

	var truncated bytes.Buffer
	_ = Write(&truncated, &Manifest{Name: "N", Designer: "D", Chart: []byte("{}"), MusicExt: ".ogg", Music: []byte("m")})

	withExt := func(ext string) []byte {
		var b bytes.Buffer
		_ = Write(&b, &Manifest{Name: "N", Designer: "D", Chart: []byte("{}"), MusicExt: ext, Music: []byte("m")})
		return b.Bytes()
	}

	tests := map[string][]byte{
		"empty":                      nil,
		"too many layers":            tooMany.Bytes(),
		"negative length":            negative.Bytes(),
		"truncated":                  truncated.Bytes()[:truncated.Len()-1],
		"extension escapes folder":   withExt("/../../../etc/evil"),
		"extension with separator":   withExt(".ogg/x"),
		"extension with backslash":   withExt(`.ogg\x`),
		"extension without dot":      withExt("ogg"),
		"extension is parent folder": withExt(".."),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Read(bytes.NewReader(data)); !errors.Is(err, shared.ErrFormat) {
				t.Errorf("expected ErrFormat, got %v", err)
			}
		})
	}

	if err := Write(&bytes.Buffer{}, &Manifest{Backgrounds: make([][]byte, 4)}); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for four backgrounds, got %v", err)
	}
}

func TestExtractRejectsUnsafeManifest(t *testing.T) {
	tests := map[string]*Manifest{
		"extension escapes folder": {Name: "N", Designer: "D", MusicExt: "/../../../etc/evil"},
		"unimportable extension":   {Name: "N", Designer: "D", MusicExt: ".flac"},
		"no extension":             {Name: "N", Designer: "D"},
		"too many backgrounds":     {Name: "N", Designer: "D", MusicExt: ".ogg", Backgrounds: make([][]byte, 4)},
	}
	for name, m := range tests {
		t.Run(name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			written, err := Extract(fsys, m, "/out/release")
			if err == nil {
				t.Fatalf("expected an error, wrote %v", written)
			}
			if len(written) != 0 {
				t.Errorf("expected nothing written, got %v", written)
			}
			if ok, _ := afero.Exists(fsys, "/etc/evil"); ok {
				t.Error("wrote outside the target folder")
			}
		})
	}
}

func TestExtractImportRoundTrip(t *testing.T) {
	for layers := 1; layers <= models.MaxLayers; layers++ {
		fsys := afero.NewMemMapFs()
		p := seedProject(t, fsys, layers)
		m, err := FromProject(fsys, p)
		if err != nil {
			t.Fatal(err)
		}

		written, err := Extract(fsys, m, "/unpacked")
		if err != nil {
			t.Fatalf("extract failed: %v", err)
		}
		if len(written) != 3+layers {
			t.Errorf("expected %d files, got %v", 3+layers, written)
		}

		imported, _, err := models.ImportFolder(fsys, "/unpacked")
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if imported.Name != p.Name || imported.Designer != p.Designer || imported.BGACount() != layers {
			t.Errorf("%d layers: imported %+v", layers, imported)
		}

		again, err := FromProject(fsys, imported)
		if err != nil {
			t.Fatalf("re-read failed: %v", err)
		}
		for i := range m.Backgrounds {
			if !bytes.Equal(m.Backgrounds[i], again.Backgrounds[i]) {
				t.Errorf("%d layers: background %d changed across extract/import", layers, i)
			}
		}
		if !bytes.Equal(m.Chart, again.Chart) || !bytes.Equal(m.Music, again.Music) {
			t.Errorf("%d layers: chart or music changed", layers)
		}
	}

	for _, ext := range []string{".mp3", ".WAV"} {
		t.Run(ext, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			m := &Manifest{Name: "Other", Designer: "D", Chart: []byte("{}"), MusicExt: ext, Music: []byte("audio"), Backgrounds: [][]byte{[]byte("img")}}
			if _, err := Extract(fsys, m, "/out/r"); err != nil {
				t.Fatalf("extract failed: %v", err)
			}
			imported, _, err := models.ImportFolder(fsys, "/out/r")
			if err != nil {
				t.Fatalf("import failed: %v", err)
			}
			if want := "/out/r/music" + strings.ToLower(ext); imported.MusicPath != want {
				t.Errorf("expected music at %s, got %s", want, imported.MusicPath)
			}
		})
	}
}
