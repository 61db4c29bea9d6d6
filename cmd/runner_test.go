package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/release"
	"github.com/desertthunder/lapx/internal/repositories"
	"github.com/desertthunder/lapx/internal/server"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/desertthunder/lapx/internal/tasks"
	tu "github.com/desertthunder/lapx/internal/testing"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return buf.Bytes()
}

// wavBytes returns one second of 16-bit mono silence at 8 kHz.
func wavBytes() []byte {
	const sampleRate, dataSize = 8000, 8000 * 2

	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+dataSize))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(sampleRate*2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(dataSize))
	b.Write(make([]byte, dataSize))
	return b.Bytes()
}

type runnerFixture struct {
	runner *Runner
	fs     afero.Fs
	out    *bytes.Buffer
	db     *sql.DB
	env    *tu.MockEnvironment
}

func newRunnerFixture(t *testing.T, configure func(*shared.Config)) *runnerFixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	config := shared.DefaultConfig()
	config.Preferences.Path = filepath.Join(t.TempDir(), "prefs.toml")
	config.Cloud.UserID = "device-1"
	config.Cloud.RequestsPerSecond = 0
	config.Cloud.ReachabilityAddress = ""
	if configure != nil {
		configure(config)
	}

	prefs, err := shared.NewPreferenceStore(config.Preferences.Path)
	if err != nil {
		t.Fatalf("failed to create preference store: %v", err)
	}

	f := &runnerFixture{
		fs:  afero.NewMemMapFs(),
		out: &bytes.Buffer{},
		db:  db,
		env: &tu.MockEnvironment{Steps: 2},
	}
	f.runner = NewRunner(RunnerOpts{
		Config:      config,
		Fs:          f.fs,
		Output:      f.out,
		Preferences: prefs,
		Environment: f.env,
		DB:          db,
	})
	t.Cleanup(func() { f.runner.Close() })
	return f
}

func (f *runnerFixture) run(args ...string) error {
	app := &cli.Command{Name: "lapx", Commands: f.runner.register()}
	return app.Run(context.Background(), append([]string{"lapx"}, args...))
}

// seed writes a loadable project with the given number of layers and returns its descriptor path.
func (f *runnerFixture) seed(t *testing.T, layers int) string {
	t.Helper()
	dir := "/songs/demo"

	files := map[string][]byte{
		"chart.txt": []byte(`{"events":[],"eos":0}`),
		"music.wav": wavBytes(),
	}
	project := &models.Project{
		Name:          "Demo",
		Designer:      "Someone",
		ProjectFolder: dir,
		ChartPath:     filepath.Join(dir, "chart.txt"),
		MusicPath:     filepath.Join(dir, "music.wav"),
	}
	for i := range layers {
		name := []string{"outer.png", "middle.png", "inner.png"}[i]
		files[name] = pngBytes(t)
		project.AddLayer(filepath.Join(dir, name))
	}

	for name, data := range files {
		if err := afero.WriteFile(f.fs, filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("failed to seed %s: %v", name, err)
		}
	}
	lapPath := filepath.Join(dir, "Demo.lap")
	if err := models.SaveProject(f.fs, project, lapPath); err != nil {
		t.Fatalf("failed to save project: %v", err)
	}
	return lapPath
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			env := &tu.MockEnvironment{}
			fsys := afero.NewMemMapFs()

			runner := NewRunner(RunnerOpts{
				Config:      config,
				Logger:      logger,
				Output:      output,
				HTTPClient:  httpClient,
				Environment: env,
				Fs:          fsys,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.env != env {
				t.Error("expected environment to be set")
			}
			if runner.fs != fsys {
				t.Error("expected filesystem to be set")
			}
			if runner.workspace == nil || runner.catalog == nil {
				t.Error("expected workspace and catalog to be created")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses configured timeout", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config})

			if runner.httpClient == nil || runner.httpClient.Timeout != config.Cloud.Timeout() {
				t.Errorf("expected client with timeout %v", config.Cloud.Timeout())
			}
		})

		t.Run("with nil environment prints to output", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			if _, ok := runner.env.(*consoleEnvironment); !ok {
				t.Errorf("expected console environment, got %T", runner.env)
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		commands := runner.register()

		want := []string{"open", "new", "import", "project", "release", "cloud", "recent", "history", "setup", "tui"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if cmd.Name != want[i] {
				t.Errorf("command %d: expected %q, got %q", i, want[i], cmd.Name)
			}
		}
	})
}

func TestRewriteArgs(t *testing.T) {
	exists := func(path string) bool { return path == "/songs/Demo.lap" || path == "/songs/DEMO.LAP" }

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"existing descriptor", []string{"lapx", "/songs/Demo.lap"}, []string{"lapx", "open", "--direct", "/songs/Demo.lap"}},
		{"extension is case-insensitive", []string{"lapx", "/songs/DEMO.LAP"}, []string{"lapx", "open", "--direct", "/songs/DEMO.LAP"}},
		{"missing descriptor", []string{"lapx", "/songs/Other.lap"}, []string{"lapx", "/songs/Other.lap"}},
		{"not a descriptor", []string{"lapx", "recent"}, []string{"lapx", "recent"}},
		{"more arguments", []string{"lapx", "open", "/songs/Demo.lap"}, []string{"lapx", "open", "/songs/Demo.lap"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rewriteArgs(tt.args, exists)
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestProjectCommands(t *testing.T) {
	f := newRunnerFixture(t, nil)

	if err := f.run("new", "--designer", "Someone", "/songs/fresh"); err != nil {
		t.Fatalf("new failed: %v", err)
	}
	lapPath := "/songs/fresh/fresh.lap"
	if ok, _ := afero.Exists(f.fs, lapPath); !ok {
		t.Fatalf("expected descriptor at %s", lapPath)
	}

	if got := f.runner.preferences().Designer; got != "Someone" {
		t.Errorf("expected designer to be remembered, got %q", got)
	}

	t.Run("set changes only given fields", func(t *testing.T) {
		if err := f.run("project", "set", "--name", "Fresh Song", lapPath); err != nil {
			t.Fatalf("set failed: %v", err)
		}
		p, err := models.LoadProject(f.fs, lapPath)
		if err != nil {
			t.Fatal(err)
		}
		if p.Name != "Fresh Song" || p.Designer != "Someone" {
			t.Errorf("unexpected project %+v", p)
		}
	})

	t.Run("set without flags fails", func(t *testing.T) {
		if err := f.run("project", "set", lapPath); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("bga add, swap and remove", func(t *testing.T) {
		for _, image := range []string{"/img/a.png", "/img/b.png", "/img/c.png"} {
			if err := f.run("project", "bga", "add", lapPath, image); err != nil {
				t.Fatalf("add %s failed: %v", image, err)
			}
		}
		if err := f.run("project", "bga", "add", lapPath, "/img/d.png"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected a fourth layer to be rejected, got %v", err)
		}

		if err := f.run("project", "bga", "swap", lapPath, "0"); err != nil {
			t.Fatalf("swap failed: %v", err)
		}
		if err := f.run("project", "bga", "swap", lapPath, "2"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected swap past the last layer to fail, got %v", err)
		}

		if err := f.run("project", "bga", "remove", lapPath); err != nil {
			t.Fatalf("remove failed: %v", err)
		}

		p, err := models.LoadProject(f.fs, lapPath)
		if err != nil {
			t.Fatal(err)
		}
		got := p.Layers()
		if len(got) != 2 || got[0] != "/img/c.png" || got[1] != "/img/a.png" {
			t.Errorf("unexpected layers %v", got)
		}
	})

	t.Run("show json", func(t *testing.T) {
		f.out.Reset()
		if err := f.run("project", "show", "--json", lapPath); err != nil {
			t.Fatalf("show failed: %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(f.out.Bytes(), &decoded); err != nil {
			t.Fatalf("expected JSON output: %v\n%s", err, f.out.String())
		}
		if decoded["name"] != "Fresh Song" {
			t.Errorf("unexpected name %v", decoded["name"])
		}
	})

	t.Run("missing argument", func(t *testing.T) {
		if err := f.run("project", "show"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestOpenCommand(t *testing.T) {
	t.Run("loads and records the project", func(t *testing.T) {
		f := newRunnerFixture(t, nil)
		lapPath := f.seed(t, 2)

		if err := f.run("open", lapPath); err != nil {
			t.Fatalf("open failed: %v", err)
		}

		project, gotPath := f.runner.workspace.Project()
		if project == nil || gotPath != lapPath {
			t.Fatalf("expected live project at %s, got %v", lapPath, gotPath)
		}
		session := f.runner.workspace.Session()
		if session == nil || !session.Result.MusicLoaded() || !session.Result.BackgroundGrayLoaded() {
			t.Errorf("unexpected load result %+v", session)
		}
		if len(f.env.Entered) != 1 {
			t.Errorf("expected editor entered once, got %d", len(f.env.Entered))
		}
		if !strings.Contains(f.out.String(), "[100%]") || !strings.Contains(f.out.String(), "Project loaded.") {
			t.Errorf("expected progress and summary, got:\n%s", f.out.String())
		}

		recent, err := repositories.NewProjectRepository(f.db).GetByPath(lapPath)
		if err != nil {
			t.Fatalf("expected recent entry: %v", err)
		}
		if recent.Name() != "Demo" || recent.BGACount() != 2 {
			t.Errorf("unexpected recent entry %s/%d", recent.Name(), recent.BGACount())
		}

		if got := f.runner.preferences().LastOpenedChartFolder; got != "/songs/demo" {
			t.Errorf("expected last folder preference, got %q", got)
		}
	})

	t.Run("save-as writes the chart to a new path", func(t *testing.T) {
		f := newRunnerFixture(t, nil)
		lapPath := f.seed(t, 1)

		if err := f.run("open", "--quiet", "--save-as", "/exports/copy", lapPath); err != nil {
			t.Fatalf("open failed: %v", err)
		}
		data, err := afero.ReadFile(f.fs, "/exports/copy.txt")
		if err != nil {
			t.Fatalf("expected chart copy: %v", err)
		}
		if string(data) != `{"events":[],"eos":0}` {
			t.Errorf("unexpected chart copy %q", data)
		}
	})

	t.Run("rejects a project without backgrounds", func(t *testing.T) {
		f := newRunnerFixture(t, nil)
		lapPath := f.seed(t, 0)

		err := f.run("open", "--quiet", lapPath)
		if !errors.Is(err, shared.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if !strings.Contains(err.Error(), "background image") {
			t.Errorf("expected localized message, got %v", err)
		}
		if f.runner.workspace.Session() != nil {
			t.Error("expected no live session")
		}
	})

	t.Run("bare descriptor path skips the background check", func(t *testing.T) {
		f := newRunnerFixture(t, nil)
		lapPath := f.seed(t, 0)

		args := rewriteArgs([]string{"lapx", lapPath}, func(path string) bool {
			ok, _ := afero.Exists(f.fs, path)
			return ok
		})
		if err := f.run(args[1:]...); err != nil {
			t.Fatalf("open failed: %v", err)
		}
		session := f.runner.workspace.Session()
		if session == nil {
			t.Fatal("expected a live session")
		}
		if !session.Result.ChartLoaded() || !session.Result.MusicLoaded() || session.Result.BackgroundLoaded() {
			t.Errorf("unexpected load result %+v", session.Result)
		}
	})

	t.Run("failed stage leaves no session", func(t *testing.T) {
		f := newRunnerFixture(t, nil)
		lapPath := f.seed(t, 1)
		if err := f.fs.Remove("/songs/demo/music.wav"); err != nil {
			t.Fatal(err)
		}

		err := f.run("open", "--quiet", lapPath)
		if err == nil || !strings.Contains(err.Error(), "music") {
			t.Fatalf("expected music stage failure, got %v", err)
		}
		if strings.Contains(err.Error(), "/songs/demo/music.wav") {
			t.Errorf("expected only the localized message, got %q", err.Error())
		}
		var stageErr *tasks.StageError
		if !errors.As(err, &stageErr) || stageErr.Stage != tasks.StageMusic {
			t.Errorf("expected the music stage error to stay reachable, got %v", err)
		}
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound cause, got %v", err)
		}
		if f.runner.workspace.Session() != nil {
			t.Error("expected no live session")
		}
	})
}

func TestReleaseCommands(t *testing.T) {
	f := newRunnerFixture(t, nil)
	lapPath := f.seed(t, 3)

	if err := f.run("release", "pack", lapPath); err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	releasePath := "/songs/demo/Demo" + release.Ext
	if ok, _ := afero.Exists(f.fs, releasePath); !ok {
		t.Fatalf("expected release at %s", releasePath)
	}

	t.Run("inspect json", func(t *testing.T) {
		f.out.Reset()
		if err := f.run("release", "inspect", "--json", releasePath); err != nil {
			t.Fatalf("inspect failed: %v", err)
		}
		var summary releaseSummary
		if err := json.Unmarshal(f.out.Bytes(), &summary); err != nil {
			t.Fatalf("expected JSON output: %v", err)
		}
		if summary.Name != "Demo" || len(summary.Backgrounds) != 3 || summary.MusicExt != ".wav" {
			t.Errorf("unexpected summary %+v", summary)
		}
	})

	t.Run("unpack and import", func(t *testing.T) {
		if err := f.run("release", "unpack", "--output", "/unpacked", "--import", releasePath); err != nil {
			t.Fatalf("unpack failed: %v", err)
		}
		p, err := models.LoadProject(f.fs, "/unpacked/project.lap")
		if err != nil {
			t.Fatalf("expected imported descriptor: %v", err)
		}
		if p.Name != "Demo" || p.Designer != "Someone" || p.BGACount() != 3 {
			t.Errorf("unexpected imported project %+v", p)
		}

		if err := f.run("open", "--quiet", "/unpacked/project.lap"); err != nil {
			t.Errorf("expected imported project to open: %v", err)
		}
	})

	t.Run("pack rejects an invalid project", func(t *testing.T) {
		bad := &models.Project{Name: "Bad", ChartPath: "/songs/demo/chart.txt"}
		if err := models.SaveProject(f.fs, bad, "/songs/bad.lap"); err != nil {
			t.Fatal(err)
		}
		if err := f.run("release", "pack", "/songs/bad.lap"); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestCloudCommands(t *testing.T) {
	storeFs := afero.NewMemMapFs()
	cfg := shared.DefaultConfig().Cloud
	srv := httptest.NewServer(server.NewCloudRouter(server.NewCloudStore(storeFs, "/store"), cfg, nil))
	defer srv.Close()

	f := newRunnerFixture(t, func(c *shared.Config) {
		c.Cloud.BaseURL = srv.URL
		c.Cloud.ReachabilityAddress = srv.Listener.Addr().String()
	})
	lapPath := f.seed(t, 1)

	t.Run("never uploaded", func(t *testing.T) {
		f.out.Reset()
		if err := f.run("cloud", "mtime", "--raw", lapPath); err != nil {
			t.Fatalf("mtime failed: %v", err)
		}
		if strings.TrimSpace(f.out.String()) != "Not Uploaded Before" {
			t.Errorf("unexpected output %q", f.out.String())
		}
	})

	t.Run("upload then download", func(t *testing.T) {
		f.out.Reset()
		if err := f.run("cloud", "upload", "--kind", "chart", lapPath); err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		if !strings.Contains(f.out.String(), "Uploaded chart") {
			t.Errorf("unexpected output:\n%s", f.out.String())
		}
		if ok, _ := afero.Exists(storeFs, "/store/device-1/Demo/chart.txt"); !ok {
			t.Error("expected chart in store")
		}

		if err := f.run("cloud", "download", "--output", "/restored/chart", lapPath); err != nil {
			t.Fatalf("download failed: %v", err)
		}
		data, err := afero.ReadFile(f.fs, "/restored/chart.txt")
		if err != nil || string(data) != `{"events":[],"eos":0}` {
			t.Errorf("unexpected download %q (%v)", data, err)
		}
	})

	t.Run("download of a missing backup", func(t *testing.T) {
		if err := f.run("cloud", "download", "--kind", "backup", lapPath); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("status", func(t *testing.T) {
		f.out.Reset()
		if err := f.run("cloud", "status", lapPath); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		out := f.out.String()
		if !strings.Contains(out, "Ready") || !strings.Contains(out, "Never uploaded") {
			t.Errorf("unexpected status:\n%s", out)
		}
	})

	t.Run("history records transfers", func(t *testing.T) {
		f.out.Reset()
		if err := f.run("history", "--csv", "--direction", "upload"); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(f.out.String()), "\n")
		if len(lines) != 2 || !strings.Contains(lines[1], "chart") {
			t.Errorf("expected header and one upload, got:\n%s", f.out.String())
		}

		if err := f.run("history", "--json", "--output", "/exports/history.json"); err != nil {
			t.Fatalf("history export failed: %v", err)
		}
		var views []transferView
		data, _ := afero.ReadFile(f.fs, "/exports/history.json")
		if err := json.Unmarshal(data, &views); err != nil {
			t.Fatalf("expected JSON export: %v", err)
		}
		if len(views) < 3 {
			t.Errorf("expected at least 3 transfers, got %d", len(views))
		}
	})
}

func TestCloudStatusWithoutProject(t *testing.T) {
	f := newRunnerFixture(t, func(c *shared.Config) { c.Cloud.UserID = "n/a" })

	if err := f.run("cloud", "status"); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(f.out.String(), "not supported") {
		t.Errorf("expected unsupported device message, got:\n%s", f.out.String())
	}
}

func TestRecentCommand(t *testing.T) {
	f := newRunnerFixture(t, nil)
	repo := repositories.NewProjectRepository(f.db)
	now := time.Now()

	for i, name := range []string{"Starlight", "Moonfall", "Sunrise"} {
		p := &models.Project{Name: name, Designer: "someone", ChartPath: "chart.txt"}
		lapPath := "/songs/" + name + ".lap"
		if name != "Moonfall" {
			if err := models.SaveProject(f.fs, p, lapPath); err != nil {
				t.Fatal(err)
			}
		}
		if err := repo.Touch(models.NewRecentProject(lapPath, p, now.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		f.out.Reset()
		if err := f.run("recent", "--json"); err != nil {
			t.Fatalf("recent failed: %v", err)
		}
		var views []recentView
		if err := json.Unmarshal(f.out.Bytes(), &views); err != nil {
			t.Fatal(err)
		}
		if len(views) != 3 || views[0].Name != "Sunrise" {
			t.Errorf("unexpected order %+v", views)
		}
	})

	t.Run("fuzzy filter", func(t *testing.T) {
		f.out.Reset()
		if err := f.run("recent", "--json", "--filter", "strlt"); err != nil {
			t.Fatalf("recent failed: %v", err)
		}
		var views []recentView
		if err := json.Unmarshal(f.out.Bytes(), &views); err != nil {
			t.Fatal(err)
		}
		if len(views) != 1 || views[0].Name != "Starlight" {
			t.Errorf("unexpected matches %+v", views)
		}
	})

	t.Run("prune forgets missing descriptors", func(t *testing.T) {
		f.out.Reset()
		if err := f.run("recent", "--prune"); err != nil {
			t.Fatalf("recent failed: %v", err)
		}
		if !strings.Contains(f.out.String(), "Forgot 1") {
			t.Errorf("unexpected output:\n%s", f.out.String())
		}
		if _, err := repo.GetByPath("/songs/Moonfall.lap"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected pruned entry to be gone, got %v", err)
		}
	})
}

func TestImportCommand(t *testing.T) {
	f := newRunnerFixture(t, nil)
	lapPath := f.seed(t, 2)
	project, err := models.LoadProject(f.fs, lapPath)
	if err != nil {
		t.Fatal(err)
	}
	m, err := release.FromProject(f.fs, project)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := release.Extract(f.fs, m, "/incoming"); err != nil {
		t.Fatal(err)
	}

	if err := f.run("import", "--open", "/incoming"); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if _, gotPath := f.runner.workspace.Project(); gotPath != "/incoming/project.lap" {
		t.Errorf("expected imported project to be live, got %q", gotPath)
	}

	if err := f.run("import", "/nowhere"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
