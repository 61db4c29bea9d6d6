package shared

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// revealCommand builds the platform command that shows path selected in the file browser.
//
// Linux file managers have no portable "select" flag, so the parent directory is opened instead.
func revealCommand(path string) (*exec.Cmd, error) {
	switch rt := getRuntime(); rt {
	case "darwin":
		return exec.Command("open", "-R", path), nil
	case "linux":
		return exec.Command("xdg-open", filepath.Dir(path)), nil
	case "windows":
		return exec.Command("explorer.exe", "/select,"+filepath.FromSlash(path)), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", rt)
	}
}

// RevealInFileBrowser shows path in the platform file browser.
//
// Supports macOS, Linux, and Windows platforms.
func RevealInFileBrowser(path string) error {
	cmd, err := revealCommand(path)
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open file browser: %w", err)
	}
	return nil
}
