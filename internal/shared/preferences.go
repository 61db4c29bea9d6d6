package shared

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
)

// Preferences holds mutable per-user state that survives between runs.
type Preferences struct {
	LastOpenedChartFolder string `toml:"last_opened_chart_folder"`
	Designer              string `toml:"designer"`
	CloudAutosave         bool   `toml:"cloud_autosave"`
	UserID                string `toml:"user_id"`
}

// PreferenceStore loads and saves [Preferences] at a fixed path.
type PreferenceStore struct {
	path string
}

// NewPreferenceStore resolves path (expanding a leading ~) and returns a store for it.
func NewPreferenceStore(path string) (*PreferenceStore, error) {
	resolved, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	return &PreferenceStore{path: resolved}, nil
}

// Path returns the resolved preferences file path.
func (s *PreferenceStore) Path() string { return s.path }

// Load reads preferences, returning zero values when the file is missing or unreadable.
func (s *PreferenceStore) Load() Preferences {
	var prefs Preferences

	data, err := os.ReadFile(s.path)
	if err != nil {
		return prefs
	}

	if err := toml.Unmarshal(data, &prefs); err != nil {
		return Preferences{}
	}
	return prefs
}

// Save writes preferences while holding an exclusive lock on a sibling .lock file.
func (s *PreferenceStore) Save(p Preferences) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock prefs: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

// Update loads, mutates and saves preferences in one call.
func (s *PreferenceStore) Update(fn func(*Preferences)) error {
	prefs := s.Load()
	fn(&prefs)
	return s.Save(prefs)
}

// EnsureUserID returns the stored device id, generating and persisting one on first use.
func (s *PreferenceStore) EnsureUserID() (string, error) {
	prefs := s.Load()
	if prefs.UserID != "" {
		return prefs.UserID, nil
	}

	prefs.UserID = GenerateID()
	if err := s.Save(prefs); err != nil {
		return "", err
	}
	return prefs.UserID, nil
}

// ExpandPath expands a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("%w: path is empty", ErrInvalidArgument)
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", errors.Join(ErrInvalidArgument, err)
	}
	return abs, nil
}
