package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Cloud       CloudConfig       `toml:"cloud"`
	Preferences PreferencesConfig `toml:"preferences"`
	Locale      LocaleConfig      `toml:"locale"`
	Logging     LoggingConfig     `toml:"logging"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local cloud endpoint emulator.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// CloudConfig contains the remote backup/sync endpoint settings.
type CloudConfig struct {
	BaseURL               string  `toml:"base_url"`
	UserID                string  `toml:"user_id"`
	LastModifiedPath      string  `toml:"last_modified_path"`
	UploadPath            string  `toml:"upload_path"`
	DownloadPath          string  `toml:"download_path"`
	TimeoutSeconds        int     `toml:"timeout_seconds"`
	RequestsPerSecond     float64 `toml:"requests_per_second"`
	BackupDelaySeconds    int     `toml:"backup_delay_seconds"`
	BackupIntervalSeconds int     `toml:"backup_interval_seconds"`
	ReachabilityAddress   string  `toml:"reachability_address"`
}

// Timeout returns the per-request timeout.
func (c CloudConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BackupDelay returns the wait before the first backup upload.
func (c CloudConfig) BackupDelay() time.Duration {
	return time.Duration(c.BackupDelaySeconds) * time.Second
}

// BackupInterval returns the wait between backup uploads.
func (c CloudConfig) BackupInterval() time.Duration {
	return time.Duration(c.BackupIntervalSeconds) * time.Second
}

// PreferencesConfig points at the mutable user preferences file.
type PreferencesConfig struct {
	Path string `toml:"path"`
}

// LocaleConfig selects the message catalog language.
type LocaleConfig struct {
	Language string `toml:"language"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that would otherwise surface as confusing runtime failures.
func (c *Config) Validate() error {
	if c.Cloud.BackupDelaySeconds < 0 || c.Cloud.BackupIntervalSeconds <= 0 {
		return fmt.Errorf("%w: backup delay must be >= 0 and interval > 0", ErrInvalidConfig)
	}
	if c.Cloud.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
