// internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application paths and user-tunable settings
type Config struct {
	HomeDir      string
	CodepadDir   string
	StatePath    string
	SnapshotDir  string
	LogDir       string
	DownloadsDir string

	Settings Settings
}

// Settings holds the user-editable knobs loaded from settings.yaml.
// Debounce values are in milliseconds.
type Settings struct {
	SnapshotDebounceMs int    `yaml:"snapshot_debounce_ms"`
	DiskSyncDebounceMs int    `yaml:"disk_sync_debounce_ms"`
	DownloadsDir       string `yaml:"downloads_dir"`
	AssistEndpoint     string `yaml:"assist_endpoint"`
	Shell              string `yaml:"shell"`
}

// SnapshotDebounce returns the crash-recovery snapshot debounce interval
func (s Settings) SnapshotDebounce() time.Duration {
	return time.Duration(s.SnapshotDebounceMs) * time.Millisecond
}

// DiskSyncDebounce returns the disk-sync debounce interval
func (s Settings) DiskSyncDebounce() time.Duration {
	return time.Duration(s.DiskSyncDebounceMs) * time.Millisecond
}

// DefaultSettings returns the settings used when settings.yaml is absent
func DefaultSettings() Settings {
	return Settings{
		SnapshotDebounceMs: 800,
		DiskSyncDebounceMs: 3000,
		AssistEndpoint:     "https://api.anthropic.com/v1/messages",
	}
}

// Load creates a Config instance with resolved paths and settings
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(home)
}

// LoadFrom resolves all paths relative to the given home directory
func LoadFrom(home string) (*Config, error) {
	codepadDir := filepath.Join(home, ".codepad")
	snapshotDir := filepath.Join(codepadDir, "snapshots")
	logDir := filepath.Join(codepadDir, "logs")

	// Ensure directories exist
	for _, dir := range []string{codepadDir, snapshotDir, logDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	settings := DefaultSettings()
	if err := loadSettings(filepath.Join(codepadDir, "settings.yaml"), &settings); err != nil {
		return nil, err
	}

	downloads := settings.DownloadsDir
	if downloads == "" {
		downloads = filepath.Join(home, "Downloads")
	}

	return &Config{
		HomeDir:      home,
		CodepadDir:   codepadDir,
		StatePath:    filepath.Join(codepadDir, "state.db"),
		SnapshotDir:  snapshotDir,
		LogDir:       logDir,
		DownloadsDir: downloads,
		Settings:     settings,
	}, nil
}

// loadSettings overlays settings.yaml onto defaults. A missing file is fine.
func loadSettings(path string, settings *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var fromFile Settings
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return err
	}

	if fromFile.SnapshotDebounceMs > 0 {
		settings.SnapshotDebounceMs = fromFile.SnapshotDebounceMs
	}
	if fromFile.DiskSyncDebounceMs > 0 {
		settings.DiskSyncDebounceMs = fromFile.DiskSyncDebounceMs
	}
	if fromFile.DownloadsDir != "" {
		settings.DownloadsDir = fromFile.DownloadsDir
	}
	if fromFile.AssistEndpoint != "" {
		settings.AssistEndpoint = fromFile.AssistEndpoint
	}
	if fromFile.Shell != "" {
		settings.Shell = fromFile.Shell
	}
	return nil
}
