package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tailscale/hujson"
)

const (
	settingsDirName  = ".mcplink"
	settingsFileName = "settings.json"
)

// Settings holds mcplink's own preferences, stored at ~/.mcplink/settings.json.
// The file is JSONC: comments and trailing commas are allowed.
type Settings struct {
	HostConfigPath        string `json:"host_config_path,omitempty"` // Empty means the platform default
	HostApp               string `json:"host_app,omitempty"`
	BinDir                string `json:"bin_dir,omitempty"`
	SourcesDir            string `json:"sources_dir,omitempty"`
	FetchTimeoutSeconds   int    `json:"fetch_timeout_seconds,omitempty"`
	RestartTimeoutSeconds int    `json:"restart_timeout_seconds,omitempty"`
}

// FetchTimeout returns the configured fetch timeout or the default.
func (s *Settings) FetchTimeout() time.Duration {
	if s.FetchTimeoutSeconds > 0 {
		return time.Duration(s.FetchTimeoutSeconds) * time.Second
	}
	return DefaultFetchTimeout
}

// RestartTimeout returns the configured restart timeout or the default.
func (s *Settings) RestartTimeout() time.Duration {
	if s.RestartTimeoutSeconds > 0 {
		return time.Duration(s.RestartTimeoutSeconds) * time.Second
	}
	return DefaultRestartTimeout
}

// SettingsManager handles reading and writing mcplink settings.
type SettingsManager struct {
	dir  string
	path string
	mu   sync.RWMutex
}

// NewSettingsManager creates a SettingsManager using the default
// location (~/.mcplink/).
func NewSettingsManager() (*SettingsManager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	return NewSettingsManagerWithDir(filepath.Join(home, settingsDirName)), nil
}

// NewSettingsManagerWithDir creates a SettingsManager rooted at dir.
// Useful for testing.
func NewSettingsManagerWithDir(dir string) *SettingsManager {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &SettingsManager{dir: dir, path: filepath.Join(dir, settingsFileName)}
}

// NewSettingsManagerWithFile creates a SettingsManager for an explicit
// settings file.
func NewSettingsManagerWithFile(path string) *SettingsManager {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &SettingsManager{dir: filepath.Dir(path), path: path}
}

// Dir returns the settings directory.
func (sm *SettingsManager) Dir() string { return sm.dir }

// Path returns the full path to the settings file.
func (sm *SettingsManager) Path() string { return sm.path }

// Load reads settings from disk, filling in defaults for anything unset.
// A missing file yields the defaults.
func (sm *SettingsManager) Load() (*Settings, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var s Settings
	data, err := os.ReadFile(sm.path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading settings: %w", err)
	default:
		std, err := hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("parsing settings %s: %w", sm.path, err)
		}
		if err := json.Unmarshal(std, &s); err != nil {
			return nil, fmt.Errorf("parsing settings %s: %w", sm.path, err)
		}
	}

	sm.applyDefaults(&s)
	return &s, nil
}

// Save writes settings to disk, creating the directory if needed.
func (sm *SettingsManager) Save(s *Settings) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err := os.MkdirAll(sm.dir, 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	v, err := hujson.Parse(data)
	if err != nil {
		return fmt.Errorf("formatting settings: %w", err)
	}
	v.Format()

	// Write atomically: write to temp file then rename
	tmpPath := sm.path + ".tmp"
	if err := os.WriteFile(tmpPath, v.Pack(), 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmpPath, sm.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

func (sm *SettingsManager) applyDefaults(s *Settings) {
	if s.BinDir == "" {
		s.BinDir = defaultBinDir(sm.dir)
	}
	if s.SourcesDir == "" {
		s.SourcesDir = filepath.Join(sm.dir, "sources")
	}
	s.BinDir = sm.resolvePath(s.BinDir)
	s.SourcesDir = sm.resolvePath(s.SourcesDir)
	s.HostConfigPath = sm.resolvePath(s.HostConfigPath)
}

// resolvePath expands ~ and anchors relative paths at the settings
// directory rather than the working directory, which is arbitrary when the
// OS launches mcplink for a link.
func (sm *SettingsManager) resolvePath(p string) string {
	if p == "" {
		return ""
	}
	p = expandHome(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(sm.dir, p)
}

// defaultBinDir prefers a "bin" directory next to the mcplink executable
// (where packaged builds ship the bundled launchers) and falls back to
// <settingsDir>/bin.
func defaultBinDir(settingsDir string) string {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "bin")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return filepath.Join(settingsDir, "bin")
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(p string) string {
	if p == "~" || len(p) > 1 && p[0] == '~' && (p[1] == '/' || p[1] == filepath.Separator) {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[1:])
	}
	return p
}
