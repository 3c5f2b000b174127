package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Linux implements Platform for Linux desktops. The host app has no
// scripting interface there, so Restart is unsupported.
type Linux struct{}

func (Linux) Name() string             { return "linux" }
func (Linux) ExecutableSuffix() string { return "" }

func (Linux) HostConfigPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, DefaultHostApp, hostConfigFile), nil
}

func (Linux) Restart(context.Context, string) error {
	return fmt.Errorf("restarting apps on linux: %w", ErrUnsupported)
}

func init() { Register(Linux{}) }
