package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Windows implements Platform for Windows. Restart is unsupported.
type Windows struct{}

func (Windows) Name() string             { return "windows" }
func (Windows) ExecutableSuffix() string { return ".exe" }

func (Windows) HostConfigPath() (string, error) {
	appData := os.Getenv("APPDATA")
	if appData == "" {
		return "", fmt.Errorf("APPDATA is not set")
	}
	return filepath.Join(appData, DefaultHostApp, hostConfigFile), nil
}

func (Windows) Restart(context.Context, string) error {
	return fmt.Errorf("restarting apps on windows: %w", ErrUnsupported)
}

func init() { Register(Windows{}) }
