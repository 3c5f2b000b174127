package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// relaunchDelay gives the app time to exit before it is reopened.
const relaunchDelay = 2 * time.Second

// Darwin implements Platform for macOS.
type Darwin struct {
	run   runFunc
	delay time.Duration
	home  func() (string, error)
}

// NewDarwin creates the macOS platform.
func NewDarwin() *Darwin {
	return &Darwin{run: execRun, delay: relaunchDelay, home: os.UserHomeDir}
}

func (d *Darwin) Name() string             { return "darwin" }
func (d *Darwin) ExecutableSuffix() string { return "" }

func (d *Darwin) HostConfigPath() (string, error) {
	home, err := d.home()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, "Library", "Application Support", DefaultHostApp, hostConfigFile), nil
}

// Restart quits the app through AppleScript, waits, and opens it again.
func (d *Darwin) Restart(ctx context.Context, app string) error {
	if app == "" {
		app = DefaultHostApp
	}
	quit := fmt.Sprintf("quit app %q", app)
	if out, err := d.run(ctx, "osascript", "-e", quit); err != nil {
		return commandError("osascript", out, err)
	}

	timer := time.NewTimer(d.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	if out, err := d.run(ctx, "open", "-a", app); err != nil {
		return commandError("open", out, err)
	}
	return nil
}

func init() { Register(NewDarwin()) }
