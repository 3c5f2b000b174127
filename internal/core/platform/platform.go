// Package platform defines the per-OS strategies mcplink needs: where the
// host app keeps its MCP configuration, how bundled executables are named,
// and how the host app is restarted.
//
// One Platform is registered per GOOS and selected once at startup with
// Current. Operations a platform cannot perform return ErrUnsupported so
// callers can tell "not available here" apart from a real failure.
package platform

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"
)

// ErrUnsupported is returned for operations that are not available on the
// current platform.
var ErrUnsupported = errors.New("not supported on this platform")

// DefaultHostApp is the application whose configuration mcplink manages.
const DefaultHostApp = "Claude"

// hostConfigFile is the host app's configuration file name.
const hostConfigFile = "claude_desktop_config.json"

// Platform is the strategy for one operating system.
type Platform interface {
	// Name returns the GOOS value this platform handles.
	Name() string

	// HostConfigPath returns the default absolute path of the host app's
	// configuration file.
	HostConfigPath() (string, error)

	// ExecutableSuffix is appended to bundled binary names.
	ExecutableSuffix() string

	// Restart quits and relaunches the named application.
	Restart(ctx context.Context, app string) error
}

// runFunc runs an external command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// --- Registry ---

var platforms = map[string]Platform{}

// Register adds a platform to the registry, replacing any previous one
// with the same name.
func Register(p Platform) { platforms[p.Name()] = p }

// ByName returns the platform registered for goos. Unknown names yield a
// platform whose every operation fails with ErrUnsupported.
func ByName(goos string) Platform {
	if p, ok := platforms[goos]; ok {
		return p
	}
	return unsupported{name: goos}
}

// Current returns the platform for the running OS.
func Current() Platform { return ByName(runtime.GOOS) }

// Names returns the registered platform names in sorted order.
func Names() []string {
	names := make([]string, 0, len(platforms))
	for n := range platforms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// unsupported is the fallback for operating systems with no strategy.
type unsupported struct {
	name string
}

func (u unsupported) Name() string             { return u.name }
func (u unsupported) ExecutableSuffix() string { return "" }

func (u unsupported) HostConfigPath() (string, error) {
	return "", fmt.Errorf("host config location on %s: %w", u.name, ErrUnsupported)
}

func (u unsupported) Restart(context.Context, string) error {
	return fmt.Errorf("restarting apps on %s: %w", u.name, ErrUnsupported)
}

// commandError formats a failed external command with its first line of
// output.
func commandError(name string, output []byte, err error) error {
	msg := strings.TrimSpace(string(output))
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	if msg == "" {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%s: %w (%s)", name, err, msg)
}
