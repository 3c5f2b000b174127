package core

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// PythonVersion is the interpreter version pinned for every launcher.
	// Pinning avoids the launcher's own version negotiation disagreeing
	// with what the server declares.
	PythonVersion = "3.12"

	pythonFlag    = "--python"
	directoryFlag = "--directory"
)

// DefaultLaunchers are the bundled interpreter managers mcplink ships.
var DefaultLaunchers = []string{"uv", "uvx"}

// RewriterOptions configures a CommandRewriter.
type RewriterOptions struct {
	BinDir           string   // Root of the bundled binaries; contains <goos>-<goarch>/ subdirs
	GOOS             string   // Defaults to runtime.GOOS
	GOARCH           string   // Defaults to runtime.GOARCH
	ExecutableSuffix string   // Appended to launcher file names, e.g. ".exe"
	Launchers        []string // Defaults to DefaultLaunchers

	// Stat checks that a bundled binary exists. Defaults to os.Stat.
	Stat func(name string) (os.FileInfo, error)
}

// CommandRewriter rewrites server launch specs so they run through the
// bundled launchers with a pinned interpreter.
type CommandRewriter struct {
	binDir    string
	platform  string
	suffix    string
	launchers map[string]bool
	stat      func(name string) (os.FileInfo, error)
}

// NewCommandRewriter creates a rewriter from opts.
func NewCommandRewriter(opts RewriterOptions) *CommandRewriter {
	goos, goarch := opts.GOOS, opts.GOARCH
	if goos == "" {
		goos = runtime.GOOS
	}
	if goarch == "" {
		goarch = runtime.GOARCH
	}
	names := opts.Launchers
	if len(names) == 0 {
		names = DefaultLaunchers
	}
	launchers := make(map[string]bool, len(names))
	for _, n := range names {
		launchers[n] = true
	}
	stat := opts.Stat
	if stat == nil {
		stat = os.Stat
	}
	binDir := opts.BinDir
	if abs, err := filepath.Abs(binDir); err == nil {
		binDir = abs
	}
	return &CommandRewriter{
		binDir:    binDir,
		platform:  goos + "-" + goarch,
		suffix:    opts.ExecutableSuffix,
		launchers: launchers,
		stat:      stat,
	}
}

// BinaryPath returns where the bundled binary for launcher is expected.
func (r *CommandRewriter) BinaryPath(launcher string) string {
	return filepath.Join(r.binDir, r.platform, launcher+r.suffix)
}

// Rewrite returns a copy of spec that:
//   - pins the interpreter with "--python 3.12" right after each launcher
//     token in args (or right after the command when only the command is a
//     launcher),
//   - replaces the value of a "--directory" flag that directly follows a
//     launcher with sourcePath,
//   - replaces every launcher token with the absolute path of the bundled
//     binary for this platform.
//
// The input spec is never modified.
func (r *CommandRewriter) Rewrite(spec ServerLaunchSpec, sourcePath string) (ServerLaunchSpec, error) {
	out := spec.Clone()
	argv := append([]string{spec.Command}, spec.Args...)

	launcherAt := make([]string, len(argv))
	argsHaveLauncher := false
	for i, tok := range argv {
		launcherAt[i] = r.launcherName(tok)
		if i > 0 && launcherAt[i] != "" {
			argsHaveLauncher = true
		}
	}

	pinAfter := make(map[int]bool)
	replaceDir := make(map[int]bool)
	for i, name := range launcherAt {
		if name == "" {
			continue
		}
		if i > 0 || !argsHaveLauncher {
			if i+1 >= len(argv) || argv[i+1] != pythonFlag {
				pinAfter[i] = true
			}
		}
		if i+1 < len(argv) && argv[i+1] == directoryFlag {
			if i+2 >= len(argv) {
				return ServerLaunchSpec{}, newError(KindRewrite,
					"The server's launch command is incomplete.", nil,
					"%s flag after %s has no value", directoryFlag, name)
			}
			if sourcePath == "" {
				return ServerLaunchSpec{}, newError(KindRewrite,
					"The server needs its source code, but the install link does not include it.", nil,
					"%s %s requires a fetched source directory but none was provided", name, directoryFlag)
			}
			replaceDir[i+2] = true
		}
	}

	rewritten := make([]string, 0, len(argv)+2*len(pinAfter))
	for i, tok := range argv {
		switch {
		case replaceDir[i]:
			tok = sourcePath
		case launcherAt[i] != "":
			resolved, err := r.resolve(launcherAt[i])
			if err != nil {
				return ServerLaunchSpec{}, err
			}
			tok = resolved
		}
		rewritten = append(rewritten, tok)
		if pinAfter[i] {
			rewritten = append(rewritten, pythonFlag, PythonVersion)
		}
	}

	out.Command = rewritten[0]
	if len(rewritten) > 1 || out.Args != nil {
		out.Args = append([]string{}, rewritten[1:]...)
	}
	return out, nil
}

// launcherName returns the launcher a token refers to, or "" if none.
// Bare names and paths whose base name is a launcher both count.
func (r *CommandRewriter) launcherName(tok string) string {
	if tok == "" {
		return ""
	}
	base := strings.TrimSuffix(filepath.Base(tok), ".exe")
	if r.launchers[base] {
		return base
	}
	return ""
}

// resolve returns the bundled binary path for a launcher, failing when it
// is absent from disk.
func (r *CommandRewriter) resolve(launcher string) (string, error) {
	p := r.BinaryPath(launcher)
	info, err := r.stat(p)
	if err != nil || info.IsDir() {
		return "", newError(KindRewrite,
			"mcplink is missing a bundled component ("+launcher+"). Reinstall mcplink and try again.", err,
			"bundled launcher %s not found at %s (packaging defect)", launcher, p)
	}
	return p, nil
}
