package core

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// newTestRewriter returns a rewriter whose bundled binaries live in a
// temp bin dir for linux-amd64.
func newTestRewriter(t *testing.T, launchers ...string) (*CommandRewriter, string) {
	t.Helper()
	binDir := t.TempDir()
	platformDir := filepath.Join(binDir, "linux-amd64")
	if err := os.MkdirAll(platformDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, l := range launchers {
		if err := os.WriteFile(filepath.Join(platformDir, l), []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	r := NewCommandRewriter(RewriterOptions{BinDir: binDir, GOOS: "linux", GOARCH: "amd64"})
	return r, platformDir
}

func TestRewrite_LauncherCommand(t *testing.T) {
	r, dir := newTestRewriter(t, "uv", "uvx")

	in := ServerLaunchSpec{
		Command: "uvx",
		Args:    []string{"spotify-mcp"},
		Env:     map[string]string{"SPOTIFY_CLIENT_ID": "abc"},
	}
	got, err := r.Rewrite(in, "")
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}

	want := ServerLaunchSpec{
		Command: filepath.Join(dir, "uvx"),
		Args:    []string{"--python", "3.12", "spotify-mcp"},
		Env:     map[string]string{"SPOTIFY_CLIENT_ID": "abc"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rewrite() = %+v, want %+v", got, want)
	}
	if in.Command != "uvx" || !reflect.DeepEqual(in.Args, []string{"spotify-mcp"}) {
		t.Errorf("input was modified: %+v", in)
	}
}

func TestRewrite_DirectorySubstitution(t *testing.T) {
	r, dir := newTestRewriter(t, "uv", "uvx")

	in := ServerLaunchSpec{Command: "uv", Args: []string{"--directory", ".", "run", "weather.py"}}
	got, err := r.Rewrite(in, "/sources/weather-mcp")
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}

	wantArgs := []string{"--python", "3.12", "--directory", "/sources/weather-mcp", "run", "weather.py"}
	if got.Command != filepath.Join(dir, "uv") {
		t.Errorf("command = %q, want %q", got.Command, filepath.Join(dir, "uv"))
	}
	if !reflect.DeepEqual(got.Args, wantArgs) {
		t.Errorf("args = %v, want %v", got.Args, wantArgs)
	}
}

func TestRewrite_LauncherInArgs(t *testing.T) {
	r, dir := newTestRewriter(t, "uv", "uvx")

	in := ServerLaunchSpec{Command: "env", Args: []string{"FOO=1", "uvx", "some-server"}}
	got, err := r.Rewrite(in, "")
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}

	want := []string{"FOO=1", filepath.Join(dir, "uvx"), "--python", "3.12", "some-server"}
	if got.Command != "env" {
		t.Errorf("command = %q, want env", got.Command)
	}
	if !reflect.DeepEqual(got.Args, want) {
		t.Errorf("args = %v, want %v", got.Args, want)
	}
}

func TestRewrite_CommandAndArgsBothLaunchers(t *testing.T) {
	r, dir := newTestRewriter(t, "uv", "uvx")

	// The pin goes after the launcher token in args only.
	in := ServerLaunchSpec{Command: "uv", Args: []string{"tool", "run", "uvx", "srv"}}
	got, err := r.Rewrite(in, "")
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	want := []string{"tool", "run", filepath.Join(dir, "uvx"), "--python", "3.12", "srv"}
	if !reflect.DeepEqual(got.Args, want) {
		t.Errorf("args = %v, want %v", got.Args, want)
	}
}

func TestRewrite_ExistingPythonPinKept(t *testing.T) {
	r, _ := newTestRewriter(t, "uv", "uvx")

	in := ServerLaunchSpec{Command: "uvx", Args: []string{"--python", "3.11", "srv"}}
	got, err := r.Rewrite(in, "")
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	want := []string{"--python", "3.11", "srv"}
	if !reflect.DeepEqual(got.Args, want) {
		t.Errorf("args = %v, want %v", got.Args, want)
	}
}

func TestRewrite_NonLauncherUnchanged(t *testing.T) {
	r, _ := newTestRewriter(t)

	in := ServerLaunchSpec{Command: "npx", Args: []string{"-y", "@modelcontextprotocol/server-filesystem", "."}}
	got, err := r.Rewrite(in, "/unused")
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("Rewrite() = %+v, want unchanged %+v", got, in)
	}
}

func TestRewrite_LauncherPath(t *testing.T) {
	r, dir := newTestRewriter(t, "uv", "uvx")

	got, err := r.Rewrite(ServerLaunchSpec{Command: "/usr/local/bin/uvx", Args: []string{"srv"}}, "")
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if got.Command != filepath.Join(dir, "uvx") {
		t.Errorf("command = %q, want bundled uvx", got.Command)
	}
}

func TestRewrite_NoArgs(t *testing.T) {
	r, _ := newTestRewriter(t, "uv", "uvx")

	got, err := r.Rewrite(ServerLaunchSpec{Command: "uvx"}, "")
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	want := []string{"--python", "3.12"}
	if !reflect.DeepEqual(got.Args, want) {
		t.Errorf("args = %v, want %v", got.Args, want)
	}
}

func TestRewrite_Errors(t *testing.T) {
	tests := []struct {
		name       string
		launchers  []string
		spec       ServerLaunchSpec
		sourcePath string
	}{
		{
			name:      "missing bundled binary",
			launchers: []string{"uv"},
			spec:      ServerLaunchSpec{Command: "uvx", Args: []string{"srv"}},
		},
		{
			name:      "directory without source",
			launchers: []string{"uv", "uvx"},
			spec:      ServerLaunchSpec{Command: "uv", Args: []string{"--directory", ".", "run", "x.py"}},
		},
		{
			name:       "directory without value",
			launchers:  []string{"uv", "uvx"},
			spec:       ServerLaunchSpec{Command: "uv", Args: []string{"--directory"}},
			sourcePath: "/src",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRewriter(t, tt.launchers...)
			_, err := r.Rewrite(tt.spec, tt.sourcePath)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if KindOf(err) != KindRewrite {
				t.Errorf("kind = %v, want %v", KindOf(err), KindRewrite)
			}
		})
	}
}

func TestRewrite_StatOverride(t *testing.T) {
	var checked []string
	r := NewCommandRewriter(RewriterOptions{
		BinDir:           "/opt/mcplink/bin",
		GOOS:             "windows",
		GOARCH:           "arm64",
		ExecutableSuffix: ".exe",
		Stat: func(name string) (os.FileInfo, error) {
			checked = append(checked, name)
			return os.Stat(os.TempDir())
		},
	})

	// Stat returns a directory, which never counts as a binary.
	_, err := r.Rewrite(ServerLaunchSpec{Command: "uvx.exe"}, "")
	if KindOf(err) != KindRewrite {
		t.Fatalf("kind = %v, want %v", KindOf(err), KindRewrite)
	}
	want := filepath.Join("/opt/mcplink/bin", "windows-arm64", "uvx.exe")
	if len(checked) != 1 || checked[0] != want {
		t.Errorf("checked = %v, want [%s]", checked, want)
	}
}

func TestBinaryPath(t *testing.T) {
	r := NewCommandRewriter(RewriterOptions{BinDir: "/opt/bin", GOOS: "darwin", GOARCH: "arm64"})
	if got, want := r.BinaryPath("uv"), filepath.Join("/opt/bin", "darwin-arm64", "uv"); got != want {
		t.Errorf("BinaryPath() = %q, want %q", got, want)
	}
}
