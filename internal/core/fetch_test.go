package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSourceDirName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/example/weather-mcp", "weather-mcp"},
		{"https://github.com/example/weather-mcp.git", "weather-mcp"},
		{"https://github.com/example/Weather_MCP/", "weather_mcp"},
		{"git@github.com:example/spotify-mcp.git", "spotify-mcp"},
		{"file:///tmp/repos/My Server", "my-server"},
		{"https://github.com/", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := SourceDirName(tt.url); got != tt.want {
				t.Errorf("SourceDirName(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestCommitMatches(t *testing.T) {
	head := "3f2a9c1d4e5b6a7980f1e2d3c4b5a69788776655"
	tests := []struct {
		ref  string
		want bool
	}{
		{head, true},
		{"3f2a9c1", true},
		{"3F2A9C1", true},
		{"3f2a9c2", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := commitMatches(head, tt.ref); got != tt.want {
			t.Errorf("commitMatches(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}

func TestClassifyGitOutput(t *testing.T) {
	tests := []struct {
		output string
		want   fetchFailure
	}{
		{"fatal: could not read Username for 'https://github.com': terminal prompts disabled", fetchErrAuth},
		{"remote: Repository not found.\nfatal: repository 'https://github.com/x/y/' not found", fetchErrRepoNotFound},
		{"fatal: remote error: upload-pack: not our ref 0123abcd", fetchErrCommitNotFound},
		{"fatal: couldn't find remote ref deadbeef", fetchErrCommitNotFound},
		{"fatal: unable to access: Could not resolve host: github.com", fetchErrNetwork},
		{"fatal: unable to access: Failed to connect to github.com port 443: Connection timed out", fetchErrNetwork},
		{"something unexpected", fetchErrUnknown},
	}
	for _, tt := range tests {
		if got := classifyGitOutput(tt.output); got != tt.want {
			t.Errorf("classifyGitOutput(%q) = %v, want %v", tt.output, got, tt.want)
		}
	}
}

func TestGitFetchError_Timeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want fetchFailure
	}{
		{"deadline", fmt.Errorf("git command timed out: %w", context.DeadlineExceeded), fetchErrTimeout},
		{"connection timed out", errors.New("exit status 128"), fetchErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := gitFetchError("fetch", "https://github.com/x/y",
				"fatal: unable to access 'https://github.com/x/y/': Failed to connect to github.com port 443: Connection timed out", tt.err)
			if want := tt.want.userMessage(); e.UserMessage != want {
				t.Errorf("user message = %q, want %q", e.UserMessage, want)
			}
			if !strings.Contains(e.Detail, tt.want.String()) {
				t.Errorf("detail = %q, want it to name %v", e.Detail, tt.want)
			}
		})
	}
}

func TestGitFetchError_HidesDetailFromUser(t *testing.T) {
	e := gitFetchError("fetch", "https://secret.example.com/x.git",
		"fatal: repository 'https://secret.example.com/x.git' not found", errors.New("exit status 128"))
	if e.Kind != KindFetch {
		t.Errorf("kind = %v, want %v", e.Kind, KindFetch)
	}
	if strings.Contains(e.UserMessage, "secret.example.com") {
		t.Errorf("user message leaks URL: %q", e.UserMessage)
	}
	if !strings.Contains(e.Detail, "secret.example.com") {
		t.Errorf("detail = %q, want repository URL", e.Detail)
	}
}

// setupSourceRepo creates a local git repo with one commit and returns its
// file:// URL and the commit hash.
func setupSourceRepo(t *testing.T) (string, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := filepath.Join(t.TempDir(), "weather-mcp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	runGit := func(args ...string) string {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test",
			"GIT_AUTHOR_EMAIL=test@test.com",
			"GIT_COMMITTER_NAME=Test",
			"GIT_COMMITTER_EMAIL=test@test.com",
		)
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
		return strings.TrimSpace(string(out))
	}

	runGit("init")
	runGit("checkout", "-b", "main")
	runGit("config", "uploadpack.allowAnySHA1InWant", "true")
	if err := os.WriteFile(filepath.Join(dir, "weather.py"), []byte("print('sunny')\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit("add", ".")
	runGit("commit", "-m", "initial")
	commit := runGit("rev-parse", "HEAD")

	return "file://" + filepath.ToSlash(dir), commit
}

func TestSourceFetcher_Fetch(t *testing.T) {
	repoURL, commit := setupSourceRepo(t)
	root := filepath.Join(t.TempDir(), "sources")
	f := NewSourceFetcher(root, 30*time.Second, nil)

	got, err := f.Fetch(context.Background(), repoURL, commit)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if want := filepath.Join(root, "weather-mcp"); got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
	if _, err := os.Stat(filepath.Join(got, "weather.py")); err != nil {
		t.Errorf("checkout missing weather.py: %v", err)
	}

	entries, _ := os.ReadDir(root)
	if len(entries) != 1 {
		t.Errorf("sources root has %d entries, want 1 (temp dir left behind?)", len(entries))
	}
}

func TestSourceFetcher_ReusesMatchingCheckout(t *testing.T) {
	repoURL, commit := setupSourceRepo(t)
	f := NewSourceFetcher(t.TempDir(), 30*time.Second, nil)
	ctx := context.Background()

	first, err := f.Fetch(ctx, repoURL, commit)
	if err != nil {
		t.Fatalf("first Fetch() error = %v", err)
	}
	marker := filepath.Join(first, "marker")
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	second, err := f.Fetch(ctx, repoURL, commit[:7])
	if err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}
	if second != first {
		t.Errorf("second path = %q, want %q", second, first)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Error("existing checkout was replaced instead of reused")
	}
}

func TestSourceFetcher_MismatchedCheckout(t *testing.T) {
	repoURL, commit := setupSourceRepo(t)
	f := NewSourceFetcher(t.TempDir(), 30*time.Second, nil)
	ctx := context.Background()

	if _, err := f.Fetch(ctx, repoURL, commit); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	_, err := f.Fetch(ctx, repoURL, "0000000000000000000000000000000000000000")
	if KindOf(err) != KindFetch {
		t.Errorf("kind = %v, want %v", KindOf(err), KindFetch)
	}
}

func TestSourceFetcher_ExistingNonCheckout(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "weather-mcp"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	f := NewSourceFetcher(root, 10*time.Second, nil)
	_, err := f.Fetch(context.Background(), "https://example.com/weather-mcp.git", "abc123")
	if KindOf(err) != KindFetch {
		t.Errorf("kind = %v, want %v", KindOf(err), KindFetch)
	}
}

func TestSourceFetcher_UnknownCommit(t *testing.T) {
	repoURL, _ := setupSourceRepo(t)
	root := t.TempDir()
	f := NewSourceFetcher(root, 30*time.Second, nil)

	_, err := f.Fetch(context.Background(), repoURL, "0123456789abcdef0123456789abcdef01234567")
	if KindOf(err) != KindFetch {
		t.Fatalf("kind = %v, want %v (err = %v)", KindOf(err), KindFetch, err)
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Errorf("failed fetch left %d entries behind", len(entries))
	}
}

func TestSourceFetcher_InvalidInput(t *testing.T) {
	f := NewSourceFetcher(t.TempDir(), 0, nil)
	ctx := context.Background()

	if _, err := f.Fetch(ctx, "https://github.com/", "abc"); KindOf(err) != KindFetch {
		t.Errorf("bad URL kind = %v, want %v", KindOf(err), KindFetch)
	}
	if _, err := f.Fetch(ctx, "https://github.com/x/y", " "); KindOf(err) != KindFetch {
		t.Errorf("empty commit kind = %v, want %v", KindOf(err), KindFetch)
	}
}
