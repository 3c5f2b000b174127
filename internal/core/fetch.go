package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds a whole source fetch.
const DefaultFetchTimeout = 60 * time.Second

var sourceNameRegexp = regexp.MustCompile(`[^a-z0-9._-]`)

// SourceDirName derives the deterministic checkout directory name for a
// repository URL: the last path segment, without ".git", lower-cased and
// sanitized. Returns "" when nothing usable remains.
func SourceDirName(repoURL string) string {
	repoURL = strings.TrimSpace(repoURL)
	p := repoURL
	if u, err := url.Parse(repoURL); err == nil && u.Path != "" {
		p = u.Path
	} else if i := strings.LastIndex(repoURL, ":"); i >= 0 && strings.HasPrefix(repoURL, "git@") {
		// scp-like syntax: git@host:owner/repo.git
		p = repoURL[i+1:]
	}
	p = strings.TrimRight(p, "/")
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	base = strings.TrimSuffix(base, ".git")
	base = strings.ToLower(base)
	base = sourceNameRegexp.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-.")
	if len(base) > 255 {
		base = base[:255]
	}
	return base
}

// SourceFetcher materializes pinned, shallow git checkouts under a root
// directory.
type SourceFetcher struct {
	root    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewSourceFetcher creates a fetcher that checks sources out under root.
// A zero timeout means DefaultFetchTimeout.
func NewSourceFetcher(root string, timeout time.Duration, logger *slog.Logger) *SourceFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceFetcher{root: root, timeout: timeout, logger: logger}
}

// Root returns the directory checkouts are placed under.
func (f *SourceFetcher) Root() string { return f.root }

// Fetch checks out repoURL at commitRef and returns the absolute path of
// the checkout. An existing checkout is reused when its HEAD matches
// commitRef; any other existing directory is an error.
func (f *SourceFetcher) Fetch(ctx context.Context, repoURL, commitRef string) (string, error) {
	name := SourceDirName(repoURL)
	if name == "" {
		return "", newError(KindFetch, "The install link names an invalid source repository.", nil,
			"cannot derive a directory name from repository URL %q", repoURL)
	}
	if strings.TrimSpace(commitRef) == "" {
		return "", newError(KindFetch, "The install link does not pin a source version.", nil,
			"empty commit ref for %s", repoURL)
	}

	root, err := filepath.Abs(f.root)
	if err != nil {
		return "", newError(KindFetch, "The source download folder is not usable.", err,
			"resolving sources root %s", f.root)
	}
	target := filepath.Join(root, name)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if info, err := os.Stat(target); err == nil {
		if !info.IsDir() {
			return "", newError(KindFetch, "A file is blocking the server's source folder.", nil,
				"%s exists and is not a directory", target)
		}
		if err := f.verifyExisting(ctx, target, commitRef); err != nil {
			return "", err
		}
		return target, nil
	} else if !os.IsNotExist(err) {
		return "", newError(KindFetch, "The server's source folder could not be checked.", err,
			"stat %s", target)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", newError(KindFetch, "The source download folder could not be created.", err,
			"creating sources root %s", root)
	}

	// Check out into a sibling temp dir and rename into place so a
	// failed fetch never leaves a half-populated target behind.
	tmpDir, err := os.MkdirTemp(root, "."+name+"-fetch-*")
	if err != nil {
		return "", newError(KindFetch, "The source download folder could not be created.", err,
			"creating temp dir in %s", root)
	}

	f.logger.Debug("fetching source", "repo", repoURL, "commit", commitRef, "dir", target)
	if err := f.checkout(ctx, tmpDir, repoURL, commitRef); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", err
	}

	if err := os.Rename(tmpDir, target); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", newError(KindFetch, "The server's source could not be saved.", err,
			"renaming %s to %s", tmpDir, target)
	}
	return target, nil
}

// checkout fetches a single commit without history.
// Uses git init + fetch --depth 1 + checkout FETCH_HEAD.
func (f *SourceFetcher) checkout(ctx context.Context, dir, repoURL, commitRef string) error {
	steps := []struct {
		name string
		args []string
	}{
		{"init", []string{"init", "--quiet", dir}},
		{"remote add", []string{"-C", dir, "remote", "add", "origin", repoURL}},
		{"fetch", []string{"-C", dir, "fetch", "--quiet", "--depth", "1", "origin", commitRef}},
		{"checkout", []string{"-C", dir, "checkout", "--quiet", "--detach", "FETCH_HEAD"}},
	}
	for _, step := range steps {
		if output, err := runGit(ctx, step.args...); err != nil {
			return gitFetchError(step.name, repoURL, output, err)
		}
	}
	return nil
}

// verifyExisting checks that an existing checkout sits at commitRef.
func (f *SourceFetcher) verifyExisting(ctx context.Context, dir, commitRef string) error {
	output, err := runGit(ctx, "-C", dir, "rev-parse", "HEAD")
	if _, statErr := os.Stat(filepath.Join(dir, ".git")); statErr != nil && err == nil {
		err = statErr
	}
	if err != nil {
		return &Error{
			Kind:        KindFetch,
			Detail:      fmt.Sprintf("%s exists but is not a git checkout: %s", dir, firstLine(output)),
			UserMessage: "The server's source folder already exists and is not a valid download. Remove it and try again.",
			Err:         err,
		}
	}
	head := strings.TrimSpace(output)
	if !commitMatches(head, commitRef) {
		return newError(KindFetch,
			"A different version of the server's source is already downloaded. Remove it and try again.", nil,
			"%s is at %s, requested %s", dir, head, commitRef)
	}
	f.logger.Debug("reusing existing checkout", "dir", dir, "commit", head)
	return nil
}

// commitMatches reports whether head (a full object name) satisfies ref,
// which may be an abbreviated commit.
func commitMatches(head, ref string) bool {
	head = strings.ToLower(strings.TrimSpace(head))
	ref = strings.ToLower(strings.TrimSpace(ref))
	return head != "" && ref != "" && strings.HasPrefix(head, ref)
}

// runGit runs git with terminal prompts disabled and returns combined output.
func runGit(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	output, err := cmd.CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return string(output), fmt.Errorf("git command timed out: %w", ctxErr)
		}
		return string(output), ctxErr
	}
	return string(output), err
}
