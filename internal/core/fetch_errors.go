package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// fetchFailure classifies why a git fetch failed.
type fetchFailure int

const (
	fetchErrUnknown fetchFailure = iota
	fetchErrAuth
	fetchErrRepoNotFound
	fetchErrCommitNotFound
	fetchErrNetwork
	fetchErrTimeout
)

// String returns a human-readable label for the failure.
func (f fetchFailure) String() string {
	switch f {
	case fetchErrAuth:
		return "authentication required"
	case fetchErrRepoNotFound:
		return "repository not found"
	case fetchErrCommitNotFound:
		return "commit not found"
	case fetchErrNetwork:
		return "network error"
	case fetchErrTimeout:
		return "timeout"
	default:
		return "unknown error"
	}
}

// userMessage is what the user sees for this failure. It never includes
// the repository URL or raw git output.
func (f fetchFailure) userMessage() string {
	switch f {
	case fetchErrAuth:
		return "The server's source repository requires authentication. Only public repositories can be installed from a link."
	case fetchErrRepoNotFound:
		return "The server's source repository could not be found. Check that the install link is up to date."
	case fetchErrCommitNotFound:
		return "The pinned version of the server's source no longer exists in its repository."
	case fetchErrNetwork:
		return "The server's source could not be downloaded. Check your internet connection and try again."
	case fetchErrTimeout:
		return "Downloading the server's source took too long. Try again later."
	default:
		return "The server's source could not be downloaded."
	}
}

// classifyGitOutput pattern-matches git stderr to determine the failure.
// Timeouts are detected from the command error, not the output.
func classifyGitOutput(output string) fetchFailure {
	lower := strings.ToLower(output)

	if strings.Contains(lower, "could not read username") ||
		strings.Contains(lower, "could not read password") ||
		strings.Contains(lower, "authentication failed") ||
		strings.Contains(lower, "permission denied (publickey)") ||
		strings.Contains(lower, "terminal prompts disabled") ||
		strings.Contains(lower, "401") ||
		strings.Contains(lower, "403") {
		return fetchErrAuth
	}

	// "couldn't find remote ref" and friends mean the repo exists but
	// the pinned commit is gone (force-pushed away or never pushed).
	if strings.Contains(lower, "couldn't find remote ref") ||
		strings.Contains(lower, "not our ref") ||
		strings.Contains(lower, "no such remote ref") ||
		strings.Contains(lower, "unadvertised object") {
		return fetchErrCommitNotFound
	}

	if strings.Contains(lower, "repository not found") ||
		strings.Contains(lower, "does not appear to be a git repository") ||
		strings.Contains(lower, "not found") {
		return fetchErrRepoNotFound
	}

	if strings.Contains(lower, "could not resolve host") ||
		strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection timed out") ||
		strings.Contains(lower, "network is unreachable") ||
		strings.Contains(lower, "no route to host") ||
		strings.Contains(lower, "name or service not known") {
		return fetchErrNetwork
	}

	return fetchErrUnknown
}

// firstLine returns the first non-empty line of git output for log details.
func firstLine(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return "no output"
}

// gitFetchError builds the KindFetch error for a failed git command.
func gitFetchError(step, repoURL, output string, err error) *Error {
	failure := fetchErrTimeout
	if !errors.Is(err, context.DeadlineExceeded) {
		failure = classifyGitOutput(output + "\n" + errString(err))
	}
	return &Error{
		Kind:        KindFetch,
		Detail:      fmt.Sprintf("git %s for %s failed (%s): %s", step, repoURL, failure, firstLine(output)),
		UserMessage: failure.userMessage(),
		Err:         err,
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
