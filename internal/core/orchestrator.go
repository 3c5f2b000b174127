package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/barysiuk/mcplink/internal/core/platform"
)

// DefaultRestartTimeout bounds the host app restart.
const DefaultRestartTimeout = 30 * time.Second

// Fetcher materializes a pinned source tree and returns its local path.
type Fetcher interface {
	Fetch(ctx context.Context, repoURL, commitRef string) (string, error)
}

// Rewriter rewrites a launch spec to use bundled launchers.
type Rewriter interface {
	Rewrite(spec ServerLaunchSpec, sourcePath string) (ServerLaunchSpec, error)
}

// Persister stores one server entry in the host config.
type Persister interface {
	Set(ctx context.Context, name string, spec ServerLaunchSpec) error
}

// Restarter restarts the host app so it picks up the new configuration.
type Restarter interface {
	Restart(ctx context.Context) error
}

// RestarterFunc adapts a function to the Restarter interface.
type RestarterFunc func(ctx context.Context) error

// Restart calls f(ctx).
func (f RestarterFunc) Restart(ctx context.Context) error { return f(ctx) }

// PlatformRestarter restarts app through a platform strategy.
func PlatformRestarter(p platform.Platform, app string) Restarter {
	return RestarterFunc(func(ctx context.Context) error {
		return p.Restart(ctx, app)
	})
}

// Stage names one step of an install attempt.
type Stage string

const (
	StageDecoding   Stage = "decoding"
	StageFetching   Stage = "fetching"
	StageRewriting  Stage = "rewriting"
	StagePersisting Stage = "persisting"
	StageRestarting Stage = "restarting"
	StageNotifying  Stage = "notifying"
	StageDone       Stage = "done"
)

// OrchestratorOptions wires the pipeline components together.
type OrchestratorOptions struct {
	Fetcher        Fetcher
	Rewriter       Rewriter
	Store          Persister
	Restarter      Restarter // nil skips the restart stage
	Notifier       Notifier
	RestartTimeout time.Duration
	Logger         *slog.Logger

	// OnStage, when set, is called as each stage begins.
	OnStage func(Stage)
}

// Orchestrator runs install attempts: decode, fetch, rewrite, persist,
// restart, notify.
type Orchestrator struct {
	opts OrchestratorOptions
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RestartTimeout <= 0 {
		opts.RestartTimeout = DefaultRestartTimeout
	}
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(Notification) {})
	}
	return &Orchestrator{opts: opts}
}

// Install handles one install link. The outcome is reported only through
// the Notifier, exactly once; Install itself never fails or panics.
func (o *Orchestrator) Install(ctx context.Context, rawURL string) {
	name, err := o.run(ctx, rawURL)
	o.stage(StageNotifying)
	if err != nil {
		o.opts.Notifier.Notify(o.failure(err))
	} else {
		o.opts.Notifier.Notify(Notification{
			Type:    NotifySuccess,
			Title:   "Server installed",
			Message: fmt.Sprintf("%s was installed successfully.", name),
		})
	}
	o.stage(StageDone)
}

// restartError marks a restart failure that happened after the server
// entry was already persisted.
type restartError struct {
	server string
	err    error
}

func (e *restartError) Error() string { return "restarting host app: " + e.err.Error() }
func (e *restartError) Unwrap() error { return e.err }

func (o *Orchestrator) run(ctx context.Context, rawURL string) (name string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindUnknown, Detail: fmt.Sprintf("panic: %v", r),
				UserMessage: "An unexpected error occurred during installation."}
		}
	}()

	o.stage(StageDecoding)
	desc, err := DecodeInstallURL(rawURL)
	if err != nil {
		return "", err
	}
	name, spec := desc.Server()
	log := o.opts.Logger.With("server", name)

	var sourcePath string
	if desc.Git != nil {
		o.stage(StageFetching)
		if o.opts.Fetcher == nil {
			return name, newError(KindFetch, "This install needs to download source code, which is not available here.", nil,
				"no fetcher configured for %s", desc.Git.RepoURL)
		}
		log.Info("fetching server source", "repo", desc.Git.RepoURL, "commit", desc.Git.Commit)
		sourcePath, err = o.opts.Fetcher.Fetch(ctx, desc.Git.RepoURL, desc.Git.Commit)
		if err != nil {
			return name, err
		}
	}

	o.stage(StageRewriting)
	rewritten, err := o.opts.Rewriter.Rewrite(spec, sourcePath)
	if err != nil {
		return name, err
	}

	o.stage(StagePersisting)
	if err := o.opts.Store.Set(ctx, name, rewritten); err != nil {
		return name, err
	}
	log.Info("server entry saved", "command", rewritten.Command)

	if o.opts.Restarter == nil {
		return name, nil
	}
	o.stage(StageRestarting)
	restartCtx, cancel := context.WithTimeout(ctx, o.opts.RestartTimeout)
	defer cancel()
	if err := o.opts.Restarter.Restart(restartCtx); err != nil {
		return name, &restartError{server: name, err: err}
	}
	return name, nil
}

// failure maps a pipeline error onto the single error notification. The
// developer detail is logged; only the user message is shown.
func (o *Orchestrator) failure(err error) Notification {
	var re *restartError
	if errors.As(err, &re) {
		kind := KindUnknown
		msg := fmt.Sprintf("%s was saved, but the app could not be restarted automatically. Restart it to use the new server.", re.server)
		if errors.Is(re.err, platform.ErrUnsupported) {
			kind = KindUnsupportedPlatform
			msg = fmt.Sprintf("%s was saved. Automatic restart is not supported on this system; restart the app to use the new server.", re.server)
		}
		o.opts.Logger.Error("install failed", "kind", kind.String(), "stage", StageRestarting, "err", re.err)
		return Notification{Type: NotifyError, Title: "Installed, restart required", Message: msg}
	}

	e := AsError(err)
	o.opts.Logger.Error("install failed", "kind", e.Kind.String(), "detail", e.Detail, "err", e.Err)
	return Notification{Type: NotifyError, Title: e.Kind.String(), Message: e.UserMessage}
}

func (o *Orchestrator) stage(s Stage) {
	if o.opts.OnStage != nil {
		o.opts.OnStage(s)
	}
}
