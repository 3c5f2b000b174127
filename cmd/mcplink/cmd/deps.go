package cmd

import (
	"fmt"
	"log/slog"

	"github.com/barysiuk/mcplink/internal/core"
	"github.com/barysiuk/mcplink/internal/core/platform"
	"github.com/barysiuk/mcplink/internal/ipc"
	"github.com/spf13/cobra"
)

// deps holds shared dependencies for CLI commands.
type deps struct {
	settings *core.Settings
	platform platform.Platform
	store    *core.ConfigStore
	bus      *ipc.Bus
	service  *ipc.Service
	logger   *slog.Logger
}

// newDeps loads settings, selects the platform strategy, and wires the
// config store to a fresh bus.
func newDeps(cmd *cobra.Command) (*deps, error) {
	logger := newLogger(cmd)

	var sm *core.SettingsManager
	if path, _ := cmd.Flags().GetString("settings"); path != "" {
		sm = core.NewSettingsManagerWithFile(path)
	} else {
		var err error
		sm, err = core.NewSettingsManager()
		if err != nil {
			return nil, fmt.Errorf("initializing settings: %w", err)
		}
	}
	settings, err := sm.Load()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	plat := platform.Current()
	configPath, err := resolveConfigPath(cmd, settings, plat)
	if err != nil {
		return nil, err
	}

	store, err := core.NewConfigStore(configPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", configPath, err)
	}

	bus := ipc.NewBus()
	service, err := ipc.NewService(bus, store, logger)
	if err != nil {
		return nil, err
	}

	return &deps{
		settings: settings,
		platform: plat,
		store:    store,
		bus:      bus,
		service:  service,
		logger:   logger,
	}, nil
}

// resolveConfigPath picks the host config path: --config flag, then the
// settings file, then the platform default.
func resolveConfigPath(cmd *cobra.Command, settings *core.Settings, plat platform.Platform) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	if settings.HostConfigPath != "" {
		return settings.HostConfigPath, nil
	}
	path, err := plat.HostConfigPath()
	if err != nil {
		return "", fmt.Errorf("locating the host app's configuration (set host_config_path in settings or pass --config): %w", err)
	}
	return path, nil
}

// orchestrator builds the install pipeline on top of d.
func (d *deps) orchestrator(skipRestart bool) *core.Orchestrator {
	opts := core.OrchestratorOptions{
		Fetcher: core.NewSourceFetcher(d.settings.SourcesDir, d.settings.FetchTimeout(), d.logger),
		Rewriter: core.NewCommandRewriter(core.RewriterOptions{
			BinDir:           d.settings.BinDir,
			ExecutableSuffix: d.platform.ExecutableSuffix(),
		}),
		Store:          d.store,
		Notifier:       d.bus.Notifier(),
		RestartTimeout: d.settings.RestartTimeout(),
		Logger:         d.logger,
	}
	if !skipRestart {
		opts.Restarter = core.PlatformRestarter(d.platform, d.hostApp())
	}
	return core.NewOrchestrator(opts)
}

func (d *deps) hostApp() string {
	if d.settings.HostApp != "" {
		return d.settings.HostApp
	}
	return platform.DefaultHostApp
}

// newLogger returns a text logger on stderr; --verbose enables debug.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
