package core

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// WatchEventKind distinguishes watcher events.
type WatchEventKind int

const (
	// WatchConfigChanged carries the freshly parsed document.
	WatchConfigChanged WatchEventKind = iota
	// WatchFailed reports a file that could not be read or parsed.
	// The watch keeps running.
	WatchFailed
)

// WatchEvent is delivered to the watch observer after each modification.
type WatchEvent struct {
	Kind     WatchEventKind
	Document *HostConfig // set for WatchConfigChanged
	Message  string      // set for WatchFailed
}

// debounceWindow coalesces bursts of writes into one event.
const debounceWindow = 50 * time.Millisecond

// ConfigWatcher observes the host config file for modifications made by
// any process, including mcplink itself.
type ConfigWatcher struct {
	path         string
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewConfigWatcher creates a watcher for the file at path.
func NewConfigWatcher(path string, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &ConfigWatcher{path: path, pollInterval: 250 * time.Millisecond, logger: logger}
}

// Watch starts observing the file and calls fn once per modification.
// Calls to fn are made from a single goroutine and never overlap.
//
// The returned cancel function stops the OS-level subscription and is safe
// to call more than once. No callback starts after cancel returns. When no
// callback is running, cancel also waits for the delivery goroutine to
// exit. When one is running, cancel returns without waiting for it and
// that callback is the last. This lets fn call cancel itself.
func (w *ConfigWatcher) Watch(fn func(WatchEvent)) (func(), error) {
	if _, err := os.Stat(w.path); err != nil {
		return nil, newError(KindConfigIO, "The app's configuration file does not exist.", err,
			"cannot watch %s", w.path)
	}

	stop := make(chan struct{})
	changes, err := startFileNotifier(w.path, w.pollInterval, stop)
	if err != nil {
		return nil, newError(KindConfigIO, "The app's configuration file cannot be watched.", err,
			"starting file notifications for %s", w.path)
	}

	done := make(chan struct{})
	var inCallback atomic.Bool
	go func() {
		defer close(done)
		for range changes {
			select {
			case <-stop:
				return
			default:
			}
			event := w.readEvent()
			inCallback.Store(true)
			fn(event)
			inCallback.Store(false)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(stop)
		})
		if !inCallback.Load() {
			<-done
		}
	}
	return cancel, nil
}

// readEvent reads and parses the file, converting failures into
// WatchFailed events.
func (w *ConfigWatcher) readEvent() WatchEvent {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("reading watched config", "path", w.path, "err", err)
		return WatchEvent{Kind: WatchFailed, Message: "The app's configuration file could not be read."}
	}
	cfg, err := ParseHostConfig(data)
	if err != nil {
		e := AsError(err)
		w.logger.Warn("parsing watched config", "path", w.path, "err", err)
		return WatchEvent{Kind: WatchFailed, Message: e.UserMessage}
	}
	return WatchEvent{Kind: WatchConfigChanged, Document: cfg}
}

// signal performs a non-blocking send so bursts collapse into one pending
// notification.
func signal(changes chan<- struct{}) {
	select {
	case changes <- struct{}{}:
	default:
	}
}
