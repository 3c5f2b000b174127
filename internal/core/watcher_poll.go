//go:build !linux

package core

import (
	"os"
	"time"
)

// startFileNotifier polls the file's size and modification time. Used on
// platforms without an inotify backend.
func startFileNotifier(path string, interval time.Duration, stop <-chan struct{}) (<-chan struct{}, error) {
	last, lastErr := os.Stat(path)
	if lastErr != nil {
		return nil, lastErr
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
			info, err := os.Stat(path)
			switch {
			case err != nil:
				if lastErr == nil {
					signal(changes)
				}
			case lastErr != nil || !info.ModTime().Equal(last.ModTime()) || info.Size() != last.Size():
				signal(changes)
			}
			last, lastErr = info, err
		}
	}()
	return changes, nil
}
