package core

import (
	"fmt"
	"os"
	"path/filepath"
)

// lockSuffix names the sidecar file every mcplink process locks before a
// read-modify-write of the host config.
const lockSuffix = ".lock"

// acquireFileLock takes an exclusive advisory lock on <path>.lock, blocking
// until it is available. The returned function releases the lock.
func acquireFileLock(path string) (func(), error) {
	lockPath := path + lockSuffix
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("locking %s: %w", lockPath, err)
	}
	return func() {
		_ = unlockFile(f)
		_ = f.Close()
	}, nil
}
